package logging

import (
	"context"
	"log/slog"

	"agriref/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized structured logging key for ingest run identifiers.
	FieldRunID = "run_id"
	// FieldField is the standardized structured logging key for external field numbers.
	FieldField = "field"
	// FieldDate is the standardized structured logging key for ISO calendar dates.
	FieldDate = "date"
	// FieldModality is the standardized structured logging key for sensor modalities.
	FieldModality = "modality"
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
	// FieldImpact describes the consequence of a warning for the run.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if field, ok := services.FieldFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldField, field))
	}
	if date, ok := services.DateFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldDate, date))
	}
	if modality, ok := services.ModalityFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldModality, modality))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
