package services

import "context"

type contextKey string

const (
	runIDKey    contextKey = "run_id"
	fieldKey    contextKey = "field"
	dateKey     contextKey = "date"
	modalityKey contextKey = "modality"
)

// WithRunID annotates context with the ingest run correlation identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithField annotates context with the external field number being processed.
func WithField(ctx context.Context, field string) context.Context {
	if field == "" {
		return ctx
	}
	return context.WithValue(ctx, fieldKey, field)
}

// FieldFromContext returns the field number if present.
func FieldFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(fieldKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithDate annotates context with the ISO date being reconciled.
func WithDate(ctx context.Context, date string) context.Context {
	if date == "" {
		return ctx
	}
	return context.WithValue(ctx, dateKey, date)
}

// DateFromContext returns the ISO date if present.
func DateFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(dateKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithModality annotates context with the sensor modality under evaluation.
func WithModality(ctx context.Context, modality string) context.Context {
	if modality == "" {
		return ctx
	}
	return context.WithValue(ctx, modalityKey, modality)
}

// ModalityFromContext returns the modality if present.
func ModalityFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(modalityKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
