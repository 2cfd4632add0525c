package timeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"agriref/internal/catalog"
	"agriref/internal/gapfill"
	"agriref/internal/geometry"
	"agriref/internal/logging"
	"agriref/internal/parcel"
	"agriref/internal/sensor"
	"agriref/internal/services"
	"agriref/internal/store"
	"agriref/internal/validity"
	"agriref/internal/weather"
)

// Gate decides whether an artifact carries enough data inside a boundary.
type Gate interface {
	CheckFile(boundary *geometry.Boundary, path string, modality sensor.Modality) (validity.Result, error)
}

// Interpolator produces a gap-filled copy of an artifact.
type Interpolator interface {
	Interpolate(ctx context.Context, src string, sentinel float32) (gapfill.Outcome, error)
}

// Resolver maps a field number and year to a parcel identity.
type Resolver interface {
	Resolve(fieldNumber, year string) (int64, error)
}

// Writer persists day records.
type Writer interface {
	InsertDayRecord(ctx context.Context, rec *store.DayRecord) (bool, error)
}

// Deps wires a Reconciler. Interpolator may be nil to disable gap-fill.
type Deps struct {
	Gate         Gate
	Interpolator Interpolator
	Resolver     Resolver
	Writer       Writer
	Sentinels    sensor.Sentinels
	Logger       *slog.Logger
}

// Reconciler walks a parcel's date range and emits day records.
type Reconciler struct {
	gate      Gate
	interp    Interpolator
	resolver  Resolver
	writer    Writer
	sentinels sensor.Sentinels
	logger    *slog.Logger
}

// New returns a Reconciler. Gate, Resolver, and Writer are required.
func New(deps Deps) (*Reconciler, error) {
	if deps.Gate == nil || deps.Resolver == nil || deps.Writer == nil {
		return nil, errors.New("timeline: gate, resolver, and writer are required")
	}
	return &Reconciler{
		gate:      deps.Gate,
		interp:    deps.Interpolator,
		resolver:  deps.Resolver,
		writer:    deps.Writer,
		sentinels: deps.Sentinels,
		logger:    logging.NewComponentLogger(deps.Logger, "timeline"),
	}, nil
}

// Input is everything known about one parcel for a run.
type Input struct {
	Parcel    *parcel.Parcel
	Catalogs  catalog.Set
	Weather   weather.Series
	Phenology map[string]int
	Start     time.Time
	End       time.Time
}

// Summary counts what happened during a run.
type Summary struct {
	DaysScanned    int `json:"days_scanned"`
	Candidates     int `json:"candidates"`
	Emitted        int `json:"emitted"`
	Duplicates     int `json:"duplicates"`
	IdentityMisses int `json:"identity_misses"`
	GateFailures   int `json:"gate_failures"`
	Interpolations int `json:"interpolations"`
	CacheHits      int `json:"cache_hits"`
	WriteSkips     int `json:"write_skips"`
}

// Add accumulates other into s.
func (s *Summary) Add(other Summary) {
	s.DaysScanned += other.DaysScanned
	s.Candidates += other.Candidates
	s.Emitted += other.Emitted
	s.Duplicates += other.Duplicates
	s.IdentityMisses += other.IdentityMisses
	s.GateFailures += other.GateFailures
	s.Interpolations += other.Interpolations
	s.CacheHits += other.CacheHits
	s.WriteSkips += other.WriteSkips
}

// Run reconciles every date from in.Start to in.End inclusive, in ascending
// order. Per-date problems are logged and skipped; a writer failure that is
// not a validation error aborts the run.
func (r *Reconciler) Run(ctx context.Context, in Input) (Summary, error) {
	var summary Summary
	if in.Parcel == nil || in.Parcel.Boundary == nil {
		return summary, services.Wrap(services.ErrValidation, "timeline", "run", "parcel boundary is required", nil)
	}
	start := truncateDay(in.Start)
	end := truncateDay(in.End)
	if end.Before(start) {
		return summary, services.Wrap(services.ErrValidation, "timeline", "run",
			fmt.Sprintf("end %s before start %s", end.Format(time.DateOnly), start.Format(time.DateOnly)), nil)
	}
	ctx = services.WithField(ctx, in.Parcel.FieldNumber)

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.DaysScanned++
		if err := r.reconcileDay(services.WithDate(ctx, day.Format(time.DateOnly)), in, day, &summary); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

// dayRun is the working state of one date. A new value is built per date.
type dayRun struct {
	date      string
	state     State
	artifacts map[sensor.Modality]string
	record    *store.DayRecord
}

func (r *Reconciler) reconcileDay(ctx context.Context, in Input, day time.Time, summary *Summary) error {
	d := dayRun{date: day.Format(time.DateOnly), state: NoData}

	for _, m := range sensor.All() {
		if path, ok := in.Catalogs.Lookup(m, d.date); ok {
			if d.artifacts == nil {
				d.artifacts = make(map[sensor.Modality]string, 3)
			}
			d.artifacts[m] = path
		}
	}
	if len(d.artifacts) == 0 {
		return nil
	}
	d.state = Candidate
	summary.Candidates++

	d.record = &store.DayRecord{Date: d.date}
	for _, m := range sensor.All() {
		path, ok := d.artifacts[m]
		if !ok {
			continue
		}
		d.record.SetObservation(m, r.observe(ctx, in.Parcel, m, path, summary))
	}
	r.enrich(d.record, in)

	year := d.date[:4]
	id, err := r.resolver.Resolve(in.Parcel.FieldNumber, year)
	if err != nil {
		summary.IdentityMisses++
		logging.WarnWithContext(ctx, r.logger, "parcel identity not found; date skipped", "identity_miss",
			logging.String("year", year),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "add a boundary file for this field and year"),
		)
		return nil
	}
	d.record.FieldID = id
	d.record.Size = sizeOf(in.Parcel)

	inserted, err := r.writer.InsertDayRecord(ctx, d.record)
	if err != nil {
		if services.IsItemError(err) {
			summary.WriteSkips++
			logging.WarnWithContext(ctx, r.logger, "day record rejected; date skipped", "write_rejected",
				logging.Int64("field_id", id),
				logging.Error(err),
			)
			return nil
		}
		return fmt.Errorf("write %s %s: %w", in.Parcel.FieldNumber, d.date, err)
	}
	d.state = Emitted
	if inserted {
		summary.Emitted++
	} else {
		summary.Duplicates++
	}
	logging.WithContext(ctx, r.logger).DebugContext(ctx, "day reconciled",
		logging.Int64("field_id", id),
		logging.String("state", d.state.String()),
		logging.Bool("inserted", inserted),
		logging.Int("modalities", len(d.artifacts)),
	)
	return nil
}

// observe gates one artifact and, for valid optical data, gap-fills it.
// Failures leave the affected fields nil.
func (r *Reconciler) observe(ctx context.Context, p *parcel.Parcel, m sensor.Modality, path string, summary *Summary) store.Observation {
	obs := store.Observation{Path: path}
	mctx := services.WithModality(ctx, m.String())

	result, err := r.gate.CheckFile(p.Boundary, path, m)
	if err != nil {
		summary.GateFailures++
		logging.WarnWithContext(mctx, r.logger, "validity gate failed; modality unavailable", "gate_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "validity flag left empty"),
		)
		return obs
	}
	valid := result.Valid
	obs.Valid = &valid
	logging.WithContext(mctx, r.logger).DebugContext(mctx, "validity evaluated",
		logging.Int("valid_pixels", result.ValidPixels),
		logging.Int("total_pixels", result.TotalPixels),
		logging.Bool("valid", valid),
	)

	if m != sensor.Optical || !valid || r.interp == nil {
		return obs
	}
	outcome, err := r.interp.Interpolate(mctx, path, r.sentinels.For(m))
	if err != nil {
		hint := "check the source raster"
		if errors.Is(err, gapfill.ErrInsufficientData) {
			hint = "too few valid cells to interpolate"
		}
		logging.WarnWithContext(mctx, r.logger, "interpolation failed; derived artifact unavailable", "interpolation_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hint),
			logging.String(logging.FieldImpact, "record emitted without gap-filled raster"),
		)
		return obs
	}
	if outcome.Cached {
		summary.CacheHits++
	} else {
		summary.Interpolations++
	}
	obs.InterpPath = outcome.Path
	return obs
}

// enrich copies the date's weather and growth stage into rec.
func (r *Reconciler) enrich(rec *store.DayRecord, in Input) {
	if w, ok := in.Weather.Lookup(rec.Date); ok {
		rec.Precip = w.Precip
		rec.TempMean = w.TempMean
		rec.TempMin = w.TempMin
		rec.TempMax = w.TempMax
	}
	if bbch, ok := in.Phenology[rec.Date]; ok {
		rec.BBCHPhase = &bbch
	}
}

func sizeOf(p *parcel.Parcel) *int64 {
	size := p.RoundedArea()
	return &size
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
