// Package ingest runs a manifest-described job: it derives parcel
// identities, registers parcels, and reconciles each parcel's timeline into
// the store, one parcel at a time.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"agriref/internal/catalog"
	"agriref/internal/config"
	"agriref/internal/fileutil"
	"agriref/internal/gapfill"
	"agriref/internal/logging"
	"agriref/internal/metrics"
	"agriref/internal/parcel"
	"agriref/internal/phenology"
	"agriref/internal/sensor"
	"agriref/internal/services"
	"agriref/internal/store"
	"agriref/internal/timeline"
	"agriref/internal/validity"
	"agriref/internal/weather"
)

// ErrLocked reports that another run holds the run lock.
var ErrLocked = errors.New("another agriref run is in progress")

// Store is the persistence the runner needs.
type Store interface {
	timeline.Writer
	InsertParcel(ctx context.Context, p store.ParcelRow) (bool, error)
}

// Options tune a run.
type Options struct {
	// DryRun reconciles without writing parcels or records.
	DryRun bool
}

// ParcelReport summarizes one parcel of a run.
type ParcelReport struct {
	FieldNumber string
	Year        string
	FieldID     int64
	Path        string
	Registered  bool
	Start       string
	End         string
	Summary     timeline.Summary
	Skipped     string
}

// Report summarizes a run.
type Report struct {
	RunID   string
	DryRun  bool
	Parcels []ParcelReport
	Totals  timeline.Summary
	Elapsed time.Duration
}

// Runner executes ingest jobs.
type Runner struct {
	cfg     *config.Config
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewRunner wires a runner. st may be nil for dry runs.
func NewRunner(cfg *config.Config, st Store, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:     cfg,
		store:   st,
		logger:  logging.NewComponentLogger(logger, "ingest"),
		metrics: metrics.New(),
		now:     time.Now,
	}
}

// Metrics exposes the run counters.
func (r *Runner) Metrics() *metrics.Metrics {
	return r.metrics
}

// Run executes m. Per-item problems are logged and counted; the returned
// error is reserved for conditions that stop the whole run.
func (r *Runner) Run(ctx context.Context, m *Manifest, opts Options) (*Report, error) {
	if !opts.DryRun && r.store == nil {
		return nil, errors.New("ingest: store is required unless dry-run")
	}
	if err := r.cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	lock := flock.New(r.cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrLocked, r.cfg.LockPath())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	started := r.now()
	report := &Report{RunID: uuid.NewString(), DryRun: opts.DryRun}
	ctx = services.WithRunID(ctx, report.RunID)
	log := logging.WithContext(ctx, r.logger)
	log.Info("ingest run started",
		logging.Bool("dry_run", opts.DryRun),
		logging.String("lock", r.cfg.LockPath()),
	)

	boundaryDir := r.cfg.Paths.BoundaryDir
	if strings.TrimSpace(m.BoundaryDir) != "" {
		boundaryDir = m.expand(m.BoundaryDir, templateVars{})
	}
	if boundaryDir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "ingest", "boundaries", "no boundary directory configured", nil)
	}
	deriver := parcel.NewDeriver(r.cfg.Identity.Origin, r.cfg.Identity.BoundaryPrefix)
	dict, parcels, err := parcel.BuildDictionary(ctx, boundaryDir, deriver, r.logger)
	if err != nil {
		return nil, err
	}

	var observations phenology.Observations
	if path := m.expand(m.Phenology, templateVars{}); path != "" {
		if observations, err = phenology.Load(path, r.cfg.Phenology.Encoding); err != nil {
			return nil, err
		}
	}

	reconciler, err := r.newReconciler(dict, opts)
	if err != nil {
		return nil, err
	}

	for _, sel := range selectParcels(m, parcels) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		pr, err := r.runParcel(ctx, m, sel, reconciler, observations, opts)
		report.Parcels = append(report.Parcels, pr)
		report.Totals.Add(pr.Summary)
		if err != nil {
			return report, err
		}
	}
	for _, miss := range unmatchedJobs(m, parcels) {
		logging.WarnWithContext(ctx, r.logger, "manifest entry matched no boundary", "parcel_unmatched",
			logging.String(logging.FieldField, miss),
			logging.String(logging.FieldErrorHint, "check the field number or boundary file name"),
		)
	}

	report.Elapsed = r.now().Sub(started)
	r.metrics.Finish(report.Elapsed, r.now())
	if err := r.metrics.WriteTextfile(r.cfg.Metrics.Textfile); err != nil {
		log.Warn("metrics textfile not written", logging.Error(err))
	}
	log.Info("ingest run finished",
		logging.Int("parcels", len(report.Parcels)),
		logging.Int("emitted", report.Totals.Emitted),
		logging.Int("duplicates", report.Totals.Duplicates),
		logging.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

func (r *Runner) newReconciler(dict *parcel.Dictionary, opts Options) (*timeline.Reconciler, error) {
	sentinels := sensor.Sentinels{Optical: r.cfg.Gate.OpticalSentinel, Radar: r.cfg.Gate.RadarSentinel}
	deps := timeline.Deps{
		Gate:      validity.NewGate(r.cfg.Gate.Threshold, sentinels),
		Resolver:  dict,
		Writer:    r.store,
		Sentinels: sentinels,
		Logger:    r.logger,
	}
	if opts.DryRun {
		deps.Writer = dryRunWriter{}
	}
	if interp := gapfill.NewInterpolator(r.cfg, r.logger); interp != nil && !opts.DryRun {
		deps.Interpolator = interp
	}
	return timeline.New(deps)
}

// selection pairs a parcel with the manifest entry that selected it.
type selection struct {
	parcel *parcel.Parcel
	job    *ParcelJob
}

// selectParcels returns the parcels named by the manifest, in manifest
// order, or every parcel when the manifest names none.
func selectParcels(m *Manifest, parcels []*parcel.Parcel) []selection {
	if len(m.Parcels) == 0 {
		out := make([]selection, 0, len(parcels))
		for _, p := range parcels {
			out = append(out, selection{parcel: p})
		}
		return out
	}
	var out []selection
	seen := make(map[int64]bool)
	for i := range m.Parcels {
		job := &m.Parcels[i]
		for _, p := range parcels {
			if !job.matches(p) || seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			out = append(out, selection{parcel: p, job: job})
		}
	}
	return out
}

func unmatchedJobs(m *Manifest, parcels []*parcel.Parcel) []string {
	var out []string
	for i := range m.Parcels {
		found := false
		for _, p := range parcels {
			if m.Parcels[i].matches(p) {
				found = true
				break
			}
		}
		if !found {
			out = append(out, m.Parcels[i].Field)
		}
	}
	return out
}

// matches accepts a boundary file name, a path, or a bare field number.
func (j *ParcelJob) matches(p *parcel.Parcel) bool {
	field := strings.TrimSpace(j.Field)
	if field == p.FieldNumber {
		return true
	}
	return filepath.Base(field) == filepath.Base(p.Path)
}

func (r *Runner) runParcel(ctx context.Context, m *Manifest, sel selection, rec *timeline.Reconciler, obs phenology.Observations, opts Options) (ParcelReport, error) {
	p := sel.parcel
	pr := ParcelReport{FieldNumber: p.FieldNumber, Year: p.Year, FieldID: p.ID, Path: p.Path}
	ctx = services.WithField(ctx, p.FieldNumber)
	vars := templateVars{Name: fileutil.StripExt(filepath.Base(p.Path)), Field: p.FieldNumber, Year: p.Year}

	start, end, ok := parcelRange(m, sel.job, p)
	if !ok {
		pr.Skipped = "no date range"
		r.metrics.ObserveParcel("skipped")
		logging.WarnWithContext(ctx, r.logger, "parcel has no date range; skipped", "parcel_skipped",
			logging.String("year", p.Year),
			logging.String(logging.FieldErrorHint, "set start and end in the manifest for perennial parcels"),
		)
		return pr, nil
	}
	pr.Start, pr.End = start.Format(time.DateOnly), end.Format(time.DateOnly)

	if !opts.DryRun {
		registered, err := r.register(ctx, p)
		if err != nil {
			if services.IsItemError(err) {
				pr.Skipped = err.Error()
				r.metrics.ObserveParcel("skipped")
				logging.WarnWithContext(ctx, r.logger, "parcel not registered; skipped", "parcel_skipped", logging.Error(err))
				return pr, nil
			}
			return pr, err
		}
		pr.Registered = registered
		if registered {
			r.metrics.ObserveParcel("registered")
		} else {
			r.metrics.ObserveParcel("existing")
		}
	}

	catalogs, err := catalog.BuildSet(ctx, m.modalityDirs(sel.job, vars))
	if err != nil {
		if ctx.Err() != nil {
			return pr, ctx.Err()
		}
		pr.Skipped = err.Error()
		logging.WarnWithContext(ctx, r.logger, "catalog unavailable; parcel skipped", "catalog_failed", logging.Error(err))
		return pr, nil
	}

	var series weather.Series
	if path := m.weatherPath(sel.job, vars); path != "" {
		series, err = weather.Load(path)
		if err != nil {
			logging.WarnWithContext(ctx, r.logger, "weather unavailable; records carry no weather", "weather_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "weather columns left empty"),
			)
			series = nil
		}
	}

	summary, err := rec.Run(ctx, timeline.Input{
		Parcel:    p,
		Catalogs:  catalogs,
		Weather:   series,
		Phenology: obs.Field(p.FieldNumber),
		Start:     start,
		End:       end,
	})
	pr.Summary = summary
	r.metrics.ObserveSummary(summary)
	if err != nil {
		return pr, err
	}
	logging.WithContext(ctx, r.logger).Info("parcel reconciled",
		logging.Int64("field_id", p.ID),
		logging.Int("days", summary.DaysScanned),
		logging.Int("emitted", summary.Emitted),
		logging.Int("duplicates", summary.Duplicates),
	)
	return pr, nil
}

func (r *Runner) register(ctx context.Context, p *parcel.Parcel) (bool, error) {
	geom, err := p.Boundary.GeoJSON()
	if err != nil {
		return false, services.Wrap(services.ErrGeometry, "ingest", "encode boundary", p.Path, err)
	}
	return r.store.InsertParcel(ctx, store.ParcelRow{
		FieldID:    p.ID,
		Geom:       string(geom),
		StartDate:  p.StartDate,
		EndDate:    p.EndDate,
		CropType:   p.CropType,
		BufferDist: p.BufferDist,
		Size:       p.RoundedArea(),
	})
}

// parcelRange picks the parcel entry's range, then the job's, then the
// parcel's observation year. Perennial parcels need an explicit range.
func parcelRange(m *Manifest, job *ParcelJob, p *parcel.Parcel) (time.Time, time.Time, bool) {
	start, end, _ := parseRange(m.Start, m.End)
	if job != nil {
		js, je, _ := parseRange(job.Start, job.End)
		if !js.IsZero() {
			start = js
		}
		if !je.IsZero() {
			end = je
		}
	}
	if !p.Perennial() {
		ys, ye, err := parseRange(p.StartDate, p.EndDate)
		if err == nil {
			if start.IsZero() {
				start = ys
			}
			if end.IsZero() {
				end = ye
			}
		}
	}
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return start, end, false
	}
	return start, end, true
}

// dryRunWriter accepts every record without persisting it.
type dryRunWriter struct{}

func (dryRunWriter) InsertDayRecord(context.Context, *store.DayRecord) (bool, error) {
	return true, nil
}
