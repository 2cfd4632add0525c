package gapfill

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/spaolacci/murmur3"

	"agriref/internal/config"
	"agriref/internal/fileutil"
	"agriref/internal/logging"
	"agriref/internal/raster"
	"agriref/internal/services"
)

const (
	interpSuffix     = "_interp"
	lockRetryDelay   = 50 * time.Millisecond
	defaultLockLimit = 2 * time.Minute
)

// Outcome describes one Interpolate call.
type Outcome struct {
	Path   string
	Cached bool
}

// Interpolator produces and memoizes gap-filled rasters.
type Interpolator struct {
	dir         string
	filler      Filler
	lockTimeout time.Duration
	logger      *slog.Logger
	computed    atomic.Int64
}

// NewInterpolator builds an interpolator from configuration. It returns nil
// when gap-fill is disabled; a nil Interpolator is safe to call and reports
// no derived artifact.
func NewInterpolator(cfg *config.Config, logger *slog.Logger) *Interpolator {
	if cfg == nil || !cfg.Gapfill.Enabled {
		return nil
	}
	dir := strings.TrimSpace(cfg.Paths.InterpCacheDir)
	if dir == "" {
		return nil
	}
	return New(dir, Filler{Neighbors: cfg.Gapfill.Neighbors}, time.Duration(cfg.Gapfill.LockTimeoutSeconds)*time.Second, logger)
}

// New returns an interpolator writing into dir.
func New(dir string, filler Filler, lockTimeout time.Duration, logger *slog.Logger) *Interpolator {
	if lockTimeout <= 0 {
		lockTimeout = defaultLockLimit
	}
	return &Interpolator{
		dir:         dir,
		filler:      filler,
		lockTimeout: lockTimeout,
		logger:      logging.NewComponentLogger(logger, "gapfill"),
	}
}

// Dir returns the cache directory.
func (i *Interpolator) Dir() string {
	if i == nil {
		return ""
	}
	return i.dir
}

// Computed returns how many rasters this interpolator has filled itself,
// excluding cache hits.
func (i *Interpolator) Computed() int64 {
	if i == nil {
		return 0
	}
	return i.computed.Load()
}

// OutputPath returns the deterministic derived location for src:
// <dir>/<source key>/<base>_interp<ext>. The key is derived from the
// absolute source directory, so same-named artifacts of different parcels
// never share an output.
func (i *Interpolator) OutputPath(src string) string {
	name := filepath.Base(src)
	ext := filepath.Ext(name)
	return filepath.Join(i.dir, sourceKey(src), strings.TrimSuffix(name, ext)+interpSuffix+ext)
}

func sourceKey(src string) string {
	dir := filepath.Dir(src)
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	key := strconv.FormatUint(murmur3.Sum64([]byte(filepath.Clean(dir))), 16)
	return strings.Repeat("0", 16-len(key)) + key
}

// Interpolate fills the no-data cells of src and returns the derived path.
// An existing derived artifact is returned without recomputation.
func (i *Interpolator) Interpolate(ctx context.Context, src string, sentinel float32) (Outcome, error) {
	if i == nil {
		return Outcome{}, errors.New("gapfill: disabled")
	}
	out := i.OutputPath(src)
	if ok, err := fileutil.Exists(out); err != nil {
		return Outcome{}, fmt.Errorf("gapfill: inspect cache: %w", err)
	} else if ok {
		i.logger.DebugContext(ctx, "interpolation cache hit", logging.String("path", out))
		return Outcome{Path: out, Cached: true}, nil
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return Outcome{}, fmt.Errorf("gapfill: ensure cache dir: %w", err)
	}
	lock := flock.New(out + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, i.lockTimeout)
	defer cancel()
	locked, err := lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil || !locked {
		return Outcome{}, services.Wrap(services.ErrTransient, "gapfill", "lock output", out, err)
	}
	defer func() { _ = lock.Unlock() }()

	// Another process may have finished while we waited.
	if ok, err := fileutil.Exists(out); err == nil && ok {
		return Outcome{Path: out, Cached: true}, nil
	}

	start := time.Now()
	grid, err := raster.ReadFile(src)
	if err != nil {
		return Outcome{}, services.Wrap(services.ErrValidation, "gapfill", "read source", src, err)
	}
	filled, err := i.filler.Fill(grid, sentinel)
	if err != nil {
		return Outcome{}, err
	}
	if err := raster.WriteFile(out, filled); err != nil {
		return Outcome{}, fmt.Errorf("gapfill: write output: %w", err)
	}
	i.computed.Add(1)
	logging.WithContext(ctx, i.logger).InfoContext(ctx, "interpolated raster",
		logging.String("source", filepath.Base(src)),
		logging.String("path", out),
		logging.Duration("elapsed", time.Since(start)),
	)
	return Outcome{Path: out, Cached: false}, nil
}

// Stats describes the current contents of the cache directory.
type Stats struct {
	Entries    int   `json:"entries"`
	TotalBytes int64 `json:"total_bytes"`
}

// Stats reports derived artifacts currently cached. Lock files are excluded.
func (i *Interpolator) Stats() (Stats, error) {
	if i == nil {
		return Stats{}, nil
	}
	var stats Stats
	err := filepath.WalkDir(i.dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		name := entry.Name()
		if entry.IsDir() || strings.HasSuffix(name, ".lock") || strings.HasPrefix(name, ".") {
			return nil
		}
		if !strings.HasSuffix(fileutil.StripExt(name), interpSuffix) {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return nil
		}
		stats.Entries++
		stats.TotalBytes += info.Size()
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	return stats, nil
}
