package preflight

import (
	"context"

	"agriref/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// State directory holds the run lock and the default store.
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckFreeSpace("State volume", cfg.Paths.StateDir, MinFreeBytes))

	if cfg.Paths.BoundaryDir != "" {
		results = append(results, CheckDirectoryReadable("Boundary directory", cfg.Paths.BoundaryDir))
	}

	if cfg.Gapfill.Enabled {
		results = append(results, CheckDirectoryAccess("Interpolation cache", cfg.Paths.InterpCacheDir))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
