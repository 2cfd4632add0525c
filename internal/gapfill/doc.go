// Package gapfill reconstructs no-data cells of accepted optical rasters and
// caches the result.
//
// Each band is filled independently in pixel space. Missing cells inside the
// convex hull of the valid cells are estimated with a local cubic
// polyharmonic spline (kernel r³ plus a linear tail) fitted to the nearest
// valid cells; cells outside the hull take the fill value 0. Every output cell
// is rounded half-to-even because the rasters are integer-encoded.
//
// Derived rasters are written once to <cache>/<key>/<base>_interp<ext>, where
// key hashes the absolute source directory. Creation
// holds a per-output file lock and renames a finished temp file into place,
// so concurrent callers never compute the same output twice or observe a
// partial file.
package gapfill
