// Package validity decides whether a single-date raster carries enough data
// inside a parcel boundary to be used.
package validity

import (
	"fmt"
	"math"

	"agriref/internal/geometry"
	"agriref/internal/raster"
	"agriref/internal/sensor"
)

// DefaultThreshold is the minimum valid-pixel fraction, exclusive.
const DefaultThreshold = 0.5

// Result describes one gate evaluation.
type Result struct {
	ValidPixels int
	TotalPixels int
	Valid       bool
}

// Fraction returns ValidPixels/TotalPixels, or 0 for an empty mask.
func (r Result) Fraction() float64 {
	if r.TotalPixels == 0 {
		return 0
	}
	return float64(r.ValidPixels) / float64(r.TotalPixels)
}

// Evaluate counts in-boundary cells that differ from sentinel in each band
// and keeps the best band. NaN cells count as missing. The result is valid
// when the fraction strictly exceeds threshold.
func Evaluate(grid *raster.Grid, mask *Mask, sentinel float32, threshold float64) Result {
	total := mask.Count()
	if total == 0 {
		return Result{}
	}
	best := 0
	for _, band := range grid.Bands {
		n := 0
		for i, v := range band {
			if mask.Inside(i) && !Missing(v, sentinel) {
				n++
			}
		}
		best = max(best, n)
	}
	return Result{
		ValidPixels: best,
		TotalPixels: total,
		Valid:       float64(best)/float64(total) > threshold,
	}
}

// Missing reports whether v is a no-data cell.
func Missing(v, sentinel float32) bool {
	return v == sentinel || math.IsNaN(float64(v))
}

// Gate evaluates artifacts against parcel boundaries.
type Gate struct {
	Threshold float64
	Sentinels sensor.Sentinels
}

// NewGate returns a Gate with the given threshold and sentinels. The
// threshold is used as given; config.Validate rejects values outside (0, 1).
func NewGate(threshold float64, sentinels sensor.Sentinels) *Gate {
	return &Gate{Threshold: threshold, Sentinels: sentinels}
}

// CheckGrid evaluates a decoded grid.
func (g *Gate) CheckGrid(boundary *geometry.Boundary, grid *raster.Grid, modality sensor.Modality) (Result, error) {
	if err := grid.Validate(); err != nil {
		return Result{}, err
	}
	mask := NewMask(boundary, grid.Width, grid.Height, grid.Transform)
	return Evaluate(grid, mask, g.Sentinels.For(modality), g.Threshold), nil
}

// CheckFile decodes the artifact at path and evaluates it.
func (g *Gate) CheckFile(boundary *geometry.Boundary, path string, modality sensor.Modality) (Result, error) {
	grid, err := raster.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("gate %s: %w", modality, err)
	}
	return g.CheckGrid(boundary, grid, modality)
}
