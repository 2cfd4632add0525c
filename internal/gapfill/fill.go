package gapfill

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"agriref/internal/raster"
	"agriref/internal/validity"
)

// ErrInsufficientData reports a band whose valid cells cannot support
// interpolation: fewer than three cells, or all on one line.
var ErrInsufficientData = errors.New("gapfill: insufficient valid cells")

const (
	// DefaultNeighbors is the number of valid cells each local spline is fitted to.
	DefaultNeighbors = 12
	minNeighbors     = 3
)

// Filler reconstructs missing cells of a grid.
type Filler struct {
	Neighbors int
	FillValue float32
}

// Fill returns a new grid where each band's missing cells are interpolated
// and all cells are rounded. The input is not modified.
func (f Filler) Fill(grid *raster.Grid, sentinel float32) (*raster.Grid, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	k := f.Neighbors
	if k <= 0 {
		k = DefaultNeighbors
	}
	k = max(k, minNeighbors)

	out := grid.Clone()
	for b, band := range out.Bands {
		if err := f.fillBand(band, grid.Width, grid.Height, sentinel, k); err != nil {
			return nil, fmt.Errorf("band %d: %w", b, err)
		}
	}
	return out, nil
}

func (f Filler) fillBand(band []float32, width, height int, sentinel float32, k int) error {
	valid := make([]bool, len(band))
	pts := make([]point, 0, len(band))
	for i, v := range band {
		if !validity.Missing(v, sentinel) {
			valid[i] = true
			pts = append(pts, point{x: float64(i % width), y: float64(i / width)})
		}
	}
	if len(pts) < 3 {
		return ErrInsufficientData
	}
	hull := convexHull(pts)
	if len(hull) < 3 {
		return ErrInsufficientData
	}
	if len(pts) == len(band) {
		roundBand(band)
		return nil
	}

	src := append([]float32(nil), band...)
	search := neighborSearch{valid: valid, values: src, width: width, height: height}
	for i := range band {
		if valid[i] {
			continue
		}
		p := point{x: float64(i % width), y: float64(i / width)}
		if !hullContains(hull, p) {
			band[i] = f.FillValue
			continue
		}
		band[i] = float32(interpolate(search.nearest(i%width, i/width, k), p))
	}
	roundBand(band)
	return nil
}

func roundBand(band []float32) {
	for i, v := range band {
		band[i] = float32(math.RoundToEven(float64(v)))
	}
}

type sample struct {
	x, y, v float64
	d2      float64
}

type neighborSearch struct {
	valid  []bool
	values []float32
	width  int
	height int
}

// nearest returns the k valid cells closest to (col, row), searching square
// rings outward. Once k cells are found the search continues to the radius
// that guarantees no closer cell was missed.
func (s neighborSearch) nearest(col, row, k int) []sample {
	var found []sample
	limit := max(s.width, s.height)
	stop := -1
	for r := 1; r <= limit; r++ {
		s.ring(col, row, r, &found)
		if stop < 0 && len(found) >= k {
			stop = int(math.Ceil(float64(r) * math.Sqrt2))
		}
		if stop >= 0 && r >= stop {
			break
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].d2 < found[j].d2 })
	if len(found) > k {
		found = found[:k]
	}
	return found
}

func (s neighborSearch) ring(col, row, r int, dst *[]sample) {
	visit := func(c, rr int) {
		if c < 0 || rr < 0 || c >= s.width || rr >= s.height {
			return
		}
		i := rr*s.width + c
		if !s.valid[i] {
			return
		}
		dx, dy := float64(c-col), float64(rr-row)
		*dst = append(*dst, sample{x: float64(c), y: float64(rr), v: float64(s.values[i]), d2: dx*dx + dy*dy})
	}
	for c := col - r; c <= col+r; c++ {
		visit(c, row-r)
		visit(c, row+r)
	}
	for rr := row - r + 1; rr <= row+r-1; rr++ {
		visit(col-r, rr)
		visit(col+r, rr)
	}
}

// interpolate evaluates a polyharmonic spline with kernel r³ and a linear
// tail through samples at p. Coordinates are taken relative to p. A singular
// system falls back to inverse distance weighting.
func interpolate(samples []sample, p point) float64 {
	n := len(samples)
	if n == 0 {
		return 0
	}
	if n >= 3 {
		if v, err := splineAt(samples, p); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v
		}
	}
	return idw(samples)
}

func splineAt(samples []sample, p point) (float64, error) {
	n := len(samples)
	size := n + 3
	a := mat.NewDense(size, size, nil)
	rhs := mat.NewVecDense(size, nil)
	for i, si := range samples {
		xi, yi := si.x-p.x, si.y-p.y
		for j := i + 1; j < n; j++ {
			sj := samples[j]
			phi := cubic(xi-(sj.x-p.x), yi-(sj.y-p.y))
			a.Set(i, j, phi)
			a.Set(j, i, phi)
		}
		a.Set(i, n, 1)
		a.Set(i, n+1, xi)
		a.Set(i, n+2, yi)
		a.Set(n, i, 1)
		a.Set(n+1, i, xi)
		a.Set(n+2, i, yi)
		rhs.SetVec(i, si.v)
	}
	var coef mat.VecDense
	if err := coef.SolveVec(a, rhs); err != nil {
		return 0, err
	}
	// At the origin the linear tail reduces to its constant term.
	v := coef.AtVec(n)
	for i, si := range samples {
		v += coef.AtVec(i) * cubic(si.x-p.x, si.y-p.y)
	}
	return v, nil
}

func cubic(dx, dy float64) float64 {
	r := math.Hypot(dx, dy)
	return r * r * r
}

func idw(samples []sample) float64 {
	var num, den float64
	for _, s := range samples {
		if s.d2 == 0 {
			return s.v
		}
		w := 1 / s.d2
		num += w * s.v
		den += w
	}
	if den == 0 {
		return 0
	}
	return num / den
}
