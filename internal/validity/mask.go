package validity

import (
	"math"

	"agriref/internal/geometry"
	"agriref/internal/raster"
)

// Mask marks the raster cells whose centre lies inside a boundary.
type Mask struct {
	Width  int
	Height int
	cells  []bool
	count  int
}

// NewMask rasterizes boundary onto the grid defined by width, height and
// transform. Only cells within the boundary's bounding box are tested.
func NewMask(boundary *geometry.Boundary, width, height int, transform raster.Transform) *Mask {
	m := &Mask{Width: width, Height: height, cells: make([]bool, width*height)}
	if width <= 0 || height <= 0 || transform.PixelWidth == 0 || transform.PixelHeight == 0 {
		return m
	}
	minX, minY, maxX, maxY := boundary.Bounds()
	c0, c1 := cellSpan(minX, maxX, transform.OriginX, transform.PixelWidth, width)
	r0, r1 := cellSpan(minY, maxY, transform.OriginY, transform.PixelHeight, height)
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			x, y := transform.CellCenter(col, row)
			if boundary.Contains(x, y) {
				m.cells[row*width+col] = true
				m.count++
			}
		}
	}
	return m
}

// cellSpan returns the inclusive index range of cells along one axis that
// may intersect [lo, hi]. An empty range has first > last.
func cellSpan(lo, hi, origin, size float64, n int) (int, int) {
	a := (lo - origin) / size
	b := (hi - origin) / size
	if a > b {
		a, b = b, a
	}
	first := max(int(math.Floor(a))-1, 0)
	last := min(int(math.Ceil(b))+1, n-1)
	return first, last
}

// Inside reports whether cell i is in the boundary.
func (m *Mask) Inside(i int) bool {
	return m.cells[i]
}

// Count returns the number of in-boundary cells.
func (m *Mask) Count() int {
	return m.count
}
