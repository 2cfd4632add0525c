// Package raster holds single-date multi-band grids in memory and the codecs
// that read and write them.
package raster

import (
	"errors"
	"fmt"
)

// Transform is an affine north-up geotransform. Cell (col, row) covers
// x in [OriginX + col*PixelWidth, OriginX + (col+1)*PixelWidth) and
// y in (OriginY + (row+1)*PixelHeight, OriginY + row*PixelHeight].
// PixelHeight is negative for north-up rasters.
type Transform struct {
	OriginX     float64 `json:"origin_x"`
	OriginY     float64 `json:"origin_y"`
	PixelWidth  float64 `json:"pixel_width"`
	PixelHeight float64 `json:"pixel_height"`
}

// CellCenter returns the projected coordinate of the centre of a cell.
func (t Transform) CellCenter(col, row int) (float64, float64) {
	return t.OriginX + (float64(col)+0.5)*t.PixelWidth,
		t.OriginY + (float64(row)+0.5)*t.PixelHeight
}

// Grid is a multi-band raster. Bands are stored row-major.
type Grid struct {
	Width     int
	Height    int
	Transform Transform
	Bands     [][]float32
}

// ErrShape reports a band whose length does not match the grid dimensions.
var ErrShape = errors.New("raster: band size does not match grid dimensions")

// New allocates a grid with the given number of zeroed bands.
func New(width, height, bands int, transform Transform) *Grid {
	g := &Grid{Width: width, Height: height, Transform: transform, Bands: make([][]float32, bands)}
	for i := range g.Bands {
		g.Bands[i] = make([]float32, width*height)
	}
	return g
}

// Validate checks dimensions and band sizes.
func (g *Grid) Validate() error {
	if g == nil {
		return errors.New("raster: nil grid")
	}
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("raster: invalid dimensions %dx%d", g.Width, g.Height)
	}
	if len(g.Bands) == 0 {
		return errors.New("raster: grid has no bands")
	}
	if g.Transform.PixelWidth == 0 || g.Transform.PixelHeight == 0 {
		return errors.New("raster: zero pixel size")
	}
	for i, band := range g.Bands {
		if len(band) != g.Width*g.Height {
			return fmt.Errorf("%w: band %d has %d cells, want %d", ErrShape, i, len(band), g.Width*g.Height)
		}
	}
	return nil
}

// Index returns the offset of (col, row) within a band.
func (g *Grid) Index(col, row int) int {
	return row*g.Width + col
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	out := &Grid{Width: g.Width, Height: g.Height, Transform: g.Transform, Bands: make([][]float32, len(g.Bands))}
	for i, band := range g.Bands {
		out.Bands[i] = append([]float32(nil), band...)
	}
	return out
}

// Bounds returns the projected extent as minX, minY, maxX, maxY.
func (g *Grid) Bounds() (float64, float64, float64, float64) {
	x0 := g.Transform.OriginX
	x1 := x0 + float64(g.Width)*g.Transform.PixelWidth
	y0 := g.Transform.OriginY
	y1 := y0 + float64(g.Height)*g.Transform.PixelHeight
	return min(x0, x1), min(y0, y1), max(x0, x1), max(y0, y1)
}
