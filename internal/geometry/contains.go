package geometry

import geom "github.com/twpayne/go-geom"

// Contains reports whether (x, y) lies inside the polygon, exterior minus
// holes, using the even-odd rule. Points exactly on an edge may fall either
// way.
func (b *Boundary) Contains(x, y float64) bool {
	if !ringContains(b.Polygon.LinearRing(0), x, y) {
		return false
	}
	for i := 1; i < b.Polygon.NumLinearRings(); i++ {
		if ringContains(b.Polygon.LinearRing(i), x, y) {
			return false
		}
	}
	return true
}

func ringContains(ring *geom.LinearRing, x, y float64) bool {
	flat := ring.FlatCoords()
	stride := ring.Stride()
	n := len(flat) / stride
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := flat[i*stride], flat[i*stride+1]
		xj, yj := flat[j*stride], flat[j*stride+1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}
