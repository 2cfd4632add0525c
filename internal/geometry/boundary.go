// Package geometry loads parcel boundaries from GeoJSON and answers the
// planar questions the pipeline asks of them: area, centroid, extent, and
// whether a raster cell centre lies inside.
package geometry

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/xy"

	"agriref/internal/services"
)

// Boundary is a single parcel polygon in a projected CRS plus the GeoJSON
// properties it was loaded with.
type Boundary struct {
	Polygon    *geom.Polygon
	Properties map[string]any
}

// Load reads a boundary from a GeoJSON file.
func Load(path string) (*Boundary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "geometry", "read boundary", path, err)
	}
	b, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// Parse decodes a GeoJSON Feature, bare Geometry, or FeatureCollection
// holding exactly one feature. The geometry must be a Polygon or a
// MultiPolygon with a single member.
func Parse(data []byte) (*Boundary, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, invalid("decode geojson", err)
	}

	var (
		g     geom.T
		props map[string]any
	)
	switch probe.Type {
	case "FeatureCollection":
		var fc struct {
			Features []json.RawMessage `json:"features"`
		}
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, invalid("decode feature collection", err)
		}
		if len(fc.Features) != 1 {
			return nil, invalid(fmt.Sprintf("expected one feature, found %d", len(fc.Features)), nil)
		}
		var f geojson.Feature
		if err := json.Unmarshal(fc.Features[0], &f); err != nil {
			return nil, invalid("decode feature", err)
		}
		g, props = f.Geometry, f.Properties
	case "Feature":
		var f geojson.Feature
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, invalid("decode feature", err)
		}
		g, props = f.Geometry, f.Properties
	default:
		if err := geojson.Unmarshal(data, &g); err != nil {
			return nil, invalid("decode geometry", err)
		}
	}

	poly, err := asPolygon(g)
	if err != nil {
		return nil, err
	}
	if props == nil {
		props = map[string]any{}
	}
	return &Boundary{Polygon: poly, Properties: props}, nil
}

func asPolygon(g geom.T) (*geom.Polygon, error) {
	var poly *geom.Polygon
	switch v := g.(type) {
	case *geom.Polygon:
		poly = v
	case *geom.MultiPolygon:
		if v.NumPolygons() != 1 {
			return nil, invalid(fmt.Sprintf("multipolygon with %d members", v.NumPolygons()), nil)
		}
		poly = v.Polygon(0)
	case nil:
		return nil, invalid("missing geometry", nil)
	default:
		return nil, invalid(fmt.Sprintf("unsupported geometry %T", g), nil)
	}
	if poly.NumLinearRings() == 0 || poly.LinearRing(0).NumCoords() < 4 {
		return nil, invalid("outer ring needs at least four positions", nil)
	}
	for _, c := range poly.LinearRing(0).Coords() {
		if math.IsNaN(c.X()) || math.IsNaN(c.Y()) || math.IsInf(c.X(), 0) || math.IsInf(c.Y(), 0) {
			return nil, invalid("non-finite coordinate", nil)
		}
	}
	return poly, nil
}

func invalid(message string, err error) error {
	return services.Wrap(services.ErrGeometry, "geometry", "parse boundary", message, err)
}

// Area returns the planar area of the outer ring in squared CRS units.
// Holes are not subtracted.
func (b *Boundary) Area() float64 {
	return b.Polygon.LinearRing(0).Area()
}

// Centroid returns the area-weighted centroid of the polygon.
func (b *Boundary) Centroid() (float64, float64, error) {
	c, err := xy.Centroid(b.Polygon)
	if err != nil {
		return 0, 0, err
	}
	return c.X(), c.Y(), nil
}

// Bounds returns the extent as minX, minY, maxX, maxY.
func (b *Boundary) Bounds() (float64, float64, float64, float64) {
	bounds := b.Polygon.Bounds()
	return bounds.Min(0), bounds.Min(1), bounds.Max(0), bounds.Max(1)
}

// OuterRing returns the outer ring positions as x, y pairs in file order.
func (b *Boundary) OuterRing() [][2]float64 {
	coords := b.Polygon.LinearRing(0).Coords()
	out := make([][2]float64, len(coords))
	for i, c := range coords {
		out[i] = [2]float64{c.X(), c.Y()}
	}
	return out
}

// GeoJSON encodes the polygon as a GeoJSON geometry.
func (b *Boundary) GeoJSON() ([]byte, error) {
	return geojson.Marshal(b.Polygon)
}

// Year returns the four-digit "Year" property, if the boundary carries one.
// Numeric values such as 2023.0 are accepted.
func (b *Boundary) Year() (string, bool) {
	raw, ok := b.Properties["Year"]
	if !ok || raw == nil {
		return "", false
	}
	var year int
	switch v := raw.(type) {
	case float64:
		year = int(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return "", false
		}
		year = int(f)
	default:
		return "", false
	}
	if year <= 0 || year > 9999 {
		return "", false
	}
	return fmt.Sprintf("%04d", year), true
}
