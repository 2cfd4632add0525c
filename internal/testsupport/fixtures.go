package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"agriref/internal/raster"
)

// Square returns a closed counter-clockwise ring spanning the given bounds.
func Square(minX, minY, maxX, maxY float64) [][2]float64 {
	return [][2]float64{
		{minX, minY},
		{maxX, minY},
		{maxX, maxY},
		{minX, maxY},
		{minX, minY},
	}
}

// WriteBoundary writes a GeoJSON Feature with a single-ring polygon to
// dir/name and returns its path. Properties may be nil.
func WriteBoundary(t testing.TB, dir, name string, ring [][2]float64, properties map[string]any) string {
	t.Helper()

	coords := make([][]float64, len(ring))
	for i, c := range ring {
		coords[i] = []float64{c[0], c[1]}
	}
	if properties == nil {
		properties = map[string]any{}
	}
	feature := map[string]any{
		"type":       "Feature",
		"properties": properties,
		"geometry": map[string]any{
			"type":        "Polygon",
			"coordinates": [][][]float64{coords},
		},
	}
	data, err := json.Marshal(feature)
	if err != nil {
		t.Fatalf("marshal boundary: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write boundary %s: %v", path, err)
	}
	return path
}

// UnitTransform places a grid with 1x1 cells whose top-left corner is at
// (0, height), so cell centres line up with Square(0, 0, width, height).
func UnitTransform(height int) raster.Transform {
	return raster.Transform{OriginX: 0, OriginY: float64(height), PixelWidth: 1, PixelHeight: -1}
}

// CoverageGrid returns a single-band width x height grid in which the first
// valid cells (row-major) hold value and the rest hold sentinel.
func CoverageGrid(width, height, valid int, value, sentinel float32) *raster.Grid {
	g := raster.New(width, height, 1, UnitTransform(height))
	for i := range g.Bands[0] {
		if i < valid {
			g.Bands[0][i] = value
		} else {
			g.Bands[0][i] = sentinel
		}
	}
	return g
}

// WriteGrid encodes g to path with the codec matching its extension.
func WriteGrid(t testing.TB, path string, g *raster.Grid) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := raster.WriteFile(path, g); err != nil {
		t.Fatalf("write grid %s: %v", path, err)
	}
	return path
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(t testing.TB, path string, data []byte) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
