package validity

import (
	"math"
	"path/filepath"
	"strconv"
	"testing"

	"agriref/internal/geometry"
	"agriref/internal/raster"
	"agriref/internal/sensor"
)

// 10x10 grid of 1m cells anchored at (0, 10), north-up.
var unitTransform = raster.Transform{OriginX: 0, OriginY: 10, PixelWidth: 1, PixelHeight: -1}

func boundary(t *testing.T, minX, minY, maxX, maxY float64) *geometry.Boundary {
	t.Helper()
	data := []byte(`{"type":"Polygon","coordinates":[[[` +
		ftoa(minX) + `,` + ftoa(minY) + `],[` + ftoa(maxX) + `,` + ftoa(minY) + `],[` +
		ftoa(maxX) + `,` + ftoa(maxY) + `],[` + ftoa(minX) + `,` + ftoa(maxY) + `],[` +
		ftoa(minX) + `,` + ftoa(minY) + `]]]}`)
	b, err := geometry.Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return b
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func gridWithValid(valid int, sentinel float32) *raster.Grid {
	g := raster.New(10, 10, 1, unitTransform)
	for i := range g.Bands[0] {
		if i < valid {
			g.Bands[0][i] = 1
		} else {
			g.Bands[0][i] = sentinel
		}
	}
	return g
}

func TestMaskUsesCellCentres(t *testing.T) {
	b := boundary(t, 0, 0, 10, 10)
	m := NewMask(b, 10, 10, unitTransform)
	if m.Count() != 100 {
		t.Fatalf("full mask: got %d want 100", m.Count())
	}
	half := boundary(t, 0, 0, 5.2, 10)
	if got := NewMask(half, 10, 10, unitTransform).Count(); got != 50 {
		t.Fatalf("half mask: got %d want 50", got)
	}
}

func TestThresholdIsStrict(t *testing.T) {
	b := boundary(t, 0, 0, 10, 10)
	gate := NewGate(0.5, sensor.DefaultSentinels())

	res, err := gate.CheckGrid(b, gridWithValid(51, 0), sensor.Optical)
	if err != nil {
		t.Fatalf("CheckGrid: %v", err)
	}
	if !res.Valid || res.ValidPixels != 51 || res.TotalPixels != 100 {
		t.Fatalf("51%%: got %+v", res)
	}

	res, err = gate.CheckGrid(b, gridWithValid(50, 0), sensor.Optical)
	if err != nil {
		t.Fatalf("CheckGrid: %v", err)
	}
	if res.Valid {
		t.Fatalf("50%% must be invalid, got %+v", res)
	}
	if res.Fraction() != 0.5 {
		t.Fatalf("fraction: got %v", res.Fraction())
	}
}

func TestZeroTotalIsInvalid(t *testing.T) {
	outside := boundary(t, 100, 100, 110, 110)
	res, err := NewGate(0.5, sensor.DefaultSentinels()).CheckGrid(outside, gridWithValid(100, 0), sensor.Optical)
	if err != nil {
		t.Fatalf("CheckGrid: %v", err)
	}
	if res.Valid || res.TotalPixels != 0 || res.ValidPixels != 0 {
		t.Fatalf("expected empty invalid result, got %+v", res)
	}
	if res.Fraction() != 0 {
		t.Fatalf("fraction: got %v", res.Fraction())
	}
}

func TestRadarSentinelAndNaN(t *testing.T) {
	b := boundary(t, 0, 0, 10, 10)
	radar := float32(sensor.RadarSentinel)
	g := gridWithValid(60, radar)
	for i := 0; i < 15; i++ {
		g.Bands[0][i] = float32(math.NaN())
	}
	res, err := NewGate(0.5, sensor.DefaultSentinels()).CheckGrid(b, g, sensor.Backscatter)
	if err != nil {
		t.Fatalf("CheckGrid: %v", err)
	}
	if res.ValidPixels != 45 || res.Valid {
		t.Fatalf("expected 45 valid and invalid, got %+v", res)
	}
	// A zero is data for radar modalities.
	zeros := gridWithValid(0, 0)
	res, _ = NewGate(0.5, sensor.DefaultSentinels()).CheckGrid(b, zeros, sensor.Coherence)
	if !res.Valid {
		t.Fatalf("zeros should be valid radar data, got %+v", res)
	}
}

func TestBestBandWins(t *testing.T) {
	b := boundary(t, 0, 0, 10, 10)
	g := raster.New(10, 10, 2, unitTransform)
	for i := range g.Bands[0] {
		if i < 30 {
			g.Bands[0][i] = 5
		}
		if i < 70 {
			g.Bands[1][i] = 5
		}
	}
	res, err := NewGate(0.5, sensor.DefaultSentinels()).CheckGrid(b, g, sensor.Optical)
	if err != nil {
		t.Fatalf("CheckGrid: %v", err)
	}
	if res.ValidPixels != 70 || !res.Valid {
		t.Fatalf("expected best band 70, got %+v", res)
	}
}

func TestCheckFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bsc_20180102.agr")
	if err := raster.WriteFile(path, gridWithValid(60, float32(sensor.RadarSentinel))); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	gate := NewGate(DefaultThreshold, sensor.DefaultSentinels())
	res, err := gate.CheckFile(boundary(t, 0, 0, 10, 10), path, sensor.Backscatter)
	if err != nil {
		t.Fatalf("CheckFile: %v", err)
	}
	if !res.Valid || res.ValidPixels != 60 {
		t.Fatalf("got %+v", res)
	}
	if _, err := gate.CheckFile(boundary(t, 0, 0, 10, 10), filepath.Join(t.TempDir(), "x.agr"), sensor.Optical); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestNewGateUsesThresholdAsGiven(t *testing.T) {
	b := boundary(t, 0, 0, 10, 10)
	g := gridWithValid(60, 0)
	for _, tc := range []struct {
		threshold float64
		want      bool
	}{
		{0.5, true},
		{0.6, false},
		{0.7, false},
		{0.01, true},
	} {
		res, err := NewGate(tc.threshold, sensor.DefaultSentinels()).CheckGrid(b, g, sensor.Optical)
		if err != nil {
			t.Fatalf("threshold %v: %v", tc.threshold, err)
		}
		if res.Valid != tc.want {
			t.Fatalf("threshold %v: got valid=%v want %v", tc.threshold, res.Valid, tc.want)
		}
	}
	if got := NewGate(0, sensor.DefaultSentinels()).Threshold; got != 0 {
		t.Fatalf("zero threshold replaced with %v", got)
	}
}
