package gapfill

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"agriref/internal/config"
	"agriref/internal/logging"
	"agriref/internal/raster"
)

func writeSource(t *testing.T, dir string) string {
	t.Helper()
	g := planeGrid(6, 6)
	g.Bands[0][g.Index(2, 2)] = 0
	g.Bands[0][g.Index(3, 3)] = 0
	path := filepath.Join(dir, "S2_20180102.agr")
	if err := raster.WriteFile(path, g); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestInterpolateIsMemoized(t *testing.T) {
	src := writeSource(t, t.TempDir())
	cache := t.TempDir()
	interp := New(cache, Filler{}, time.Second, logging.NewNop())

	first, err := interp.Interpolate(context.Background(), src, 0)
	if err != nil {
		t.Fatalf("Interpolate: %v", err)
	}
	if first.Cached {
		t.Fatal("first call should compute")
	}
	if filepath.Base(first.Path) != "S2_20180102_interp.agr" || filepath.Dir(filepath.Dir(first.Path)) != cache {
		t.Fatalf("output path: got %q want <cache>/<key>/S2_20180102_interp.agr", first.Path)
	}
	if first.Path != interp.OutputPath(src) {
		t.Fatalf("output path: got %q want %q", first.Path, interp.OutputPath(src))
	}
	info, err := os.Stat(first.Path)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}

	second, err := interp.Interpolate(context.Background(), src, 0)
	if err != nil {
		t.Fatalf("Interpolate again: %v", err)
	}
	if !second.Cached || second.Path != first.Path {
		t.Fatalf("expected cache hit at same path, got %+v", second)
	}
	if interp.Computed() != 1 {
		t.Fatalf("expected one computation, got %d", interp.Computed())
	}
	again, err := os.Stat(second.Path)
	if err != nil {
		t.Fatal(err)
	}
	if !again.ModTime().Equal(info.ModTime()) {
		t.Fatal("cached output was rewritten")
	}

	filled, err := raster.ReadFile(first.Path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if v := filled.Bands[0][filled.Index(2, 2)]; v != float32(2*2+3*2+10) {
		t.Fatalf("filled value: got %v", v)
	}

	stats, err := interp.Stats()
	if err != nil || stats.Entries != 1 || stats.TotalBytes == 0 {
		t.Fatalf("stats: %+v, %v", stats, err)
	}
}

func TestInterpolateKeepsSameNamedSourcesApart(t *testing.T) {
	root := t.TempDir()
	dirA := filepath.Join(root, "ZEPP_1_WW_inBuf5m_2018", "s2")
	dirB := filepath.Join(root, "ZEPP_2_WW_inBuf5m_2018", "s2")
	for _, dir := range []string{dirA, dirB} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	srcA := writeSource(t, dirA)

	flat := raster.New(6, 6, 1, pixelTransform)
	for i := range flat.Bands[0] {
		flat.Bands[0][i] = 500
	}
	flat.Bands[0][flat.Index(2, 2)] = 0
	srcB := filepath.Join(dirB, filepath.Base(srcA))
	if err := raster.WriteFile(srcB, flat); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	interp := New(t.TempDir(), Filler{}, time.Second, logging.NewNop())
	outA, err := interp.Interpolate(context.Background(), srcA, 0)
	if err != nil {
		t.Fatalf("Interpolate A: %v", err)
	}
	outB, err := interp.Interpolate(context.Background(), srcB, 0)
	if err != nil {
		t.Fatalf("Interpolate B: %v", err)
	}
	if outB.Cached {
		t.Fatal("second source must not hit the first source's output")
	}
	if outA.Path == outB.Path {
		t.Fatalf("distinct sources share output %q", outA.Path)
	}
	if interp.Computed() != 2 {
		t.Fatalf("expected two computations, got %d", interp.Computed())
	}

	for _, tc := range []struct {
		path string
		want float32
	}{
		{outA.Path, 2*2 + 3*2 + 10},
		{outB.Path, 500},
	} {
		filled, err := raster.ReadFile(tc.path)
		if err != nil {
			t.Fatalf("ReadFile %s: %v", tc.path, err)
		}
		if got := filled.Bands[0][filled.Index(2, 2)]; got != tc.want {
			t.Fatalf("%s filled(2,2): got %v want %v", tc.path, got, tc.want)
		}
	}

	stats, err := interp.Stats()
	if err != nil || stats.Entries != 2 {
		t.Fatalf("stats: %+v, %v", stats, err)
	}
}

func TestOutputPathIsStableForRelativeSources(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	interp := New(t.TempDir(), Filler{}, time.Second, logging.NewNop())
	rel := interp.OutputPath(filepath.Join("s2", "S2_20180102.agr"))
	abs := interp.OutputPath(filepath.Join(dir, "s2", "S2_20180102.agr"))
	if rel != abs {
		t.Fatalf("relative and absolute source disagree: %q vs %q", rel, abs)
	}
}

func TestInterpolateWaitsForHeldLock(t *testing.T) {
	src := writeSource(t, t.TempDir())
	interp := New(t.TempDir(), Filler{}, 100*time.Millisecond, logging.NewNop())

	holder := interp.OutputPath(src) + ".lock"
	if err := os.MkdirAll(filepath.Dir(holder), 0o755); err != nil {
		t.Fatal(err)
	}
	lock := newTestLock(t, holder)
	defer lock()

	if _, err := interp.Interpolate(context.Background(), src, 0); err == nil {
		t.Fatal("expected lock timeout")
	}
	if interp.Computed() != 0 {
		t.Fatal("nothing should have been computed")
	}
}

func TestNewInterpolatorDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Gapfill.Enabled = false
	interp := NewInterpolator(&cfg, nil)
	if interp != nil {
		t.Fatal("expected nil interpolator when disabled")
	}
	if _, err := interp.Interpolate(context.Background(), "x.agr", 0); err == nil {
		t.Fatal("expected error from disabled interpolator")
	}
	if stats, err := interp.Stats(); err != nil || stats.Entries != 0 {
		t.Fatalf("nil stats: %+v, %v", stats, err)
	}
}
