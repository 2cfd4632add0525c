package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"agriref/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDirectoryAccess_Unconfigured(t *testing.T) {
	if result := CheckDirectoryReadable("test", ""); result.Passed || result.Detail != "not configured" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckFreeSpace("space", dir, 1); !result.Passed {
		t.Fatalf("expected pass with 1 byte minimum, got: %s", result.Detail)
	}
	if result := CheckFreeSpace("space", dir, ^uint64(0)); result.Passed {
		t.Fatal("expected failure with impossible minimum")
	}
	if result := CheckFreeSpace("space", filepath.Join(dir, "missing"), 1); result.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestFormatBytes(t *testing.T) {
	cases := map[uint64]string{
		512:       "512 B",
		2048:      "2.0 KiB",
		512 << 20: "512.0 MiB",
		3 << 30:   "3.0 GiB",
	}
	for n, want := range cases {
		if got := formatBytes(n); got != want {
			t.Fatalf("formatBytes(%d): got %q want %q", n, got, want)
		}
	}
}

func TestRunAllRespectsToggles(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithGapfillDisabled())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	cfg.Paths.BoundaryDir = ""

	results := RunAll(context.Background(), cfg)
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	if strings.Join(names, ",") != "State directory,State volume" {
		t.Fatalf("unexpected checks: %v", names)
	}
	if !results[0].Passed {
		t.Fatalf("unexpected state directory failure: %s", results[0].Detail)
	}
}

func TestRunAllReportsMissingBoundaryDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	for _, r := range RunAll(context.Background(), cfg) {
		switch r.Name {
		case "Boundary directory":
			if r.Passed {
				t.Fatal("expected missing boundary directory to fail")
			}
		case "State directory", "Interpolation cache":
			if !r.Passed {
				t.Fatalf("%s: unexpected failure: %s", r.Name, r.Detail)
			}
		}
	}
}

func TestRunAllNilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatalf("expected nil results, got %+v", results)
	}
}

func TestCheckStoreFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	result := CheckStoreFromConfig(context.Background(), cfg)
	if !result.Passed || !strings.Contains(result.Detail, "created on first run") {
		t.Fatalf("expected pending store to pass, got %+v", result)
	}

	testsupport.MustOpenStore(t, cfg)
	result = CheckStoreFromConfig(context.Background(), cfg)
	if !result.Passed || !strings.Contains(result.Detail, "schema v1") {
		t.Fatalf("expected healthy store, got %+v", result)
	}
}

func TestFailedFiltersPassing(t *testing.T) {
	results := []Result{{Name: "a", Passed: true}, {Name: "b"}}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "b" {
		t.Fatalf("unexpected failed results: %+v", failed)
	}
}
