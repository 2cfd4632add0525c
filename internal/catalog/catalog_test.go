package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"agriref/internal/sensor"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestExtractDate(t *testing.T) {
	cases := []struct {
		name string
		want string
		ok   bool
	}{
		{"S1A_IW_20230501_T32UMA_bsc.agr", "2023-05-01", true},
		{"coh_20180102.agr", "2018-01-02", true},
		{"S2_12345678_20190101.agr", "2019-01-01", true},
		{"20210615_20210627_coh.agr", "2021-06-15", true},
		{"S2_2023050.agr", "", false},
		{"S2_19990101.agr", "", false},
		{"readme.txt", "", false},
	}
	for _, tc := range cases {
		got, ok := ExtractDate(tc.name)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ExtractDate(%q): got %q,%v want %q,%v", tc.name, got, ok, tc.want, tc.ok)
		}
	}
}

func TestBuildSkipsSidecarsAndUndated(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"S2_20230502.agr",
		"S2_20230501.agr",
		"S2_20230501.agr.aux.xml",
		"notes.txt",
	)
	if err := os.Mkdir(filepath.Join(dir, "S2_20230503"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := Build(dir)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := Catalog{
		"2023-05-01": filepath.Join(dir, "S2_20230501.agr"),
		"2023-05-02": filepath.Join(dir, "S2_20230502.agr"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("catalog mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"2023-05-01", "2023-05-02"}, got.Dates()); diff != "" {
		t.Fatalf("dates mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildDuplicateDateLaterWins(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "S2_20230501_a.agr", "S2_20230501_b.agr")
	got, err := Build(dir)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got["2023-05-01"] != filepath.Join(dir, "S2_20230501_b.agr") {
		t.Fatalf("expected later file to win, got %q", got["2023-05-01"])
	}
}

func TestBuildEmptyAndMissing(t *testing.T) {
	got, err := Build(t.TempDir())
	if err != nil || len(got) != 0 {
		t.Fatalf("empty dir: got %v, %v", got, err)
	}
	got, err = Build(filepath.Join(t.TempDir(), "absent"))
	if err != nil || len(got) != 0 {
		t.Fatalf("missing dir: got %v, %v", got, err)
	}
	again, err := Build(filepath.Join(t.TempDir(), "absent"))
	if err != nil || !cmp.Equal(got, again) {
		t.Fatalf("not idempotent: %v vs %v (%v)", got, again, err)
	}
}

func TestBuildSet(t *testing.T) {
	bsc := t.TempDir()
	s2 := t.TempDir()
	touch(t, bsc, "bsc_20180102.agr")
	touch(t, s2, "S2_20180103.agr")

	set, err := BuildSet(context.Background(), map[sensor.Modality]string{
		sensor.Backscatter: bsc,
		sensor.Optical:     s2,
	})
	if err != nil {
		t.Fatalf("BuildSet: %v", err)
	}
	if len(set) != 3 {
		t.Fatalf("expected three catalogs, got %d", len(set))
	}
	if !set.Has("2018-01-02") || !set.Has("2018-01-03") || set.Has("2018-01-01") {
		t.Fatalf("unexpected presence: %v", set)
	}
	if _, ok := set.Lookup(sensor.Coherence, "2018-01-02"); ok {
		t.Fatal("coherence should be empty")
	}
}

func TestBuildSetHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := BuildSet(ctx, nil); err == nil {
		t.Fatal("expected cancellation error")
	}
}
