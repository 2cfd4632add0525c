package main

import (
	"fmt"
	"strings"
	"testing"

	"agriref/internal/preflight"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Store", statusError, "unreachable", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Store:", "[ERROR] unreachable")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Store", statusOK, "ready", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestResultStatusLine(t *testing.T) {
	pass := resultStatusLine(preflight.Result{Name: "State directory", Passed: true, Detail: "/x (read/write ok)"}, statusError, false)
	if !strings.Contains(pass, "[OK] /x (read/write ok)") {
		t.Fatalf("unexpected pass line: %q", pass)
	}
	fail := resultStatusLine(preflight.Result{Name: "Boundary directory", Detail: "missing"}, statusWarn, false)
	if !strings.Contains(fail, "[WARN] missing") {
		t.Fatalf("unexpected fail line: %q", fail)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	var sb strings.Builder
	if shouldColorize(&sb) {
		t.Fatal("expected no color for non-file writer")
	}
}

func TestArtifactCell(t *testing.T) {
	valid, invalid := true, false
	cases := []struct {
		data  []byte
		valid *bool
		want  string
	}{
		{nil, nil, "-"},
		{make([]byte, 10), &valid, "10 B (valid)"},
		{make([]byte, 2048), &invalid, "2.0 KiB (invalid)"},
		{make([]byte, 3), nil, "3 B (?)"},
	}
	for _, tc := range cases {
		if got := artifactCell(tc.data, tc.valid); got != tc.want {
			t.Fatalf("artifactCell(%d bytes): got %q want %q", len(tc.data), got, tc.want)
		}
	}
}

func TestStatusPrinterSections(t *testing.T) {
	var sb strings.Builder
	p := newStatusPrinter(&sb)
	p.section("One")
	p.line("A", statusInfo, "x")
	p.section("Two")
	p.result(preflight.Result{Name: "B", Detail: "bad"}, statusError)
	p.flush(&sb)

	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	if len(lines) != 7 {
		t.Fatalf("expected 7 lines, got %d: %q", len(lines), lines)
	}
	if lines[0] != "== One ==" || lines[3] != "" || lines[4] != "== Two ==" {
		t.Fatalf("unexpected layout: %q", lines)
	}
	if !strings.Contains(lines[6], "[ERROR] bad") {
		t.Fatalf("unexpected result line: %q", lines[6])
	}
}

func TestStatusKindUnknownFallsBackToInfo(t *testing.T) {
	if got := statusKind(99).label(); got != "INFO" {
		t.Fatalf("unexpected label: %q", got)
	}
	if got := statusKind(99).paint("x", true); got != "x" {
		t.Fatalf("unknown kinds should not be colored, got %q", got)
	}
}
