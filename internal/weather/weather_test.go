package weather

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"agriref/internal/services"
)

func intValue(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func TestParseSeries(t *testing.T) {
	input := "2018-01-01,2018-01-02,2018-01-03\n" +
		"0.0,4.7,\n" +
		"3.9,-1.6,2\n" +
		"-2,-5,0\n" +
		"8,3.2,6\n"
	s, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	day, ok := s.Lookup("2018-01-02")
	if !ok {
		t.Fatal("missing 2018-01-02")
	}
	if intValue(day.Precip) != 4 || intValue(day.TempMean) != -1 || intValue(day.TempMin) != -5 || intValue(day.TempMax) != 3 {
		t.Fatalf("unexpected day: precip=%v mean=%v min=%v max=%v", intValue(day.Precip), intValue(day.TempMean), intValue(day.TempMin), intValue(day.TempMax))
	}
	third := s["2018-01-03"]
	if third.Precip != nil {
		t.Fatalf("expected null precip, got %v", *third.Precip)
	}
	if intValue(third.TempMean) != 2 {
		t.Fatalf("temp mean: got %v", intValue(third.TempMean))
	}
}

func TestParseTwoRowSeries(t *testing.T) {
	s, err := Parse(strings.NewReader("\ufeff2020-06-01\n1.2\n17.8\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	day := s["2020-06-01"]
	if intValue(day.Precip) != 1 || intValue(day.TempMean) != 17 || day.TempMin != nil || day.TempMax != nil {
		t.Fatalf("unexpected day: %+v", day)
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	if _, err := Parse(strings.NewReader("precip,temp\n1,2\n")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("bad header: got %v", err)
	}
	if _, err := Parse(strings.NewReader("2020-01-01\nabc\n")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("bad value: got %v", err)
	}
	s, err := Parse(strings.NewReader(""))
	if err != nil || len(s) != 0 {
		t.Fatalf("empty input: %v, %v", s, err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ZEPP_1_DWD.csv")
	if err := os.WriteFile(path, []byte("2018-01-01\n5\n10\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if intValue(s["2018-01-01"].TempMean) != 10 {
		t.Fatalf("unexpected series: %+v", s)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.csv")); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("missing file: got %v", err)
	}
}
