// Package weather loads pre-fetched daily weather series.
//
// A series file is a CSV whose header row holds ISO dates and whose rows
// hold, in order, precipitation, mean temperature, and optionally minimum and
// maximum temperature. Empty cells are missing values.
package weather

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"agriref/internal/services"
)

// Day holds the weather of one date. Values are truncated toward zero.
type Day struct {
	Precip   *int
	TempMean *int
	TempMin  *int
	TempMax  *int
}

// Series maps ISO dates to weather.
type Series map[string]Day

// Lookup returns the weather of date.
func (s Series) Lookup(date string) (Day, bool) {
	d, ok := s[date]
	return d, ok
}

const (
	rowPrecip = iota
	rowTempMean
	rowTempMin
	rowTempMax
)

// Load reads a series file.
func Load(path string) (Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "weather", "open series", path, err)
	}
	defer f.Close()
	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse reads a series from r.
func Parse(r io.Reader) (Series, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Series{}, nil
		}
		return nil, services.Wrap(services.ErrValidation, "weather", "read header", "", err)
	}
	dates := make([]string, len(header))
	for i, raw := range header {
		date := strings.TrimPrefix(strings.TrimSpace(raw), "\ufeff")
		if _, err := time.Parse(time.DateOnly, date); err != nil {
			return nil, services.Wrap(services.ErrValidation, "weather", "parse header", fmt.Sprintf("column %d: %q is not a date", i+1, raw), nil)
		}
		dates[i] = date
	}

	series := make(Series, len(dates))
	for _, date := range dates {
		series[date] = Day{}
	}
	for row := 0; row <= rowTempMax; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "weather", "read row", strconv.Itoa(row+2), err)
		}
		for col, raw := range record {
			if col >= len(dates) {
				break
			}
			value, err := parseValue(raw)
			if err != nil {
				return nil, services.Wrap(services.ErrValidation, "weather", "parse value", fmt.Sprintf("row %d column %d", row+2, col+1), err)
			}
			day := series[dates[col]]
			switch row {
			case rowPrecip:
				day.Precip = value
			case rowTempMean:
				day.TempMean = value
			case rowTempMin:
				day.TempMin = value
			case rowTempMax:
				day.TempMax = value
			}
			series[dates[col]] = day
		}
	}
	return series, nil
}

func parseValue(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "nan") || strings.EqualFold(raw, "none") {
		return nil, nil
	}
	f, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, nil
	}
	v := int(math.Trunc(f))
	return &v, nil
}
