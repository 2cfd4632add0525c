// Package phenology loads ground-truth growth-stage observations.
//
// Sources are tables with Name, Date, and BBCH columns, one observation per
// row. A row with an empty Name continues the previous field, matching how
// field surveys are usually exported.
package phenology

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"agriref/internal/services"
)

// Observations maps a field number to its dated BBCH codes.
type Observations map[string]map[string]int

// Lookup returns the BBCH code of field on date.
func (o Observations) Lookup(field, date string) (int, bool) {
	v, ok := o[field][date]
	return v, ok
}

// Field returns the observations of one field, never nil.
func (o Observations) Field(field string) map[string]int {
	if days, ok := o[field]; ok {
		return days
	}
	return map[string]int{}
}

func (o Observations) add(field, date string, bbch int) {
	days, ok := o[field]
	if !ok {
		days = make(map[string]int)
		o[field] = days
	}
	days[date] = bbch
}

// Load reads a CSV or XLSX file chosen by extension. encoding applies to
// CSV only.
func Load(path, encoding string) (Observations, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return LoadXLSX(path)
	case ".csv", ".txt":
		return LoadCSV(path, encoding)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "phenology", "load", fmt.Sprintf("unsupported file type %q", filepath.Ext(path)), nil)
	}
}

type columns struct {
	name, date, bbch int
}

func locateColumns(header []string) (columns, error) {
	cols := columns{name: -1, date: -1, bbch: -1}
	for i, raw := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))) {
		case "name", "field", "field_id":
			if cols.name < 0 {
				cols.name = i
			}
		case "date", "bdate":
			if cols.date < 0 {
				cols.date = i
			}
		case "bbch", "bbch_phase":
			if cols.bbch < 0 {
				cols.bbch = i
			}
		}
	}
	if cols.name < 0 || cols.date < 0 || cols.bbch < 0 {
		return cols, services.Wrap(services.ErrValidation, "phenology", "read header", "expected Name, Date and BBCH columns", nil)
	}
	return cols, nil
}

// collect turns table rows (header first) into observations.
func collect(rows [][]string) (Observations, error) {
	out := Observations{}
	if len(rows) == 0 {
		return out, nil
	}
	cols, err := locateColumns(rows[0])
	if err != nil {
		return nil, err
	}
	current := ""
	for i, row := range rows[1:] {
		line := i + 2
		if name := strings.TrimSpace(cell(row, cols.name)); name != "" {
			current = normalizeName(name)
		}
		rawDate := strings.TrimSpace(cell(row, cols.date))
		rawBBCH := strings.TrimSpace(cell(row, cols.bbch))
		if rawDate == "" || rawBBCH == "" {
			continue
		}
		if current == "" {
			return nil, services.Wrap(services.ErrValidation, "phenology", "parse row", fmt.Sprintf("line %d: observation before any field name", line), nil)
		}
		date, err := ParseDate(rawDate)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "phenology", "parse row", fmt.Sprintf("line %d", line), err)
		}
		bbch, err := parseBBCH(rawBBCH)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "phenology", "parse row", fmt.Sprintf("line %d", line), err)
		}
		out.add(current, date, bbch)
	}
	return out, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// normalizeName drops a trailing ".0" that spreadsheets add to numeric
// field numbers.
func normalizeName(name string) string {
	if f, err := strconv.ParseFloat(name, 64); err == nil && f == math.Trunc(f) && !strings.ContainsAny(name, "eE") {
		return strconv.FormatInt(int64(f), 10)
	}
	return name
}

func parseBBCH(raw string) (int, error) {
	f, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil {
		return 0, fmt.Errorf("bbch %q: %w", raw, err)
	}
	if f < -1 || f > 99 {
		return 0, fmt.Errorf("bbch %q out of range", raw)
	}
	return int(f), nil
}

var dateLayouts = []string{
	time.DateOnly,
	"20060102",
	"02.01.2006",
	"2.1.2006",
	"02/01/2006",
	"2/1/2006",
	"02/01/06",
	"2006/01/02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate accepts the date layouts found in survey exports and returns an
// ISO date. Day-first layouts win over month-first ones.
func ParseDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(time.DateOnly), nil
		}
	}
	return "", fmt.Errorf("unrecognized date %q", raw)
}
