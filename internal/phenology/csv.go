package phenology

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"agriref/internal/services"
)

// LoadCSV reads a comma or semicolon separated file in the given encoding
// (utf-8, windows-1252 or iso-8859-1).
func LoadCSV(path, encoding string) (Observations, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "phenology", "open", path, err)
	}
	defer f.Close()
	obs, err := ParseCSV(f, encoding)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return obs, nil
}

// ParseCSV reads observations from r.
func ParseCSV(r io.Reader, encoding string) (Observations, error) {
	decoded, err := decode(r, encoding)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(decoded)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "phenology", "read csv", "", err)
	}
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.FieldsPerRecord = -1
	reader.Comma = sniffDelimiter(string(data))
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "phenology", "parse csv", "", err)
	}
	return collect(rows)
}

func decode(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8":
		return r, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(r), nil
	case "iso-8859-1", "latin1":
		return charmap.ISO8859_1.NewDecoder().Reader(r), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "phenology", "decode", fmt.Sprintf("unsupported encoding %q", encoding), nil)
	}
}

// sniffDelimiter picks ';' when the header uses it, as German spreadsheet
// exports do.
func sniffDelimiter(data string) rune {
	header, _, _ := strings.Cut(data, "\n")
	if strings.Count(header, ";") > strings.Count(header, ",") {
		return ';'
	}
	return ','
}
