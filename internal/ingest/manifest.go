package ingest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"agriref/internal/sensor"
	"agriref/internal/services"
)

// Manifest describes one ingest job.
//
// Directory and file fields are templates: {name} expands to the boundary
// file name without extension, {field} to the field number, and {year} to
// the observation year. Relative paths resolve against the manifest file.
type Manifest struct {
	BoundaryDir string            `yaml:"boundary_dir"`
	Modalities  map[string]string `yaml:"modalities"`
	Weather     string            `yaml:"weather"`
	Phenology   string            `yaml:"phenology"`
	Start       string            `yaml:"start"`
	End         string            `yaml:"end"`
	Parcels     []ParcelJob       `yaml:"parcels"`

	dir string
}

// ParcelJob selects parcels by boundary path or field number and may
// override the job-level sources and range.
type ParcelJob struct {
	Field      string            `yaml:"field"`
	Modalities map[string]string `yaml:"modalities"`
	Weather    string            `yaml:"weather"`
	Start      string            `yaml:"start"`
	End        string            `yaml:"end"`
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "ingest", "read manifest", path, err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolve manifest dir: %w", err)
	}
	m.dir = abs
	return m, nil
}

// ParseManifest decodes a manifest. Unknown keys are rejected.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "ingest", "parse manifest", "", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if len(m.Modalities) == 0 {
		return services.Wrap(services.ErrConfiguration, "ingest", "manifest", "modalities must list at least one directory", nil)
	}
	if err := validateModalities(m.Modalities); err != nil {
		return err
	}
	if _, _, err := parseRange(m.Start, m.End); err != nil {
		return err
	}
	for i, job := range m.Parcels {
		if strings.TrimSpace(job.Field) == "" {
			return services.Wrap(services.ErrConfiguration, "ingest", "manifest", fmt.Sprintf("parcels[%d].field is required", i), nil)
		}
		if err := validateModalities(job.Modalities); err != nil {
			return err
		}
		if _, _, err := parseRange(job.Start, job.End); err != nil {
			return fmt.Errorf("parcels[%d]: %w", i, err)
		}
	}
	return nil
}

func validateModalities(dirs map[string]string) error {
	for name := range dirs {
		if _, err := sensor.Parse(name); err != nil {
			return services.Wrap(services.ErrConfiguration, "ingest", "manifest", "modalities", err)
		}
	}
	return nil
}

// parseRange parses optional start and end dates. Zero times mean unset.
func parseRange(start, end string) (time.Time, time.Time, error) {
	var s, e time.Time
	var err error
	if start = strings.TrimSpace(start); start != "" {
		if s, err = time.Parse(time.DateOnly, start); err != nil {
			return s, e, services.Wrap(services.ErrConfiguration, "ingest", "manifest", "start must be YYYY-MM-DD", err)
		}
	}
	if end = strings.TrimSpace(end); end != "" {
		if e, err = time.Parse(time.DateOnly, end); err != nil {
			return s, e, services.Wrap(services.ErrConfiguration, "ingest", "manifest", "end must be YYYY-MM-DD", err)
		}
	}
	if !s.IsZero() && !e.IsZero() && e.Before(s) {
		return s, e, services.Wrap(services.ErrConfiguration, "ingest", "manifest", "end is before start", nil)
	}
	return s, e, nil
}

// templateVars are the substitutions available to path templates.
type templateVars struct {
	Name  string
	Field string
	Year  string
}

func (m *Manifest) expand(template string, vars templateVars) string {
	template = strings.TrimSpace(template)
	if template == "" {
		return ""
	}
	out := strings.NewReplacer(
		"{name}", vars.Name,
		"{field}", vars.Field,
		"{year}", vars.Year,
	).Replace(template)
	if strings.HasPrefix(out, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			out = filepath.Join(home, strings.TrimPrefix(out, "~"))
		}
	}
	if !filepath.IsAbs(out) && m.dir != "" {
		out = filepath.Join(m.dir, out)
	}
	return filepath.Clean(out)
}

// modalityDirs merges job-level and parcel-level directories.
func (m *Manifest) modalityDirs(job *ParcelJob, vars templateVars) map[sensor.Modality]string {
	dirs := make(map[sensor.Modality]string, 3)
	apply := func(src map[string]string) {
		for name, tmpl := range src {
			mod, err := sensor.Parse(name)
			if err != nil {
				continue
			}
			dirs[mod] = m.expand(tmpl, vars)
		}
	}
	apply(m.Modalities)
	if job != nil {
		apply(job.Modalities)
	}
	return dirs
}

func (m *Manifest) weatherPath(job *ParcelJob, vars templateVars) string {
	if job != nil && strings.TrimSpace(job.Weather) != "" {
		return m.expand(job.Weather, vars)
	}
	return m.expand(m.Weather, vars)
}
