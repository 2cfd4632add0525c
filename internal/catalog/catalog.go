// Package catalog indexes per-modality artifact directories by observation
// date.
package catalog

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"agriref/internal/sensor"
	"agriref/internal/services"
)

// SidecarSuffix marks auxiliary files written next to rasters.
const SidecarSuffix = "aux.xml"

// Catalog maps ISO dates (YYYY-MM-DD) to artifact paths.
type Catalog map[string]string

// Lookup returns the artifact for date.
func (c Catalog) Lookup(date string) (string, bool) {
	path, ok := c[date]
	return path, ok
}

// Dates returns the catalogued dates in ascending order.
func (c Catalog) Dates() []string {
	dates := make([]string, 0, len(c))
	for date := range c {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}

// ExtractDate returns the first underscore-separated segment of the file
// name (without extension) that is eight digits starting with "20",
// formatted as YYYY-MM-DD.
func ExtractDate(name string) (string, bool) {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	for _, part := range strings.Split(base, "_") {
		if len(part) != 8 || !strings.HasPrefix(part, "20") || !allDigits(part) {
			continue
		}
		return part[:4] + "-" + part[4:6] + "-" + part[6:], true
	}
	return "", false
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Build indexes the files directly inside dir. Sidecar files and names
// without a date are skipped; when two files share a date the lexically
// later one wins. A directory that does not exist yields an empty catalog.
func Build(dir string) (Catalog, error) {
	out := Catalog{}
	if strings.TrimSpace(dir) == "" {
		return out, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return out, nil
		}
		return nil, services.Wrap(services.ErrConfiguration, "catalog", "list artifacts", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), SidecarSuffix) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		if date, ok := ExtractDate(name); ok {
			out[date] = filepath.Join(dir, name)
		}
	}
	return out, nil
}

// Set holds one catalog per modality.
type Set map[sensor.Modality]Catalog

// Has reports whether any modality has an artifact for date.
func (s Set) Has(date string) bool {
	for _, c := range s {
		if _, ok := c[date]; ok {
			return true
		}
	}
	return false
}

// Lookup returns the artifact of modality m for date.
func (s Set) Lookup(m sensor.Modality, date string) (string, bool) {
	return s[m].Lookup(date)
}

// BuildSet builds the catalogs for each modality directory concurrently.
// Modalities without a directory get an empty catalog.
func BuildSet(ctx context.Context, dirs map[sensor.Modality]string) (Set, error) {
	var mu sync.Mutex
	set := Set{}
	g, gCtx := errgroup.WithContext(ctx)
	for _, m := range sensor.All() {
		dir := dirs[m]
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			c, err := Build(dir)
			if err != nil {
				return err
			}
			mu.Lock()
			set[m] = c
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return set, nil
}
