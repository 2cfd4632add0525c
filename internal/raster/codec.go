package raster

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"agriref/internal/fileutil"
)

// Codec reads and writes one raster file format.
type Codec interface {
	// Extension is the lower-case file extension including the dot.
	Extension() string
	Decode(r io.Reader) (*Grid, error)
	Encode(w io.Writer, g *Grid) error
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Codec{}
)

// Register makes a codec available for its extension, replacing any codec
// already registered for it.
func Register(c Codec) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(c.Extension())] = c
}

// CodecFor returns the codec registered for the extension of path.
func CodecFor(path string) (Codec, error) {
	ext := strings.ToLower(filepath.Ext(path))
	registryMu.RLock()
	c, ok := registry[ext]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("raster: no codec for extension %q", ext)
	}
	return c, nil
}

// Extensions lists the registered extensions in sorted order.
func Extensions() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for ext := range registry {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// ReadFile decodes the raster at path.
func ReadFile(path string) (*Grid, error) {
	c, err := CodecFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	g, err := c.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return g, nil
}

// WriteFile encodes g to path atomically.
func WriteFile(path string, g *Grid) error {
	c, err := CodecFor(path)
	if err != nil {
		return err
	}
	if err := g.Validate(); err != nil {
		return err
	}
	return fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return c.Encode(w, g)
	})
}

func init() {
	Register(AGR{})
}
