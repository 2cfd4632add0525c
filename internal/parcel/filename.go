package parcel

import (
	"fmt"
	"regexp"
	"strconv"
	"sync"
)

// BoundaryName is the metadata encoded in a boundary file name:
// <prefix>_<field>_<crop>_inBuf<dist>m[_<year>].geojson
type BoundaryName struct {
	FieldNumber string
	CropType    string
	BufferDist  int
	// Year is empty when the file name carries none.
	Year string
}

var (
	patternMu    sync.Mutex
	patternCache = map[string]*regexp.Regexp{}
)

func boundaryPattern(prefix string) *regexp.Regexp {
	patternMu.Lock()
	defer patternMu.Unlock()
	if re, ok := patternCache[prefix]; ok {
		return re
	}
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `_(\d+)_([A-Za-z-]+)_inBuf(\d+)m(?:_(\d{4}))?\.(?:geojson|json)$`)
	patternCache[prefix] = re
	return re
}

// ParseBoundaryName extracts metadata from a boundary file base name.
// It reports false for names that do not follow the convention.
func ParseBoundaryName(prefix, name string) (BoundaryName, bool) {
	if prefix == "" {
		prefix = DefaultOrigin
	}
	m := boundaryPattern(prefix).FindStringSubmatch(name)
	if m == nil {
		return BoundaryName{}, false
	}
	dist, err := strconv.Atoi(m[3])
	if err != nil {
		return BoundaryName{}, false
	}
	return BoundaryName{FieldNumber: m[1], CropType: m[2], BufferDist: dist, Year: m[4]}, true
}

// FileName renders the canonical file name for the metadata.
func (n BoundaryName) FileName(prefix string) string {
	if prefix == "" {
		prefix = DefaultOrigin
	}
	name := fmt.Sprintf("%s_%s_%s_inBuf%dm", prefix, n.FieldNumber, n.CropType, n.BufferDist)
	if n.Year != "" {
		name += "_" + n.Year
	}
	return name + ".geojson"
}
