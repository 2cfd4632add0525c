package parcel

import (
	"errors"
	"math"
	"path/filepath"

	"agriref/internal/geometry"
	"agriref/internal/services"
)

// Parcel is a registered field boundary with its derived identity.
type Parcel struct {
	ID          int64
	FieldNumber string
	CropType    string
	BufferDist  int
	Year        string
	StartDate   string
	EndDate     string
	Area        float64
	Path        string
	Boundary    *geometry.Boundary
}

// Perennial reports whether the parcel is valid for every year.
func (p *Parcel) Perennial() bool {
	return p.Year == PerennialYear
}

// RoundedArea returns the area in whole square metres.
func (p *Parcel) RoundedArea() int64 {
	return int64(math.Round(p.Area))
}

// Deriver turns boundary files into parcels.
type Deriver struct {
	Origin string
	Prefix string
}

// NewDeriver returns a Deriver with the given origin tag and file prefix.
// Empty values fall back to DefaultOrigin.
func NewDeriver(origin, prefix string) Deriver {
	if origin == "" {
		origin = DefaultOrigin
	}
	if prefix == "" {
		prefix = DefaultOrigin
	}
	return Deriver{Origin: origin, Prefix: prefix}
}

// Load reads one boundary file whose name follows the naming convention.
// A name that does not match returns a validation error; a geometry that
// cannot be used returns a *GeometryError.
func (d Deriver) Load(path string) (*Parcel, error) {
	name, ok := ParseBoundaryName(d.Prefix, filepath.Base(path))
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "parcel", "parse boundary name", filepath.Base(path), nil)
	}
	boundary, err := geometry.Load(path)
	if err != nil {
		if errors.Is(err, services.ErrGeometry) {
			return nil, &GeometryError{Path: path, Err: err}
		}
		return nil, err
	}
	return d.FromBoundary(path, name, boundary)
}

// FromBoundary derives the parcel for an already loaded boundary.
func (d Deriver) FromBoundary(path string, name BoundaryName, boundary *geometry.Boundary) (*Parcel, error) {
	area := boundary.Area()
	if area <= 0 || math.IsNaN(area) {
		return nil, &GeometryError{Path: path, Err: errors.New("boundary has zero area")}
	}
	year := name.Year
	if year == "" {
		if prop, ok := boundary.Year(); ok {
			year = prop
		} else {
			year = PerennialYear
		}
	}
	start, end := ValidityRange(year)
	desc := Descriptor{
		Origin:     d.Origin,
		Ring:       boundary.OuterRing(),
		StartDate:  start,
		EndDate:    end,
		CropType:   name.CropType,
		BufferDist: name.BufferDist,
		Area:       area,
		Year:       year,
	}
	return &Parcel{
		ID:          desc.Identity(),
		FieldNumber: name.FieldNumber,
		CropType:    name.CropType,
		BufferDist:  name.BufferDist,
		Year:        year,
		StartDate:   start,
		EndDate:     end,
		Area:        area,
		Path:        path,
		Boundary:    boundary,
	}, nil
}
