package parcel

import (
	"errors"
	"fmt"

	"agriref/internal/services"
)

// ErrUnknownParcel reports a field number and year with no dictionary entry.
var ErrUnknownParcel = fmt.Errorf("%w: unknown parcel", services.ErrNotFound)

// GeometryError reports a boundary that could not be turned into a parcel.
type GeometryError struct {
	Path string
	Err  error
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("parcel geometry %s: %v", e.Path, e.Err)
}

func (e *GeometryError) Unwrap() error { return e.Err }

// Is makes every GeometryError match services.ErrGeometry.
func (e *GeometryError) Is(target error) bool {
	return target == services.ErrGeometry
}

// IsGeometryError reports whether err wraps a GeometryError.
func IsGeometryError(err error) bool {
	var ge *GeometryError
	return errors.As(err, &ge)
}
