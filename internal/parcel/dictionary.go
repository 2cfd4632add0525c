package parcel

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"agriref/internal/logging"
	"agriref/internal/services"
)

// Key addresses a dictionary entry.
type Key struct {
	FieldNumber string
	Year        string
}

// Dictionary maps external field numbers and years to identities.
type Dictionary struct {
	entries map[Key]int64
}

// NewDictionary returns an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{entries: make(map[Key]int64)}
}

// Add records the identity of p. A later parcel with the same key replaces
// the earlier one.
func (d *Dictionary) Add(p *Parcel) {
	d.entries[Key{FieldNumber: p.FieldNumber, Year: p.Year}] = p.ID
}

// Len returns the number of entries.
func (d *Dictionary) Len() int {
	return len(d.entries)
}

// Resolve returns the identity for a field number observed in year.
// The perennial entry is consulted first, then the year-specific entry.
func (d *Dictionary) Resolve(fieldNumber, year string) (int64, error) {
	if id, ok := d.entries[Key{FieldNumber: fieldNumber, Year: PerennialYear}]; ok {
		return id, nil
	}
	if id, ok := d.entries[Key{FieldNumber: fieldNumber, Year: year}]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("%w: field %s year %s", ErrUnknownParcel, fieldNumber, year)
}

// BuildDictionary derives every boundary in dir in sorted file order.
// Files that do not follow the naming convention are ignored. Boundaries
// with unusable geometry are logged and skipped.
func BuildDictionary(ctx context.Context, dir string, deriver Deriver, logger *slog.Logger) (*Dictionary, []*Parcel, error) {
	logger = logging.NewComponentLogger(logger, "parcel")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrConfiguration, "parcel", "list boundaries", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	dict := NewDictionary()
	parcels := make([]*Parcel, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if _, ok := ParseBoundaryName(deriver.Prefix, name); !ok {
			continue
		}
		path := filepath.Join(dir, name)
		p, err := deriver.Load(path)
		if err != nil {
			if services.IsItemError(err) {
				itemCtx := services.WithField(ctx, fieldFromName(deriver.Prefix, name))
				logging.WarnWithContext(itemCtx, logger, "boundary skipped", "boundary_invalid",
					logging.String("path", path),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "repair or remove the boundary file"),
				)
				continue
			}
			return nil, nil, err
		}
		dict.Add(p)
		parcels = append(parcels, p)
	}
	logger.DebugContext(ctx, "identity dictionary built",
		logging.String("dir", dir),
		logging.Int("parcels", len(parcels)),
	)
	return dict, parcels, nil
}

func fieldFromName(prefix, name string) string {
	parsed, _ := ParseBoundaryName(prefix, name)
	return parsed.FieldNumber
}
