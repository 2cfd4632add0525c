// Package export writes training samples selected from the store to
// Parquet or CSV.
//
// Raster columns are flattened to byte lengths so the tabular part of a
// sample stays small; Parquet exports can additionally carry the raw
// artifact bytes.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"agriref/internal/fileutil"
	"agriref/internal/sensor"
	"agriref/internal/services"
	"agriref/internal/store"
)

// Format selects the output encoding.
type Format string

const (
	FormatParquet Format = "parquet"
	FormatCSV     Format = "csv"
)

// ParseFormat resolves a format name.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "parquet", "pq", "":
		return FormatParquet, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", services.Wrap(services.ErrConfiguration, "export", "format", fmt.Sprintf("unsupported format %q (use parquet or csv)", value), nil)
	}
}

// Options tune an export.
type Options struct {
	Format Format
	// IncludeRaw adds the artifact bytes as binary columns. Parquet only.
	IncludeRaw bool
}

// WriteFile writes rows to path atomically and returns the row count.
func WriteFile(path string, rows []store.DayRow, opts Options) (int, error) {
	if err := opts.validate(); err != nil {
		return 0, err
	}
	err := fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return Write(w, rows, opts)
	})
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "export", "write", path, err)
	}
	return len(rows), nil
}

// Write encodes rows to w.
func Write(w io.Writer, rows []store.DayRow, opts Options) error {
	if err := opts.validate(); err != nil {
		return err
	}
	if opts.Format == FormatCSV {
		return writeCSV(w, rows)
	}
	return writeParquet(w, rows, opts.IncludeRaw)
}

func (o Options) validate() error {
	switch o.Format {
	case FormatParquet, "":
		return nil
	case FormatCSV:
		if o.IncludeRaw {
			return services.Wrap(services.ErrConfiguration, "export", "csv", "raw artifact bytes are only exported to parquet", nil)
		}
		return nil
	default:
		return services.Wrap(services.ErrConfiguration, "export", "format", string(o.Format), nil)
	}
}

// Columns returns the exported column names in order.
func Columns(includeRaw bool) []string {
	cols := buildColumns(includeRaw)
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.field.Name
	}
	return names
}

type column struct {
	field  arrow.Field
	append func(array.Builder, *store.DayRow)
	text   func(*store.DayRow) string
}

func buildColumns(includeRaw bool) []column {
	cols := []column{
		{
			field:  arrow.Field{Name: "field_id", Type: arrow.PrimitiveTypes.Int64},
			append: func(b array.Builder, r *store.DayRow) { b.(*array.Int64Builder).Append(r.FieldID) },
			text:   func(r *store.DayRow) string { return strconv.FormatInt(r.FieldID, 10) },
		},
		{
			field:  arrow.Field{Name: "date", Type: arrow.BinaryTypes.String},
			append: func(b array.Builder, r *store.DayRow) { b.(*array.StringBuilder).Append(r.Date) },
			text:   func(r *store.DayRow) string { return r.Date },
		},
		int64Column("size", func(r *store.DayRow) *int64 { return r.Size }),
		intColumn("bbch_phase", func(r *store.DayRow) *int { return r.BBCHPhase }),
		boolColumn("bbch_sim", func(r *store.DayRow) *bool { return r.BBCHSim }),
	}
	for _, m := range sensor.All() {
		m := m
		cols = append(cols,
			lengthColumn(string(m)+"_bytes", func(r *store.DayRow) []byte { return r.Raster(m).Data }),
			lengthColumn(string(m)+"_interp_bytes", func(r *store.DayRow) []byte { return r.Raster(m).Interp }),
			boolColumn(string(m)+"_valid", func(r *store.DayRow) *bool { return r.Raster(m).Valid }),
		)
		if includeRaw {
			cols = append(cols, binaryColumn(string(m)+"_data", func(r *store.DayRow) []byte { return r.Raster(m).Data }))
		}
	}
	cols = append(cols,
		intColumn("temp_min", func(r *store.DayRow) *int { return r.TempMin }),
		intColumn("temp_max", func(r *store.DayRow) *int { return r.TempMax }),
		intColumn("temp_mean", func(r *store.DayRow) *int { return r.TempMean }),
		intColumn("precip", func(r *store.DayRow) *int { return r.Precip }),
	)
	return cols
}

func int64Column(name string, get func(*store.DayRow) *int64) column {
	return column{
		field: arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		append: func(b array.Builder, r *store.DayRow) {
			if v := get(r); v != nil {
				b.(*array.Int64Builder).Append(*v)
				return
			}
			b.AppendNull()
		},
		text: func(r *store.DayRow) string {
			if v := get(r); v != nil {
				return strconv.FormatInt(*v, 10)
			}
			return ""
		},
	}
}

func intColumn(name string, get func(*store.DayRow) *int) column {
	return column{
		field: arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Int32, Nullable: true},
		append: func(b array.Builder, r *store.DayRow) {
			if v := get(r); v != nil {
				b.(*array.Int32Builder).Append(int32(*v))
				return
			}
			b.AppendNull()
		},
		text: func(r *store.DayRow) string {
			if v := get(r); v != nil {
				return strconv.Itoa(*v)
			}
			return ""
		},
	}
}

func boolColumn(name string, get func(*store.DayRow) *bool) column {
	return column{
		field: arrow.Field{Name: name, Type: arrow.FixedWidthTypes.Boolean, Nullable: true},
		append: func(b array.Builder, r *store.DayRow) {
			if v := get(r); v != nil {
				b.(*array.BooleanBuilder).Append(*v)
				return
			}
			b.AppendNull()
		},
		text: func(r *store.DayRow) string {
			if v := get(r); v != nil {
				return strconv.FormatBool(*v)
			}
			return ""
		},
	}
}

// lengthColumn exports the size of an artifact; null when absent.
func lengthColumn(name string, get func(*store.DayRow) []byte) column {
	return int64Column(name, func(r *store.DayRow) *int64 {
		data := get(r)
		if data == nil {
			return nil
		}
		n := int64(len(data))
		return &n
	})
}

func binaryColumn(name string, get func(*store.DayRow) []byte) column {
	return column{
		field: arrow.Field{Name: name, Type: arrow.BinaryTypes.Binary, Nullable: true},
		append: func(b array.Builder, r *store.DayRow) {
			if data := get(r); data != nil {
				b.(*array.BinaryBuilder).Append(data)
				return
			}
			b.AppendNull()
		},
	}
}

func writeParquet(w io.Writer, rows []store.DayRow, includeRaw bool) error {
	cols := buildColumns(includeRaw)
	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		fields[i] = c.field
	}
	schema := arrow.NewSchema(fields, nil)

	builder := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer builder.Release()
	for i := range rows {
		for j, c := range cols {
			c.append(builder.Field(j), &rows[i])
		}
	}
	record := builder.NewRecord()
	defer record.Release()

	writer, err := pqarrow.NewFileWriter(schema, w, nil, pqarrow.DefaultWriterProps())
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	if err := writer.Write(record); err != nil {
		writer.Close()
		return fmt.Errorf("write parquet record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, rows []store.DayRow) error {
	cols := buildColumns(false)
	cw := csv.NewWriter(w)
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.field.Name
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	record := make([]string, len(cols))
	for i := range rows {
		for j, c := range cols {
			record[j] = c.text(&rows[i])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
