package store

import "strings"

// columnSet collects column names with optional values in insertion order.
type columnSet struct {
	names  []string
	values []any
	set    []bool
}

func (c *columnSet) add(name string, value any) {
	c.names = append(c.names, name)
	c.values = append(c.values, value)
	c.set = append(c.set, true)
}

// addOptional records name with a nil value when v is nil.
func addOptional[T any](c *columnSet, name string, v *T) {
	if v == nil {
		c.names = append(c.names, name)
		c.values = append(c.values, nil)
		c.set = append(c.set, false)
		return
	}
	c.add(name, *v)
}

func (c *columnSet) addBytes(name string, v []byte) {
	if v == nil {
		c.names = append(c.names, name)
		c.values = append(c.values, nil)
		c.set = append(c.set, false)
		return
	}
	c.add(name, v)
}

// insert renders an INSERT of the columns that carry a value.
func (c *columnSet) insert(d dialect, table string) (string, []any) {
	var cols, marks strings.Builder
	args := make([]any, 0, len(c.names))
	for i, name := range c.names {
		if !c.set[i] {
			continue
		}
		if len(args) > 0 {
			cols.WriteString(", ")
			marks.WriteString(", ")
		}
		args = append(args, c.values[i])
		cols.WriteString(name)
		marks.WriteString(d.placeholder(len(args)))
	}
	return "INSERT INTO " + table + " (" + cols.String() + ") VALUES (" + marks.String() + ")", args
}

// coalesce renders "col = COALESCE(?, col)" for every column so a nil value
// keeps what is stored. Placeholders start after offset arguments.
func (c *columnSet) coalesce(d dialect, offset int) (string, []any) {
	parts := make([]string, len(c.names))
	for i, name := range c.names {
		parts[i] = name + " = COALESCE(" + d.placeholder(offset+i+1) + ", " + name + ")"
	}
	args := append([]any(nil), c.values...)
	return strings.Join(parts, ", "), args
}
