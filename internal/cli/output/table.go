package output

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"text/tabwriter"

	"github.com/yndnr/devmesh-go/internal/core/domain"
)

// Tabular is implemented by results with their own table layout.
type Tabular interface {
	Table() *Table
}

// Table is rows of cells under optional headers.
type Table struct {
	Headers []string
	Rows    [][]string
}

// AddRow appends a row.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render writes the table aligned with tabs.
func (t *Table) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(t.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// TableFormatter formats data as a table. Values without a table layout
// are printed with fmt.
type TableFormatter struct{}

func (TableFormatter) Format(w io.Writer, data any) error {
	switch v := data.(type) {
	case nil:
		return nil
	case *Table:
		return v.Render(w)
	case Tabular:
		return v.Table().Render(w)
	case *domain.Node:
		return NodeTable(v).Render(w)
	}
	if t, ok := structTable(data); ok {
		return t.Render(w)
	}
	_, err := fmt.Fprintln(w, data)
	return err
}

// NodeTable lists every leaf of n with its path relative to n. An empty
// container lists itself with no value.
func NodeTable(n *domain.Node) *Table {
	t := &Table{Headers: []string{"PATH", "VALUE"}}
	if n == nil {
		return t
	}
	n.Walk(func(rel domain.Path, node *domain.Node) {
		if node.IsLeaf() {
			t.AddRow(rel.String(), node.Value)
		} else if len(node.Children) == 0 {
			t.AddRow(rel.String(), "-")
		}
	})
	return t
}

// structTable renders a struct as FIELD/VALUE rows named by json tags.
func structTable(data any) (*Table, bool) {
	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, false
	}
	t := &Table{Headers: []string{"FIELD", "VALUE"}}
	typ := v.Type()
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, _, _ := strings.Cut(f.Tag.Get("json"), ","); tag == "-" {
			continue
		} else if tag != "" {
			name = tag
		}
		t.AddRow(name, fmt.Sprint(v.Field(i).Interface()))
	}
	return t, true
}
