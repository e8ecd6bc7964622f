package dataset

import (
	"fmt"
	"math"
	"strconv"

	"biasclean/domain/core"
)

// ColumnKind distinguishes categorical from numeric columns
type ColumnKind string

const (
	KindCategorical ColumnKind = "categorical"
	KindNumeric     ColumnKind = "numeric"
)

// Column describes one field of the schema
type Column struct {
	Name string     `json:"name"`
	Kind ColumnKind `json:"kind"`
}

// Schema is the ordered column list shared by every record of a Dataset
type Schema struct {
	Columns []Column `json:"columns"`
	index   map[string]int
}

// NewSchema builds a schema and rejects duplicate column names
func NewSchema(columns []Column) (Schema, error) {
	s := Schema{Columns: append([]Column(nil), columns...), index: make(map[string]int, len(columns))}
	for i, c := range s.Columns {
		if c.Name == "" {
			return Schema{}, fmt.Errorf("%w: column %d has no name", core.ErrSchemaMismatch, i)
		}
		if _, dup := s.index[c.Name]; dup {
			return Schema{}, fmt.Errorf("%w: duplicate column %q", core.ErrSchemaMismatch, c.Name)
		}
		if c.Kind == "" {
			s.Columns[i].Kind = KindCategorical
		}
		s.index[c.Name] = i
	}
	return s, nil
}

// Index returns the position of a column, or -1
func (s Schema) Index(name string) int {
	if s.index == nil {
		for i, c := range s.Columns {
			if c.Name == name {
				return i
			}
		}
		return -1
	}
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// Value is a single cell. Numeric cells carry Number; categorical cells carry Text.
type Value struct {
	Text   string  `json:"text,omitempty"`
	Number float64 `json:"number,omitempty"`
	Null   bool    `json:"null,omitempty"`
}

// Text creates a categorical value
func Text(s string) Value { return Value{Text: s} }

// Number creates a numeric value
func Number(f float64) Value { return Value{Number: f} }

// Null creates a missing value
func Null() Value { return Value{Null: true} }

// Label renders the value as a category label regardless of column kind
func (v Value) Label(kind ColumnKind) string {
	if v.Null {
		return ""
	}
	if kind == KindNumeric {
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	}
	return v.Text
}

// Record is one row, aligned with Schema.Columns
type Record []Value

// Clone copies the record
func (r Record) Clone() Record {
	return append(Record(nil), r...)
}

// Dataset is an ordered collection of records sharing a schema.
// Transformations never mutate a Dataset in place; they operate on Clone().
type Dataset struct {
	Schema  Schema   `json:"schema"`
	Records []Record `json:"records"`
}

// New creates a dataset, validating record widths against the schema
func New(schema Schema, records []Record) (*Dataset, error) {
	for i, r := range records {
		if len(r) != len(schema.Columns) {
			return nil, fmt.Errorf("%w: record %d has %d values, schema has %d columns",
				core.ErrSchemaMismatch, i, len(r), len(schema.Columns))
		}
	}
	return &Dataset{Schema: schema, Records: records}, nil
}

// Len returns the record count
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Clone deep-copies the dataset; the copy shares no record storage with d
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{Schema: d.Schema, Records: make([]Record, len(d.Records))}
	for i, r := range d.Records {
		out.Records[i] = r.Clone()
	}
	return out
}

// HasColumn reports whether the column exists
func (d *Dataset) HasColumn(name string) bool {
	return d.Schema.Index(name) >= 0
}

// Column returns the column descriptor by name
func (d *Dataset) Column(name string) (Column, bool) {
	i := d.Schema.Index(name)
	if i < 0 {
		return Column{}, false
	}
	return d.Schema.Columns[i], true
}

// Labels returns the per-record category labels for a column ("" for nulls)
func (d *Dataset) Labels(name string) []string {
	i := d.Schema.Index(name)
	if i < 0 {
		return nil
	}
	kind := d.Schema.Columns[i].Kind
	out := make([]string, len(d.Records))
	for r, rec := range d.Records {
		out[r] = rec[i].Label(kind)
	}
	return out
}

// Numbers returns the numeric column values, NaN for nulls
func (d *Dataset) Numbers(name string) []float64 {
	i := d.Schema.Index(name)
	if i < 0 {
		return nil
	}
	out := make([]float64, len(d.Records))
	for r, rec := range d.Records {
		if rec[i].Null {
			out[r] = math.NaN()
			continue
		}
		out[r] = rec[i].Number
	}
	return out
}

// NumericColumns lists numeric column names, excluding the given names
func (d *Dataset) NumericColumns(exclude ...string) []string {
	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		skip[e] = true
	}
	var out []string
	for _, c := range d.Schema.Columns {
		if c.Kind == KindNumeric && !skip[c.Name] {
			out = append(out, c.Name)
		}
	}
	return out
}

// Fingerprint hashes schema and content. Equal fingerprints mean equal datasets.
func (d *Dataset) Fingerprint() core.Hash {
	h := core.NewHasher()
	for _, c := range d.Schema.Columns {
		h.String(c.Name).String(string(c.Kind))
	}
	for _, r := range d.Records {
		for _, v := range r {
			if v.Null {
				h.Byte(1)
				continue
			}
			h.Byte(0).String(v.Text).Float(v.Number)
		}
		h.Byte('\n')
	}
	return h.Sum()
}
