package seqtable

import "fmt"

// LogicalType is the closed set of column value types produced by decoders.
type LogicalType int

const (
	// TypeString values are Go strings.
	TypeString LogicalType = iota
	// TypeInt values are int64.
	TypeInt
	// TypeFloat values are float64.
	TypeFloat
	// TypeBool values are bools.
	TypeBool
	// TypeListInt values are []int64 (e.g. quality scores).
	TypeListInt
	// TypeListFloat values are []float64 (e.g. mz and intensity arrays).
	TypeListFloat
	// TypeMap values are map[string]string (expanded tag fields, SDF data).
	TypeMap
)

// String returns the SQL-ish name of the type.
func (t LogicalType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeListInt:
		return "list<int>"
	case TypeListFloat:
		return "list<float>"
	case TypeMap:
		return "map<string,string>"
	}
	return fmt.Sprintf("LogicalType(%d)", int(t))
}

// Field is one column of a table schema. Null values are represented as nil
// regardless of type.
type Field struct {
	Name     string
	Type     LogicalType
	Nullable bool

	// Partition marks columns derived from storage path segments rather than
	// file content. Partition columns are always string-typed and constant
	// per file.
	Partition bool
}

// TableSchema is an ordered list of fields: data columns first (format
// defined, varying with scan options), then partition columns.
type TableSchema struct {
	Fields []Field
}

// DataFields returns the format-defined columns.
func (s TableSchema) DataFields() []Field {
	n := 0
	for _, f := range s.Fields {
		if !f.Partition {
			n++
		}
	}
	return s.Fields[:n]
}

// FieldIndex returns the position of the named field, or -1.
func (s TableSchema) FieldIndex(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Names returns the field names in schema order.
func (s TableSchema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// WithPartitions returns a copy of the schema with string-typed partition
// columns appended for each key.
func (s TableSchema) WithPartitions(keys []string) TableSchema {
	fields := make([]Field, 0, len(s.Fields)+len(keys))
	fields = append(fields, s.Fields...)
	for _, k := range keys {
		fields = append(fields, Field{Name: k, Type: TypeString, Partition: true})
	}
	return TableSchema{Fields: fields}
}

// Project returns the schema restricted to the named columns in the given
// order, plus the index of each projected column in the source schema.
// An unknown name is a configuration error.
func (s TableSchema) Project(names []string) (TableSchema, []int, error) {
	if len(names) == 0 {
		idx := make([]int, len(s.Fields))
		for i := range idx {
			idx[i] = i
		}
		return s, idx, nil
	}
	fields := make([]Field, 0, len(names))
	idx := make([]int, 0, len(names))
	for _, name := range names {
		i := s.FieldIndex(name)
		if i < 0 {
			return TableSchema{}, nil, newConfigError(name, "not a table column", ErrUnknownColumn)
		}
		fields = append(fields, s.Fields[i])
		idx = append(idx, i)
	}
	return TableSchema{Fields: fields}, idx, nil
}
