package seqtable

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Table binds a name to a format, a storage location, and session options.
// It is the unit a host engine registers (CREATE EXTERNAL TABLE) or builds
// ad hoc from a table-function call; either way Scan is the single entry
// point for reading rows.
type Table struct {
	// Name identifies the table in errors and the catalog.
	Name string

	// Format selects the decoder and the relational schema.
	Format Format

	// Backend is the byte store the location resolves against.
	Backend StorageBackend

	// Root is the object key or key prefix holding the table's files.
	Root string

	// Compression, when non-nil, overrides filename-based inference for
	// every file of the table.
	Compression *Compression

	// PartitionKeys names the Hive partition columns, outermost first.
	PartitionKeys []string

	// Indexed marks the table as requiring companion block indexes; scans
	// must then carry a region predicate.
	Indexed bool

	// Options holds the session decode flags and batching knobs.
	Options ScanOptions

	indexes *indexCache
}

// NewTable validates the binding and returns a scannable table.
func NewTable(name string, format Format, backend StorageBackend, root string, opts ...TableOption) (*Table, error) {
	if backend == nil {
		return nil, newConfigError(name, "nil storage backend", nil)
	}
	t := &Table{
		Name:    name,
		Format:  format,
		Backend: backend,
		Root:    root,
		indexes: newIndexCache(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.Indexed && !format.Indexable() {
		return nil, newConfigError(name, "format "+format.String()+" does not support block indexes", nil)
	}
	if err := validatePartitionKeys(t.PartitionKeys); err != nil {
		return nil, newConfigError(name, err.Error(), ErrPartitionMismatch)
	}
	return t, nil
}

// TableOption customizes a table binding.
type TableOption func(*Table)

// WithCompression forces a codec for every file, overriding extension
// inference.
func WithCompression(c Compression) TableOption {
	return func(t *Table) { t.Compression = &c }
}

// WithPartitionKeys declares the Hive partition columns, outermost first.
func WithPartitionKeys(keys ...string) TableOption {
	return func(t *Table) { t.PartitionKeys = append([]string(nil), keys...) }
}

// WithIndex marks the table as index-backed. Scans then require a region.
func WithIndex() TableOption {
	return func(t *Table) { t.Indexed = true }
}

// WithScanOptions sets the session decode flags and batching knobs.
func WithScanOptions(opts ScanOptions) TableOption {
	return func(t *Table) { t.Options = opts }
}

// Schema returns the table's relational schema: the format's data columns
// under the current session flags followed by the partition columns.
func (t *Table) Schema() TableSchema {
	return t.Format.Schema(t.Options).WithPartitions(t.PartitionKeys)
}

func (t *Table) location() Location {
	return Location{
		Backend:       t.Backend,
		Root:          t.Root,
		Format:        t.Format,
		Compression:   t.Compression,
		PartitionKeys: t.PartitionKeys,
	}
}

func validatePartitionKeys(keys []string) error {
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if k == "" {
			return errString("empty partition column name")
		}
		if seen[k] {
			return errString("duplicate partition column " + k)
		}
		seen[k] = true
	}
	return nil
}

type errString string

func (e errString) Error() string { return string(e) }

// ScanFile is the one-shot table-function form: bind a single file or
// prefix by path, inferring format and compression from the name, and
// stream every row.
func ScanFile(ctx context.Context, backend StorageBackend, path string, opts ScanOptions) (*BatchStream, error) {
	format, _, err := InferFormat(path)
	if err != nil {
		return nil, err
	}
	return FormatScan(ctx, backend, path, format, opts)
}

// FormatScan is the per-format table-function form (read_vcf, read_bam, ...):
// bind path under an explicit format and stream every row.
func FormatScan(ctx context.Context, backend StorageBackend, path string, format Format, opts ScanOptions) (*BatchStream, error) {
	t, err := NewTable(tableNameForPath(path), format, backend, path, WithScanOptions(opts))
	if err != nil {
		return nil, err
	}
	return t.Scan(ctx, ScanRequest{})
}

// IndexedScan is the region table-function form: bind an indexed location
// and stream only rows overlapping region. The region is mandatory.
func IndexedScan(ctx context.Context, backend StorageBackend, path string, format Format, region string, opts ScanOptions) (*BatchStream, error) {
	r, err := ParseRegion(region)
	if err != nil {
		return nil, err
	}
	t, err := NewTable(tableNameForPath(path), format, backend, path, WithScanOptions(opts), WithIndex())
	if err != nil {
		return nil, err
	}
	return t.Scan(ctx, ScanRequest{Region: &r})
}

func tableNameForPath(path string) string {
	path = strings.TrimSuffix(path, "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		path = path[i+1:]
	}
	if path == "" {
		return "scan"
	}
	return path
}

// ReadAll drains a scan into memory. Intended for small results and tests;
// production reads should consume the stream batch by batch.
func ReadAll(ctx context.Context, stream *BatchStream) ([][]any, error) {
	defer stream.Close()
	var rows [][]any
	for {
		batch, err := stream.Next(ctx)
		if err != nil {
			return nil, err
		}
		if batch == nil {
			return rows, nil
		}
		for i := 0; i < batch.NumRows(); i++ {
			row := make([]any, len(batch.Columns))
			for j := range batch.Columns {
				row[j] = batch.Columns[j][i]
			}
			rows = append(rows, row)
		}
	}
}

// SortRowsBy orders rows by the named columns, for callers that need a
// deterministic view of an unordered multi-file scan.
func SortRowsBy(schema TableSchema, rows [][]any, columns ...string) error {
	idx := make([]int, len(columns))
	for i, c := range columns {
		j := schema.FieldIndex(c)
		if j < 0 {
			return newConfigError("sort", "unknown column "+c, ErrUnknownColumn)
		}
		idx[i] = j
	}
	sort.SliceStable(rows, func(a, b int) bool {
		for _, j := range idx {
			av, bv := formatSortKey(rows[a][j]), formatSortKey(rows[b][j])
			if av != bv {
				return av < bv
			}
		}
		return false
	})
	return nil
}

func formatSortKey(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		// Fixed-width so lexicographic order matches numeric order for
		// non-negative coordinates.
		return fmt.Sprintf("%020d", x)
	default:
		return fmt.Sprint(x)
	}
}
