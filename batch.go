package seqtable

// Batch is a column-major collection of decoded rows in schema order.
// Ownership transfers to the consumer on emission; the engine never mutates
// an emitted batch.
type Batch struct {
	Schema  TableSchema
	Columns [][]any
}

// NumRows returns the row count of the batch.
func (b *Batch) NumRows() int {
	if len(b.Columns) == 0 {
		return 0
	}
	return len(b.Columns[0])
}

// Value returns the value at (column, row). Null is nil.
func (b *Batch) Value(col, row int) any {
	return b.Columns[col][row]
}

// batchBuilder assembles rows up to a row-count ceiling before emission, in
// the manner of the per-format array builders the decoders feed.
type batchBuilder struct {
	schema  TableSchema
	limit   int
	columns [][]any
}

func newBatchBuilder(schema TableSchema, limit int) *batchBuilder {
	if limit <= 0 {
		limit = defaultBatchSize
	}
	return &batchBuilder{
		schema:  schema,
		limit:   limit,
		columns: make([][]any, len(schema.Fields)),
	}
}

func (b *batchBuilder) append(row []any) {
	for i := range b.columns {
		b.columns[i] = append(b.columns[i], row[i])
	}
}

func (b *batchBuilder) len() int {
	if len(b.columns) == 0 {
		return 0
	}
	return len(b.columns[0])
}

func (b *batchBuilder) full() bool { return b.len() >= b.limit }

// finish emits the accumulated batch and resets the builder. Returns nil when
// the builder is empty.
func (b *batchBuilder) finish() *Batch {
	if b.len() == 0 {
		return nil
	}
	batch := &Batch{Schema: b.schema, Columns: b.columns}
	b.columns = make([][]any, len(b.schema.Fields))
	return batch
}
