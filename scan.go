package seqtable

import (
	"context"
	"io"
	"sync"
)

// ScanRequest carries the projection and pushdown predicates the host
// planner supplies at scan time.
type ScanRequest struct {
	// Projection is the requested subset and order of table columns.
	// Empty requests every column in schema order.
	Projection []string

	// Region restricts coordinate formats to rows overlapping a genomic
	// region. Required for indexed tables; best-effort pushdown otherwise.
	Region *Region

	// PartitionFilter holds partition-column equality predicates. Files
	// whose partition values fail a predicate are skipped without opening
	// the underlying byte source.
	PartitionFilter map[string]string

	// Options overrides the table's session options when any field is set.
	Options *ScanOptions
}

// BatchStream is the asynchronous output of a scan. Batches arrive on C in
// file order within each file; order across files is not guaranteed. After C
// closes, Err reports the first failure, if any. Closing the stream cancels
// in-flight pipelines and releases their byte-stream handles.
type BatchStream struct {
	schema TableSchema
	ch     chan *Batch
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu  sync.Mutex
	err error
}

// Schema returns the projected schema batches conform to.
func (s *BatchStream) Schema() TableSchema { return s.schema }

// C returns the batch channel. It closes when the scan completes or fails.
func (s *BatchStream) C() <-chan *Batch { return s.ch }

// Err returns the first scan failure, or nil. Valid after C closes.
func (s *BatchStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Next receives the next batch, honoring ctx. It returns nil, nil on normal
// exhaustion and nil, err when the scan failed.
func (s *BatchStream) Next(ctx context.Context) (*Batch, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case batch, ok := <-s.ch:
		if !ok {
			return nil, s.Err()
		}
		return batch, nil
	}
}

// Close cancels the scan. Safe to call more than once and after exhaustion.
func (s *BatchStream) Close() {
	s.cancel()
	// Drain so producer goroutines blocked on send observe cancellation.
	go func() {
		for range s.ch {
		}
	}()
}

func (s *BatchStream) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	metricScanErrors.Inc()
	s.cancel()
}

// Scan resolves the table and streams projected batches from every matching
// file. Configuration problems (unknown columns, missing region on an
// indexed table, partition mismatches) surface here, before any data byte is
// read.
func (t *Table) Scan(ctx context.Context, req ScanRequest) (*BatchStream, error) {
	opts := t.Options
	if req.Options != nil {
		opts = *req.Options
	}
	opts.Projection = req.Projection

	if t.Indexed && req.Region == nil {
		return nil, newConfigError(t.Name, "scan without a region predicate; declare a non-indexed table for full scans", ErrMissingRegion)
	}
	if req.Region != nil && !t.Format.hasCoordinates() {
		return nil, newConfigError(t.Name, "format "+t.Format.String()+" does not support region predicates", ErrInvalidRegion)
	}
	for col := range req.PartitionFilter {
		if !containsString(t.PartitionKeys, col) {
			return nil, newConfigError(t.Name, "partition predicate on non-partition column "+col, ErrUnknownColumn)
		}
	}

	fullSchema := t.Format.Schema(opts).WithPartitions(t.PartitionKeys)
	projSchema, projIdx, err := fullSchema.Project(req.Projection)
	if err != nil {
		return nil, err
	}

	files, err := ResolveLocation(ctx, t.location())
	if err != nil {
		return nil, err
	}

	scanCtx, cancel := context.WithCancel(ctx)
	parallelism := opts.parallelism()
	stream := &BatchStream{
		schema: projSchema,
		ch:     make(chan *Batch, parallelism),
		cancel: cancel,
	}

	pending := make([]SourceFile, 0, len(files))
	for _, sf := range files {
		if prunedByPartition(sf, req.PartitionFilter) {
			metricFilesPruned.Inc()
			continue
		}
		pending = append(pending, sf)
	}

	sem := make(chan struct{}, parallelism)
	stream.wg.Add(len(pending))
	for _, sf := range pending {
		go func(sf SourceFile) {
			defer stream.wg.Done()
			select {
			case sem <- struct{}{}:
			case <-scanCtx.Done():
				return
			}
			defer func() { <-sem }()

			metricActivePipelines.Inc()
			defer metricActivePipelines.Dec()

			if err := t.scanFile(scanCtx, stream, sf, opts, fullSchema, projIdx, req.Region); err != nil {
				stream.fail(&ScanError{File: sf.Key, Cause: err})
			}
		}(sf)
	}
	go func() {
		stream.wg.Wait()
		close(stream.ch)
	}()
	return stream, nil
}

// scanFile runs one file's decode pipeline: negotiate the byte stream, seek
// via the block index when a region predicate and index are both present,
// decode, filter, project, append partition values, and emit batches.
func (t *Table) scanFile(ctx context.Context, stream *BatchStream, sf SourceFile, opts ScanOptions,
	fullSchema TableSchema, projIdx []int, region *Region) error {

	metricFilesOpened.Inc()

	var dec RowDecoder
	var closeSource func() error

	if t.Indexed && region != nil {
		ix, err := t.indexes.load(ctx, t.Backend, sf.Key)
		if err != nil {
			return err
		}
		chunks := ix.Chunks(*region)
		if len(chunks) == 0 {
			// The reference may simply be absent from this file.
			return nil
		}
		// Seek once to the first overlapping block and decode forward; the
		// in-decoder filter below enforces record-level region semantics, so
		// adjacent blocks cannot duplicate rows.
		seeker := newRangeSeeker(ctx, t.Backend, sf.Key, sf.Size)
		switch t.Format {
		case FormatBAM:
			bdec, err := newBAMDecoder(seeker, sf.Key, opts)
			if err != nil {
				_ = seeker.Close()
				return err
			}
			if err := bdec.seek(chunks[0].Offset); err != nil {
				_ = bdec.close()
				_ = seeker.Close()
				return err
			}
			closeSource = func() error {
				err := bdec.close()
				_ = seeker.Close()
				return err
			}
			dec = bdec
		default: // bgzf-compressed VCF
			rc, err := newCodecReader(seeker, CompressionBGZF)
			if err != nil {
				_ = seeker.Close()
				return err
			}
			closeSource = rc.Close
			vdec := newVCFDecoder(rc, sf.Key, opts)
			if err := vdec.readHeader(); err != nil {
				_ = rc.Close()
				return err
			}
			if err := vdec.seek(chunks[0].Offset); err != nil {
				_ = rc.Close()
				return err
			}
			dec = vdec
		}
	} else {
		rc, err := openSource(ctx, t.Backend, t.Format, sf)
		if err != nil {
			return err
		}
		closeSource = rc.Close
		dec, err = t.Format.NewDecoder(rc, sf.Key, opts)
		if err != nil {
			_ = rc.Close()
			return err
		}
	}
	defer func() { _ = closeSource() }()

	coord, hasCoord := dec.(coordinateDecoder)
	builder := newBatchBuilder(stream.schema, opts.batchSize())
	partitionKeys := t.PartitionKeys
	nData := len(fullSchema.Fields) - len(partitionKeys)
	seenChrom := false

	emit := func() error {
		batch := builder.finish()
		if batch == nil {
			return nil
		}
		select {
		case stream.ch <- batch:
			metricBatchesEmitted.Inc()
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		dataRow, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		metricRowsDecoded.Inc()

		if region != nil && hasCoord {
			chrom, start, end, ok := coord.Coordinates(dataRow)
			if ok {
				if !region.Overlaps(chrom, start, end) {
					// Coordinate-sorted indexed files allow an early stop
					// once the scan passes the region's end boundary.
					if t.Indexed && seenChrom && (chrom != region.Chrom || start >= region.End) {
						break
					}
					continue
				}
				seenChrom = true
			} else {
				// Rows without coordinates cannot satisfy a region predicate.
				continue
			}
		}

		projected := make([]any, len(projIdx))
		for i, src := range projIdx {
			if src < nData {
				projected[i] = dataRow[src]
			} else {
				projected[i] = sf.Partitions[fullSchema.Fields[src].Name]
			}
		}
		builder.append(projected)
		if builder.full() {
			if err := emit(); err != nil {
				return err
			}
		}
	}
	return emit()
}

func prunedByPartition(sf SourceFile, filter map[string]string) bool {
	for col, want := range filter {
		if sf.Partitions[col] != want {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
