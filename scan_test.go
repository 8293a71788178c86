package seqtable

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/biogo/hts/bam"
)

// vcfTableFixture seeds a two-partition VCF table with three rows per file.
func vcfTableFixture(t *testing.T) (*MemoryBackend, *Table) {
	t.Helper()
	s1 := testVCFHeader +
		testVCFLine("chr1", 100, "rs1", "A", "T") +
		testVCFLine("chr1", 200, "rs2", "C", "G") +
		testVCFLine("chr2", 50, "rs3", "G", "A")
	s2 := testVCFHeader +
		testVCFLine("chr1", 150, "rs4", "T", "C") +
		testVCFLine("chr2", 75, "rs5", "A", "G") +
		testVCFLine("chr3", 10, "rs6", "C", "T")
	backend := memBackendWith(t, map[string][]byte{
		"tbl/sample=s1/data.vcf": []byte(s1),
		"tbl/sample=s2/data.vcf": []byte(s2),
	})
	table, err := NewTable("variants", FormatVCF, backend, "tbl/", WithPartitionKeys("sample"))
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	return backend, table
}

func TestTableScan_AllRows(t *testing.T) {
	_, table := vcfTableFixture(t)
	stream, err := table.Scan(context.Background(), ScanRequest{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if got := len(stream.Schema().Fields); got != 10 {
		t.Errorf("expected 10 projected columns (9 data + 1 partition), got %d", got)
	}
	rows := drainRows(t, stream)
	if len(rows) != 6 {
		t.Fatalf("expected 6 rows, got %d", len(rows))
	}
	if err := SortRowsBy(stream.Schema(), rows, "id"); err != nil {
		t.Fatalf("sort: %v", err)
	}
	if rows[0][2] != "rs1" || rows[5][2] != "rs6" {
		t.Errorf("unexpected row ordering after sort: %v ... %v", rows[0][2], rows[5][2])
	}
	// Partition values ride along as the final column.
	if rows[0][9] != "s1" || rows[5][9] != "s2" {
		t.Errorf("unexpected partition values: %v / %v", rows[0][9], rows[5][9])
	}
}

func TestTableScan_Projection(t *testing.T) {
	_, table := vcfTableFixture(t)
	stream, err := table.Scan(context.Background(), ScanRequest{
		Projection: []string{"pos", "sample", "chrom"},
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	rows := drainRows(t, stream)
	if len(rows) != 6 {
		t.Fatalf("expected 6 rows, got %d", len(rows))
	}
	for _, row := range rows {
		if len(row) != 3 {
			t.Fatalf("expected 3 projected columns, got %d", len(row))
		}
		if _, ok := row[0].(int64); !ok {
			t.Errorf("expected pos first, got %T", row[0])
		}
		if s, ok := row[1].(string); !ok || (s != "s1" && s != "s2") {
			t.Errorf("expected partition value second, got %v", row[1])
		}
	}
}

func TestTableScan_UnknownColumn(t *testing.T) {
	_, table := vcfTableFixture(t)
	_, err := table.Scan(context.Background(), ScanRequest{Projection: []string{"nope"}})
	if !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("expected ErrUnknownColumn, got %v", err)
	}
}

func TestTableScan_PartitionPruning(t *testing.T) {
	backend, table := vcfTableFixture(t)
	stream, err := table.Scan(context.Background(), ScanRequest{
		PartitionFilter: map[string]string{"sample": "s1"},
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	rows := drainRows(t, stream)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows from s1, got %d", len(rows))
	}
	// The pruned file's bytes are never requested.
	if n := backend.OpenCount("tbl/sample=s2/data.vcf"); n != 0 {
		t.Errorf("pruned file was opened %d times", n)
	}
	if n := backend.OpenCount("tbl/sample=s1/data.vcf"); n == 0 {
		t.Error("matching file was never opened")
	}
}

func TestTableScan_PartitionFilterOnNonPartitionColumn(t *testing.T) {
	_, table := vcfTableFixture(t)
	_, err := table.Scan(context.Background(), ScanRequest{
		PartitionFilter: map[string]string{"chrom": "chr1"},
	})
	if !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("expected ErrUnknownColumn, got %v", err)
	}
}

func TestTableScan_RegionFilter(t *testing.T) {
	_, table := vcfTableFixture(t)
	region, _ := ParseRegion("chr1:100-160")
	stream, err := table.Scan(context.Background(), ScanRequest{Region: &region})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	rows := drainRows(t, stream)
	if len(rows) != 2 {
		t.Fatalf("expected rows at chr1:100 and chr1:150, got %d", len(rows))
	}
	for _, row := range rows {
		if row[0] != "chr1" {
			t.Errorf("row outside region chromosome: %v", row)
		}
	}
}

func TestTableScan_RegionOnNonCoordinateFormat(t *testing.T) {
	backend := memBackendWith(t, map[string][]byte{"seqs.fasta": []byte(">a\nACGT\n")})
	table, err := NewTable("seqs", FormatFASTA, backend, "seqs.fasta")
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	region, _ := ParseRegion("chr1")
	_, err = table.Scan(context.Background(), ScanRequest{Region: &region})
	if !errors.Is(err, ErrInvalidRegion) {
		t.Errorf("expected ErrInvalidRegion, got %v", err)
	}
}

func TestTableScan_Batching(t *testing.T) {
	_, table := vcfTableFixture(t)
	stream, err := table.Scan(context.Background(), ScanRequest{
		PartitionFilter: map[string]string{"sample": "s1"},
		Options:         &ScanOptions{BatchSize: 2, Parallelism: 1},
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	var sizes []int
	for {
		batch, err := stream.Next(context.Background())
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if batch == nil {
			break
		}
		sizes = append(sizes, batch.NumRows())
	}
	if len(sizes) != 2 || sizes[0] != 2 || sizes[1] != 1 {
		t.Errorf("expected batches of 2 and 1 rows, got %v", sizes)
	}
}

func TestTableScan_DeterministicAcrossParallelism(t *testing.T) {
	_, table := vcfTableFixture(t)
	collect := func(parallelism int) [][]any {
		stream, err := table.Scan(context.Background(), ScanRequest{
			Options: &ScanOptions{Parallelism: parallelism},
		})
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		rows := drainRows(t, stream)
		if err := SortRowsBy(stream.Schema(), rows, "chrom", "pos", "sample"); err != nil {
			t.Fatalf("sort: %v", err)
		}
		return rows
	}
	serial := collect(1)
	parallel := collect(4)
	if len(serial) != len(parallel) {
		t.Fatalf("row counts differ: %d vs %d", len(serial), len(parallel))
	}
	for i := range serial {
		for j := range serial[i] {
			if !valuesEqual(serial[i][j], parallel[i][j]) {
				t.Errorf("row %d column %d differs: %v vs %v", i, j, serial[i][j], parallel[i][j])
			}
		}
	}
}

func TestTableScan_DecodeErrorPropagates(t *testing.T) {
	backend := memBackendWith(t, map[string][]byte{
		"bad.vcf": []byte(testVCFHeader + "chr1\tnot_a_position\t.\tA\tT\t.\t.\t.\n"),
	})
	table, err := NewTable("bad", FormatVCF, backend, "bad.vcf")
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	stream, err := table.Scan(context.Background(), ScanRequest{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	_, err = ReadAll(context.Background(), stream)
	if err == nil {
		t.Fatal("expected stream failure for malformed record")
	}
	var scanErr *ScanError
	if !errors.As(err, &scanErr) {
		t.Errorf("expected ScanError, got %T", err)
	}
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Errorf("expected wrapped DecodeError, got %v", err)
	}
}

func TestTableScan_GzipSources(t *testing.T) {
	data := testVCFHeader + testVCFLine("chr1", 100, "rs1", "A", "T")
	backend := memBackendWith(t, map[string][]byte{
		"tbl/a.vcf.gz": gzipBytes(t, []byte(data)),
		"tbl/b.vcf":    []byte(data),
	})
	table, err := NewTable("mixed", FormatVCF, backend, "tbl/")
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	stream, err := table.Scan(context.Background(), ScanRequest{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	rows := drainRows(t, stream)
	if len(rows) != 2 {
		t.Errorf("expected one row per file, got %d", len(rows))
	}
}

func TestTableScan_ContextCancel(t *testing.T) {
	_, table := vcfTableFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	stream, err := table.Scan(ctx, ScanRequest{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	cancel()
	stream.Close()
	// After cancellation the channel must close rather than hang.
	for range stream.C() {
	}
}

// indexedVCFFixture builds a bgzf-compressed, coordinate-sorted VCF with one
// block per record group plus its companion block index.
func indexedVCFFixture(t *testing.T) (*MemoryBackend, *Table) {
	t.Helper()
	header := []byte(testVCFHeader)
	block1 := []byte(testVCFLine("chr1", 100, "rs1", "A", "T") + testVCFLine("chr1", 500, "rs2", "C", "G"))
	block2 := []byte(testVCFLine("chr1", 1500, "rs3", "G", "A") + testVCFLine("chr1", 1900, "rs4", "T", "C"))
	block3 := []byte(testVCFLine("chr2", 100, "rs5", "A", "G"))
	data, offsets := bgzfBlocks(t, header, block1, block2, block3)

	var ixBuf bytes.Buffer
	err := WriteIndex(&ixBuf, []IndexEntry{
		{Ref: "chr1", Start: 99, End: 500, Offset: VirtualOffset{File: offsets[1]}},
		{Ref: "chr1", Start: 1499, End: 1900, Offset: VirtualOffset{File: offsets[2]}},
		{Ref: "chr2", Start: 99, End: 100, Offset: VirtualOffset{File: offsets[3]}},
	})
	if err != nil {
		t.Fatalf("write index: %v", err)
	}

	backend := memBackendWith(t, map[string][]byte{
		"data.vcf.bgz":          data,
		IndexKey("data.vcf.bgz"): ixBuf.Bytes(),
	})
	table, err := NewTable("indexed", FormatVCF, backend, "data.vcf.bgz", WithIndex())
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	return backend, table
}

func TestIndexedScan_RequiresRegion(t *testing.T) {
	_, table := indexedVCFFixture(t)
	_, err := table.Scan(context.Background(), ScanRequest{})
	if !errors.Is(err, ErrMissingRegion) {
		t.Errorf("expected ErrMissingRegion, got %v", err)
	}
}

func TestIndexedScan_Region(t *testing.T) {
	_, table := indexedVCFFixture(t)
	region, _ := ParseRegion("chr1:1400-2000")
	stream, err := table.Scan(context.Background(), ScanRequest{Region: &region})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	rows := drainRows(t, stream)
	if len(rows) != 2 {
		t.Fatalf("expected rs3 and rs4, got %d rows", len(rows))
	}
	if rows[0][2] != "rs3" || rows[1][2] != "rs4" {
		t.Errorf("unexpected rows: %v / %v", rows[0][2], rows[1][2])
	}
}

func TestIndexedScan_AgreesWithFullScan(t *testing.T) {
	backend, indexed := indexedVCFFixture(t)
	bgzf := CompressionBGZF
	full, err := NewTable("full", FormatVCF, backend, "data.vcf.bgz", WithCompression(bgzf))
	if err != nil {
		t.Fatalf("new table: %v", err)
	}

	for _, spec := range []string{"chr1:100-2000", "chr1", "chr2", "chr1:1500-1500"} {
		region, err := ParseRegion(spec)
		if err != nil {
			t.Fatalf("%s: %v", spec, err)
		}
		idxStream, err := indexed.Scan(context.Background(), ScanRequest{Region: &region})
		if err != nil {
			t.Fatalf("%s indexed scan: %v", spec, err)
		}
		idxRows := drainRows(t, idxStream)

		fullStream, err := full.Scan(context.Background(), ScanRequest{Region: &region})
		if err != nil {
			t.Fatalf("%s full scan: %v", spec, err)
		}
		fullRows := drainRows(t, fullStream)

		if len(idxRows) != len(fullRows) {
			t.Errorf("%s: indexed %d rows, full %d rows", spec, len(idxRows), len(fullRows))
			continue
		}
		for i := range idxRows {
			if idxRows[i][2] != fullRows[i][2] {
				t.Errorf("%s row %d: indexed %v, full %v", spec, i, idxRows[i][2], fullRows[i][2])
			}
		}
	}
}

func TestIndexedScan_AbsentChromosome(t *testing.T) {
	backend, table := indexedVCFFixture(t)
	region, _ := ParseRegion("chrMT")
	stream, err := table.Scan(context.Background(), ScanRequest{Region: &region})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	rows := drainRows(t, stream)
	if len(rows) != 0 {
		t.Errorf("expected zero rows for absent chromosome, got %d", len(rows))
	}
	// The index decides; the data file is never opened.
	if n := backend.OpenCount("data.vcf.bgz"); n != 0 {
		t.Errorf("data file opened %d times for absent chromosome", n)
	}
}

func TestIndexedScan_MissingIndexArtifact(t *testing.T) {
	backend := memBackendWith(t, map[string][]byte{
		"data.vcf.bgz": []byte("irrelevant"),
	})
	table, err := NewTable("noidx", FormatVCF, backend, "data.vcf.bgz", WithIndex())
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	region, _ := ParseRegion("chr1")
	stream, err := table.Scan(context.Background(), ScanRequest{Region: &region})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	_, err = ReadAll(context.Background(), stream)
	if err == nil {
		t.Fatal("expected stream failure for missing index")
	}
	var ixErr *IndexError
	if !errors.As(err, &ixErr) {
		t.Errorf("expected IndexError, got %v", err)
	}
}

// indexedBAMFixture builds a BAM object plus a block index derived from the
// chunk positions the reader reports while decoding it.
func indexedBAMFixture(t *testing.T) (*MemoryBackend, *Table) {
	t.Helper()
	data := testBAMData(t)
	br, err := bam.NewReader(bytes.NewReader(data), 0)
	if err != nil {
		t.Fatalf("bam reader: %v", err)
	}
	var entries []IndexEntry
	for {
		rec, err := br.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("bam read: %v", err)
		}
		chunk := br.LastChunk()
		entries = append(entries, IndexEntry{
			Ref:    rec.Ref.Name(),
			Start:  int64(rec.Start()),
			End:    int64(rec.End()),
			Offset: VirtualOffset{File: chunk.Begin.File, Block: chunk.Begin.Block},
		})
	}
	var ixBuf bytes.Buffer
	if err := WriteIndex(&ixBuf, entries); err != nil {
		t.Fatalf("write index: %v", err)
	}
	backend := memBackendWith(t, map[string][]byte{
		"reads.bam":          data,
		IndexKey("reads.bam"): ixBuf.Bytes(),
	})
	table, err := NewTable("alignments", FormatBAM, backend, "reads.bam", WithIndex())
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	return backend, table
}

func TestIndexedScan_BAMRegion(t *testing.T) {
	_, table := indexedBAMFixture(t)
	region, err := ParseRegion("ref1:11-14")
	if err != nil {
		t.Fatalf("parse region: %v", err)
	}
	stream, err := table.Scan(context.Background(), ScanRequest{Region: &region})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	rows := drainRows(t, stream)
	if len(rows) != 1 {
		t.Fatalf("expected 1 overlapping alignment, got %d", len(rows))
	}
	if rows[0][0] != "ref1_grp1_p002" {
		t.Errorf("expected ref1_grp1_p002, got %v", rows[0][0])
	}
}

func TestIndexedScan_BAMAgreesWithFullScan(t *testing.T) {
	backend, indexed := indexedBAMFixture(t)
	full, err := NewTable("fullbam", FormatBAM, backend, "reads.bam")
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	for _, spec := range []string{"ref1", "ref2", "ref1:6-10"} {
		region, err := ParseRegion(spec)
		if err != nil {
			t.Fatalf("%s: %v", spec, err)
		}
		idxStream, err := indexed.Scan(context.Background(), ScanRequest{Region: &region})
		if err != nil {
			t.Fatalf("%s indexed scan: %v", spec, err)
		}
		idxRows := drainRows(t, idxStream)

		fullStream, err := full.Scan(context.Background(), ScanRequest{Region: &region})
		if err != nil {
			t.Fatalf("%s full scan: %v", spec, err)
		}
		fullRows := drainRows(t, fullStream)

		if len(idxRows) != len(fullRows) {
			t.Errorf("%s: indexed %d rows, full %d rows", spec, len(idxRows), len(fullRows))
			continue
		}
		for i := range idxRows {
			if idxRows[i][0] != fullRows[i][0] {
				t.Errorf("%s row %d: indexed %v, full %v", spec, i, idxRows[i][0], fullRows[i][0])
			}
		}
	}
}
