package seqtable

import (
	"bytes"
	"compress/gzip"
	"context"
	"strconv"
	"testing"

	"github.com/biogo/hts/bgzf"
	"github.com/klauspost/compress/zstd"
)

const testVCFHeader = `##fileformat=VCFv4.2
##INFO=<ID=DP,Number=1,Type=Integer,Description="Total Depth">
##INFO=<ID=DB,Number=0,Type=Flag,Description="dbSNP membership">
##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">
##FORMAT=<ID=GQ,Number=1,Type=Integer,Description="Genotype Quality">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	sample1
`

func testVCFLine(chrom string, pos int64, id, ref, alt string) string {
	return chrom + "\t" + strconv.FormatInt(pos, 10) + "\t" + id + "\t" + ref + "\t" + alt +
		"\t30.0\tPASS\tDP=10;DB\tGT:GQ\t0/1:99\n"
}

const testSAMData = `@HD	VN:1.6	SO:coordinate
@SQ	SN:ref1	LN:100
@SQ	SN:ref2	LN:100
ref1_grp1_p001	99	ref1	1	60	10M	=	21	30	ACGTACGTAC	IIIIIIIIII	NM:i:0
ref1_grp1_p002	99	ref1	5	60	10M	=	25	30	ACGTACGTAC	IIIIIIIIII	NM:i:1
ref2_grp1_p001	99	ref2	1	60	10M	=	21	30	ACGTACGTAC	IIIIIIIIII	NM:i:0
`

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func zstdBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("zstd write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zstd close: %v", err)
	}
	return buf.Bytes()
}

// bgzfBlocks compresses each chunk into its own bgzf block and returns the
// stream plus the file offset of every block start.
func bgzfBlocks(t *testing.T, chunks ...[]byte) ([]byte, []int64) {
	t.Helper()
	var buf bytes.Buffer
	offsets := make([]int64, 0, len(chunks))
	zw := bgzf.NewWriter(&buf, 1)
	for _, chunk := range chunks {
		if err := zw.Wait(); err != nil {
			t.Fatalf("bgzf wait: %v", err)
		}
		offsets = append(offsets, int64(buf.Len()))
		if _, err := zw.Write(chunk); err != nil {
			t.Fatalf("bgzf write: %v", err)
		}
		if err := zw.Flush(); err != nil {
			t.Fatalf("bgzf flush: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("bgzf close: %v", err)
	}
	return buf.Bytes(), offsets
}

// memBackendWith builds a MemoryBackend pre-loaded with the given objects.
func memBackendWith(t *testing.T, objects map[string][]byte) *MemoryBackend {
	t.Helper()
	b := NewMemoryBackend()
	ctx := context.Background()
	for key, data := range objects {
		if err := b.Write(ctx, key, data); err != nil {
			t.Fatalf("seed %s: %v", key, err)
		}
	}
	return b
}

// drainRows collects every row of a scan, failing the test on stream error.
func drainRows(t *testing.T, stream *BatchStream) [][]any {
	t.Helper()
	rows, err := ReadAll(context.Background(), stream)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	return rows
}
