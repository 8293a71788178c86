package seqtable

import (
	"io"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/bgzf"
)

// bamDecoder yields one row per BAM alignment record under the same schema
// as the SAM decoder. The reader consumes the raw byte stream and performs
// its own bgzf block decompression.
type bamDecoder struct {
	r      *bam.Reader
	file   string
	opts   ScanOptions
	record int64
}

func newBAMDecoder(r io.Reader, file string, opts ScanOptions) (*bamDecoder, error) {
	br, err := bam.NewReader(r, 0)
	if err != nil {
		return nil, newDecodeError(FormatBAM, file, 0, "read header", err)
	}
	return &bamDecoder{r: br, file: file, opts: opts}, nil
}

func (d *bamDecoder) Next() ([]any, error) {
	rec, err := d.r.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, newDecodeError(FormatBAM, d.file, d.record+1, "malformed record", err)
	}
	d.record++
	return alignmentRow(rec, d.opts), nil
}

// Coordinates reports the alignment span of a decoded row, half-open 0-based.
func (d *bamDecoder) Coordinates(row []any) (string, int64, int64, bool) {
	return alignmentCoordinates(row)
}

// seek positions the reader at a bgzf virtual offset. The underlying byte
// source must be an io.ReadSeeker.
func (d *bamDecoder) seek(off VirtualOffset) error {
	return d.r.Seek(bgzf.Offset{File: off.File, Block: off.Block})
}

func (d *bamDecoder) close() error {
	return d.r.Close()
}
