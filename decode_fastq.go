package seqtable

import (
	"bufio"
	"io"
	"strings"
)

// fastqDecoder yields one row per FASTQ record: name, description, sequence,
// quality scores decoded from Phred+33 ASCII to a numeric array.
type fastqDecoder struct {
	sc     *bufio.Scanner
	file   string
	record int64
}

func newFASTQDecoder(r io.Reader, file string) *fastqDecoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &fastqDecoder{sc: sc, file: file}
}

func (d *fastqDecoder) Next() ([]any, error) {
	header, ok, err := d.line()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, io.EOF
	}
	d.record++
	if !strings.HasPrefix(header, "@") {
		return nil, newDecodeError(FormatFASTQ, d.file, d.record, "expected @ record header", nil)
	}

	seq, ok, err := d.line()
	if err != nil {
		return nil, err
	}
	sep := ""
	if ok {
		sep, ok, err = d.line()
		if err != nil {
			return nil, err
		}
	}
	qual := ""
	if ok {
		qual, ok, err = d.line()
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, newDecodeError(FormatFASTQ, d.file, d.record, "truncated record", nil)
	}
	if !strings.HasPrefix(sep, "+") {
		return nil, newDecodeError(FormatFASTQ, d.file, d.record, "expected + separator", nil)
	}
	if len(qual) != len(seq) {
		return nil, newDecodeError(FormatFASTQ, d.file, d.record, "quality length does not match sequence length", nil)
	}

	scores, err := QualityScoresToList(qual)
	if err != nil {
		return nil, newDecodeError(FormatFASTQ, d.file, d.record, "decode quality scores", err)
	}

	name, desc := splitFASTAHeader(strings.Replace(header, "@", ">", 1))
	row := []any{name, nil, seq, scores}
	if desc != "" {
		row[1] = desc
	}
	return row, nil
}

func (d *fastqDecoder) line() (string, bool, error) {
	if !d.sc.Scan() {
		if err := d.sc.Err(); err != nil {
			return "", false, newDecodeError(FormatFASTQ, d.file, d.record, "read line", err)
		}
		return "", false, nil
	}
	return strings.TrimRight(d.sc.Text(), "\r"), true, nil
}
