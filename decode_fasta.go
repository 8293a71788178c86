package seqtable

import (
	"bufio"
	"io"
	"strings"
)

// fastaDecoder yields one row per FASTA record: id, description, sequence.
type fastaDecoder struct {
	sc     *bufio.Scanner
	file   string
	record int64
	// header of the next record, carried over after the previous sequence.
	pending string
	done    bool
}

func newFASTADecoder(r io.Reader, file string) *fastaDecoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &fastaDecoder{sc: sc, file: file}
}

// maxLineBytes bounds a single input line across the text decoders.
const maxLineBytes = 64 * 1024 * 1024

func (d *fastaDecoder) Next() ([]any, error) {
	header := d.pending
	d.pending = ""
	for header == "" {
		if d.done || !d.sc.Scan() {
			if err := d.sc.Err(); err != nil {
				return nil, newDecodeError(FormatFASTA, d.file, d.record, "read line", err)
			}
			return nil, io.EOF
		}
		line := strings.TrimRight(d.sc.Text(), "\r")
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, ">") {
			return nil, newDecodeError(FormatFASTA, d.file, d.record+1, "expected record header", nil)
		}
		header = line
	}
	d.record++

	var seq strings.Builder
	for d.sc.Scan() {
		line := strings.TrimRight(d.sc.Text(), "\r")
		if strings.HasPrefix(line, ">") {
			d.pending = line
			break
		}
		seq.WriteString(strings.TrimSpace(line))
	}
	if err := d.sc.Err(); err != nil {
		return nil, newDecodeError(FormatFASTA, d.file, d.record, "read sequence", err)
	}
	if d.pending == "" {
		d.done = true
	}
	if seq.Len() == 0 {
		return nil, newDecodeError(FormatFASTA, d.file, d.record, "record has no sequence", nil)
	}

	id, desc := splitFASTAHeader(header)
	row := []any{id, nil, seq.String()}
	if desc != "" {
		row[1] = desc
	}
	return row, nil
}

func splitFASTAHeader(header string) (id, description string) {
	header = strings.TrimPrefix(header, ">")
	if i := strings.IndexAny(header, " \t"); i >= 0 {
		return header[:i], strings.TrimSpace(header[i+1:])
	}
	return header, ""
}
