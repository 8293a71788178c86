package seqtable

import (
	"bufio"
	"io"
	"strings"
)

// genBankDecoder yields one row per GenBank flat-file entry, terminated by
// the // record separator. Scalar columns come from the LOCUS and metadata
// keyword lines; ORIGIN sequence lines concatenate into the sequence column.
type genBankDecoder struct {
	sc     *bufio.Scanner
	file   string
	record int64
	done   bool
}

func newGenBankDecoder(r io.Reader, file string) *genBankDecoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &genBankDecoder{sc: sc, file: file}
}

func (d *genBankDecoder) Next() ([]any, error) {
	if d.done {
		return nil, io.EOF
	}
	row := make([]any, 12)
	sawLocus := false
	inOrigin := false
	var seq strings.Builder

	set := func(i int, v string) {
		v = strings.TrimSpace(v)
		if v != "" && v != "." {
			row[i] = v
		}
	}

	for d.sc.Scan() {
		line := strings.TrimRight(d.sc.Text(), "\r")
		if strings.HasPrefix(line, "//") {
			if !sawLocus {
				return nil, newDecodeError(FormatGenBank, d.file, d.record+1, "record separator before LOCUS", nil)
			}
			d.record++
			if seq.Len() > 0 {
				row[11] = seq.String()
			}
			return row, nil
		}
		switch {
		case strings.HasPrefix(line, "LOCUS"):
			sawLocus = true
			inOrigin = false
			fields := strings.Fields(line)
			if len(fields) < 2 {
				return nil, newDecodeError(FormatGenBank, d.file, d.record+1, "malformed LOCUS line", nil)
			}
			row[0] = fields[1]
			// LOCUS carries molecule type, topology, division, and date in
			// fixed trailing fields when present.
			if len(fields) >= 5 {
				set(10, fields[4])
			}
			if len(fields) >= 6 {
				set(8, fields[5])
			}
			if len(fields) >= 7 {
				set(9, fields[6])
			}
			if len(fields) >= 8 {
				set(7, fields[7])
			}
		case strings.HasPrefix(line, "DEFINITION"):
			set(3, strings.TrimPrefix(line, "DEFINITION"))
		case strings.HasPrefix(line, "ACCESSION"):
			set(1, strings.TrimPrefix(line, "ACCESSION"))
		case strings.HasPrefix(line, "VERSION"):
			set(2, strings.TrimPrefix(line, "VERSION"))
		case strings.HasPrefix(line, "KEYWORDS"):
			set(4, strings.TrimPrefix(line, "KEYWORDS"))
		case strings.HasPrefix(line, "SOURCE"):
			set(5, strings.TrimPrefix(line, "SOURCE"))
		case strings.HasPrefix(line, "  ORGANISM"):
			set(6, strings.TrimPrefix(line, "  ORGANISM"))
		case strings.HasPrefix(line, "ORIGIN"):
			inOrigin = true
		case inOrigin:
			for _, f := range strings.Fields(line) {
				if f[0] >= '0' && f[0] <= '9' {
					continue
				}
				seq.WriteString(f)
			}
		}
	}
	if err := d.sc.Err(); err != nil {
		return nil, newDecodeError(FormatGenBank, d.file, d.record, "read line", err)
	}
	d.done = true
	if sawLocus {
		// Tolerate a final record without the // separator.
		d.record++
		if seq.Len() > 0 {
			row[11] = seq.String()
		}
		return row, nil
	}
	return nil, io.EOF
}
