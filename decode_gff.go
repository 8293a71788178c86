package seqtable

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// gffDecoder yields one row per GFF3 or GTF feature line. The two dialects
// share the nine-column layout; unparseable optional fields (GTF score and
// frame in particular) decode to null rather than failing the row.
type gffDecoder struct {
	sc     *bufio.Scanner
	file   string
	format Format
	record int64
}

func newGFFDecoder(r io.Reader, file string, format Format) *gffDecoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &gffDecoder{sc: sc, file: file, format: format}
}

func (d *gffDecoder) Next() ([]any, error) {
	for {
		if !d.sc.Scan() {
			if err := d.sc.Err(); err != nil {
				return nil, newDecodeError(d.format, d.file, d.record, "read line", err)
			}
			return nil, io.EOF
		}
		line := strings.TrimRight(d.sc.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		d.record++
		return d.decodeLine(line)
	}
}

func (d *gffDecoder) decodeLine(line string) ([]any, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 8 {
		return nil, newDecodeError(d.format, d.file, d.record, "record has fewer than 8 fields", nil)
	}
	start, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, newDecodeError(d.format, d.file, d.record, "invalid start", err)
	}
	end, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return nil, newDecodeError(d.format, d.file, d.record, "invalid end", err)
	}

	row := make([]any, 9)
	row[0] = fields[0]
	if fields[1] != "." && fields[1] != "" {
		row[1] = fields[1]
	}
	row[2] = fields[2]
	row[3] = start
	row[4] = end
	if score, err := strconv.ParseFloat(fields[5], 64); err == nil {
		row[5] = score
	}
	if fields[6] == "+" || fields[6] == "-" {
		row[6] = fields[6]
	}
	if frame, err := strconv.ParseInt(fields[7], 10, 64); err == nil {
		row[7] = frame
	}
	if len(fields) > 8 && fields[8] != "" && fields[8] != "." {
		row[8] = fields[8]
	}
	return row, nil
}

// Coordinates reports the feature span converted from 1-based inclusive to
// half-open 0-based.
func (d *gffDecoder) Coordinates(row []any) (string, int64, int64, bool) {
	chrom, _ := row[0].(string)
	start, ok1 := row[3].(int64)
	end, ok2 := row[4].(int64)
	return chrom, start - 1, end, ok1 && ok2
}
