package seqtable

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// bedDecoder yields one row per BED interval. The three coordinate fields are
// required; the nine optional fields decode to null when absent.
type bedDecoder struct {
	sc     *bufio.Scanner
	file   string
	record int64
}

func newBEDDecoder(r io.Reader, file string) *bedDecoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &bedDecoder{sc: sc, file: file}
}

func (d *bedDecoder) Next() ([]any, error) {
	for {
		if !d.sc.Scan() {
			if err := d.sc.Err(); err != nil {
				return nil, newDecodeError(FormatBED, d.file, d.record, "read line", err)
			}
			return nil, io.EOF
		}
		line := strings.TrimRight(d.sc.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") ||
			strings.HasPrefix(line, "track") || strings.HasPrefix(line, "browser") {
			continue
		}
		d.record++
		return d.decodeLine(line)
	}
}

func (d *bedDecoder) decodeLine(line string) ([]any, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 3 {
		return nil, newDecodeError(FormatBED, d.file, d.record, "record has fewer than 3 fields", nil)
	}
	start, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, newDecodeError(FormatBED, d.file, d.record, "invalid start", err)
	}
	end, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return nil, newDecodeError(FormatBED, d.file, d.record, "invalid end", err)
	}

	row := make([]any, 12)
	row[0] = fields[0]
	row[1] = start
	row[2] = end
	opt := func(i int) string {
		if i < len(fields) && fields[i] != "" && fields[i] != "." {
			return fields[i]
		}
		return ""
	}
	if v := opt(3); v != "" {
		row[3] = v
	}
	if v := opt(4); v != "" {
		if score, err := strconv.ParseInt(v, 10, 64); err == nil {
			row[4] = score
		}
	}
	if v := opt(5); v != "" {
		row[5] = v
	}
	if v := opt(6); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			row[6] = n
		}
	}
	if v := opt(7); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			row[7] = n
		}
	}
	if v := opt(8); v != "" {
		row[8] = v
	}
	if v := opt(9); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			row[9] = n
		}
	}
	if v := opt(10); v != "" {
		row[10] = v
	}
	if v := opt(11); v != "" {
		row[11] = v
	}
	return row, nil
}

// Coordinates reports the BED interval, already half-open 0-based on disk.
func (d *bedDecoder) Coordinates(row []any) (string, int64, int64, bool) {
	chrom, _ := row[0].(string)
	start, ok1 := row[1].(int64)
	end, ok2 := row[2].(int64)
	return chrom, start, end, ok1 && ok2
}
