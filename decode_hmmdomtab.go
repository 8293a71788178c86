package seqtable

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// hmmDomTabDecoder yields one row per HMMER domtblout line. The table is
// whitespace-aligned with 22 fixed columns; everything after the 22nd column
// is the free-text target description.
type hmmDomTabDecoder struct {
	sc     *bufio.Scanner
	file   string
	record int64
}

const hmmDomTabColumns = 22

func newHMMDomTabDecoder(r io.Reader, file string) *hmmDomTabDecoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &hmmDomTabDecoder{sc: sc, file: file}
}

func (d *hmmDomTabDecoder) Next() ([]any, error) {
	for {
		if !d.sc.Scan() {
			if err := d.sc.Err(); err != nil {
				return nil, newDecodeError(FormatHMMDomTab, d.file, d.record, "read line", err)
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

func (d *hmmDomTabDecoder) decodeLine(line string) ([]any, error) {
	fields := strings.Fields(line)
	if len(fields) < hmmDomTabColumns {
		return nil, newDecodeError(FormatHMMDomTab, d.file, d.record, "record has fewer than 22 fields", nil)
	}

	parseInt := func(i int) (int64, error) { return strconv.ParseInt(fields[i], 10, 64) }
	parseFloat := func(i int) (float64, error) { return strconv.ParseFloat(fields[i], 64) }

	row := make([]any, 23)
	row[0] = fields[0]
	if fields[1] != "-" {
		row[1] = fields[1]
	}
	var err error
	if row[2], err = parseInt(2); err != nil {
		return nil, newDecodeError(FormatHMMDomTab, d.file, d.record, "invalid tlen", err)
	}
	row[3] = fields[3]
	if fields[4] != "-" {
		row[4] = fields[4]
	}
	intCols := map[int]string{5: "qlen", 9: "domain_number", 10: "ndom",
		15: "hmm_from", 16: "hmm_to", 17: "ali_from", 18: "ali_to", 19: "env_from", 20: "env_to"}
	floatCols := map[int]string{6: "sequence_evalue", 7: "sequence_score", 8: "sequence_bias",
		11: "domain_cevalue", 12: "domain_ievalue", 13: "domain_score", 14: "domain_bias", 21: "acc"}
	for i, name := range intCols {
		v, err := parseInt(i)
		if err != nil {
			return nil, newDecodeError(FormatHMMDomTab, d.file, d.record, "invalid "+name, err)
		}
		row[i] = v
	}
	for i, name := range floatCols {
		v, err := parseFloat(i)
		if err != nil {
			return nil, newDecodeError(FormatHMMDomTab, d.file, d.record, "invalid "+name, err)
		}
		row[i] = v
	}
	if len(fields) > hmmDomTabColumns {
		desc := strings.Join(fields[hmmDomTabColumns:], " ")
		if desc != "-" {
			row[22] = desc
		}
	}
	return row, nil
}
