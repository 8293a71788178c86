package seqtable

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// sdfDecoder yields one row per SDF/MDL molfile record: the three header
// lines, the atom and bond counts from the counts line, and a data map of the
// trailing > <name> annotation blocks (canonical_smiles and friends).
type sdfDecoder struct {
	sc     *bufio.Scanner
	file   string
	record int64
	done   bool
}

func newSDFDecoder(r io.Reader, file string) *sdfDecoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &sdfDecoder{sc: sc, file: file}
}

func (d *sdfDecoder) Next() ([]any, error) {
	if d.done {
		return nil, io.EOF
	}
	// Header block: title, program, comment. Leading blank lines between
	// records are tolerated.
	var header []string
	for len(header) < 3 {
		if !d.sc.Scan() {
			if err := d.sc.Err(); err != nil {
				return nil, newDecodeError(FormatSDF, d.file, d.record, "read line", err)
			}
			d.done = true
			if len(header) == 0 || allBlank(header) {
				return nil, io.EOF
			}
			return nil, newDecodeError(FormatSDF, d.file, d.record+1, "truncated header", nil)
		}
		line := strings.TrimRight(d.sc.Text(), "\r")
		if len(header) == 0 && line == "" && d.record > 0 {
			continue
		}
		header = append(header, line)
	}
	d.record++

	if !d.sc.Scan() {
		return nil, newDecodeError(FormatSDF, d.file, d.record, "missing counts line", nil)
	}
	counts := strings.TrimRight(d.sc.Text(), "\r")
	atoms, bonds, err := parseCountsLine(counts)
	if err != nil {
		return nil, newDecodeError(FormatSDF, d.file, d.record, "malformed counts line", err)
	}

	// Skip the atom and bond blocks up to the M END terminator.
	for d.sc.Scan() {
		line := strings.TrimSpace(d.sc.Text())
		if line == "M  END" || line == "M END" {
			break
		}
	}

	// Data items: "> <name>" followed by value lines, blank-line terminated;
	// "$$$$" ends the record.
	data := make(map[string]string)
	name := ""
	var value []string
	flush := func() {
		if name != "" {
			data[name] = strings.Join(value, "\n")
		}
		name = ""
		value = value[:0]
	}
	for d.sc.Scan() {
		line := strings.TrimRight(d.sc.Text(), "\r")
		if strings.HasPrefix(line, "$$$$") {
			flush()
			row := d.buildRow(header, atoms, bonds, data)
			return row, nil
		}
		if strings.HasPrefix(line, ">") {
			flush()
			name = dataItemName(line)
			continue
		}
		if line == "" {
			flush()
			continue
		}
		if name != "" {
			value = append(value, line)
		}
	}
	if err := d.sc.Err(); err != nil {
		return nil, newDecodeError(FormatSDF, d.file, d.record, "read line", err)
	}
	// Final record without the $$$$ terminator.
	flush()
	d.done = true
	return d.buildRow(header, atoms, bonds, data), nil
}

func (d *sdfDecoder) buildRow(header []string, atoms, bonds int64, data map[string]string) []any {
	row := make([]any, 4)
	if h := strings.TrimSpace(strings.Join(header, "\n")); h != "" {
		row[0] = h
	}
	row[1] = atoms
	row[2] = bonds
	if len(data) > 0 {
		row[3] = data
	}
	return row
}

// parseCountsLine reads the fixed-width V2000 counts line; whitespace-split
// parsing also accepts the loose form fixtures use.
func parseCountsLine(line string) (atoms, bonds int64, err error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0, 0, errString("counts line has fewer than 2 fields")
	}
	if atoms, err = strconv.ParseInt(fields[0], 10, 64); err != nil {
		return 0, 0, err
	}
	if bonds, err = strconv.ParseInt(fields[1], 10, 64); err != nil {
		return 0, 0, err
	}
	return atoms, bonds, nil
}

// dataItemName extracts the annotation name from a "> <name>" header line.
func dataItemName(line string) string {
	if i := strings.Index(line, "<"); i >= 0 {
		if j := strings.Index(line[i+1:], ">"); j >= 0 {
			return line[i+1 : i+1+j]
		}
	}
	return strings.TrimSpace(strings.TrimPrefix(line, ">"))
}

func allBlank(lines []string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			return false
		}
	}
	return true
}
