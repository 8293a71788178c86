package seqtable

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// vcfDecoder yields one row per VCF record under the 9-column base schema.
// INFO and FORMAT expand into maps keyed by the header-declared field names
// when the session flags are set; otherwise they stay opaque delimited
// strings.
type vcfDecoder struct {
	src    io.Reader
	br     *bufio.Reader
	file   string
	opts   ScanOptions
	record int64

	headerDone bool
	infoIDs    map[string]bool
	formatIDs  map[string]bool
}

func newVCFDecoder(r io.Reader, file string, opts ScanOptions) *vcfDecoder {
	return &vcfDecoder{
		src:       r,
		br:        bufio.NewReaderSize(r, 64*1024),
		file:      file,
		opts:      opts,
		infoIDs:   make(map[string]bool),
		formatIDs: make(map[string]bool),
	}
}

// readHeader consumes the meta and header lines without touching the first
// record, collecting declared INFO and FORMAT field names.
func (d *vcfDecoder) readHeader() error {
	for {
		b, err := d.br.Peek(1)
		if err == io.EOF {
			d.headerDone = true
			return nil
		}
		if err != nil {
			return newDecodeError(FormatVCF, d.file, 0, "read header", err)
		}
		if b[0] != '#' {
			d.headerDone = true
			return nil
		}
		line, err := d.br.ReadString('\n')
		if err != nil && err != io.EOF {
			return newDecodeError(FormatVCF, d.file, 0, "read header", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if id, ok := headerFieldID(line, "##INFO="); ok {
			d.infoIDs[id] = true
		}
		if id, ok := headerFieldID(line, "##FORMAT="); ok {
			d.formatIDs[id] = true
		}
		if err == io.EOF {
			d.headerDone = true
			return nil
		}
	}
}

// headerFieldID extracts the ID from a structured meta line such as
// ##INFO=<ID=DP,Number=1,...>.
func headerFieldID(line, prefix string) (string, bool) {
	if !strings.HasPrefix(line, prefix) {
		return "", false
	}
	body := strings.TrimPrefix(line, prefix)
	body = strings.TrimPrefix(body, "<")
	for _, part := range strings.Split(body, ",") {
		if strings.HasPrefix(part, "ID=") {
			return strings.TrimSuffix(strings.TrimPrefix(part, "ID="), ">"), true
		}
	}
	return "", false
}

// seek repositions the decoder at a bgzf virtual offset. Only issued by the
// region scanner, which negotiates bgzf streams exclusively.
func (d *vcfDecoder) seek(off VirtualOffset) error {
	rc, ok := d.src.(io.ReadCloser)
	if !ok {
		return &CodecError{Codec: CompressionBGZF, Message: "seek requested", Cause: ErrNotSeekable}
	}
	if err := seekVirtual(rc, off); err != nil {
		return err
	}
	d.br.Reset(d.src)
	return nil
}

func (d *vcfDecoder) Next() ([]any, error) {
	if !d.headerDone {
		if err := d.readHeader(); err != nil {
			return nil, err
		}
	}
	for {
		line, err := d.br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, newDecodeError(FormatVCF, d.file, d.record, "read record", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if err == io.EOF {
				return nil, io.EOF
			}
			continue
		}
		d.record++
		row, derr := d.decodeLine(line)
		if derr != nil {
			return nil, derr
		}
		return row, nil
	}
}

func (d *vcfDecoder) decodeLine(line string) ([]any, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 8 {
		return nil, newDecodeError(FormatVCF, d.file, d.record, "record has fewer than 8 fields", nil)
	}
	pos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, newDecodeError(FormatVCF, d.file, d.record, "invalid position", err)
	}

	row := make([]any, 9)
	row[0] = fields[0]
	row[1] = pos
	row[2] = vcfOptional(fields[2])
	row[3] = fields[3]
	row[4] = vcfOptional(fields[4])
	if q := vcfOptional(fields[5]); q != nil {
		qual, err := strconv.ParseFloat(fields[5], 64)
		if err != nil {
			return nil, newDecodeError(FormatVCF, d.file, d.record, "invalid quality", err)
		}
		row[5] = qual
	}
	row[6] = vcfOptional(fields[6])

	if info := vcfOptional(fields[7]); info != nil {
		if d.opts.ParseVCFInfo && d.opts.needs("info") {
			row[7] = d.expandInfo(fields[7])
		} else if !d.opts.ParseVCFInfo {
			row[7] = fields[7]
		} else {
			row[7] = map[string]string{}
		}
	}

	if len(fields) >= 10 {
		if d.opts.ParseVCFFormat && d.opts.needs("format") {
			row[8] = d.expandFormat(fields[8], fields[9])
		} else if !d.opts.ParseVCFFormat {
			row[8] = strings.Join(fields[8:], "\t")
		} else {
			row[8] = map[string]string{}
		}
	}
	return row, nil
}

// expandInfo splits the semicolon-delimited INFO text into a map. Flag-type
// fields carry no value and are represented as explicitly empty, never as an
// ambiguous null.
func (d *vcfDecoder) expandInfo(info string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(info, ";") {
		if part == "" {
			continue
		}
		if i := strings.Index(part, "="); i >= 0 {
			out[part[:i]] = part[i+1:]
		} else {
			out[part] = ""
		}
	}
	return out
}

// expandFormat zips the colon-delimited FORMAT keys with the first sample's
// values.
func (d *vcfDecoder) expandFormat(format, sample string) map[string]string {
	keys := strings.Split(format, ":")
	values := strings.Split(sample, ":")
	out := make(map[string]string, len(keys))
	for i, k := range keys {
		if i < len(values) {
			out[k] = values[i]
		} else {
			out[k] = ""
		}
	}
	return out
}

// vcfOptional maps the VCF missing-value marker to null.
func vcfOptional(s string) any {
	if s == "" || s == "." {
		return nil
	}
	return s
}

// Coordinates reports the record's position as a half-open single-base
// interval.
func (d *vcfDecoder) Coordinates(row []any) (string, int64, int64, bool) {
	chrom, _ := row[0].(string)
	pos, ok := row[1].(int64)
	if !ok {
		return "", 0, 0, false
	}
	return chrom, pos - 1, pos, true
}
