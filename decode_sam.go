package seqtable

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/biogo/hts/sam"
)

// samDecoder yields one row per SAM alignment record. Parsing is delegated to
// biogo/hts; this decoder maps records onto the alignment schema and formats
// auxiliary tags.
type samDecoder struct {
	r      *sam.Reader
	file   string
	opts   ScanOptions
	record int64
}

func newSAMDecoder(r io.Reader, file string, opts ScanOptions) (*samDecoder, error) {
	sr, err := sam.NewReader(r)
	if err != nil {
		return nil, newDecodeError(FormatSAM, file, 0, "read header", err)
	}
	return &samDecoder{r: sr, file: file, opts: opts}, nil
}

func (d *samDecoder) Next() ([]any, error) {
	rec, err := d.r.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, newDecodeError(FormatSAM, d.file, d.record+1, "malformed record", err)
	}
	d.record++
	return alignmentRow(rec, d.opts), nil
}

// Coordinates reports the alignment span of a decoded row, half-open 0-based.
func (d *samDecoder) Coordinates(row []any) (string, int64, int64, bool) {
	return alignmentCoordinates(row)
}

// alignmentRow maps a SAM/BAM record onto the shared alignment schema:
// name, flag, reference, start, end, mapping_quality, cigar, mate_reference,
// sequence, quality_scores, tags. Positions are 1-based in the emitted
// columns, matching the text representation of the formats.
func alignmentRow(rec *sam.Record, opts ScanOptions) []any {
	row := make([]any, 11)
	row[0] = rec.Name
	row[1] = int64(uint16(rec.Flags))
	if rec.Ref != nil {
		row[2] = rec.Ref.Name()
		row[3] = int64(rec.Start() + 1)
		row[4] = int64(rec.End())
	}
	if rec.MapQ != 0xff {
		row[5] = strconv.Itoa(int(rec.MapQ))
	}
	row[6] = rec.Cigar.String()
	if rec.MateRef != nil {
		row[7] = rec.MateRef.Name()
	}
	row[8] = string(rec.Seq.Expand())
	row[9] = qualityColumn(rec.Qual)
	row[10] = tagColumn(rec.AuxFields, opts)
	return row
}

func alignmentCoordinates(row []any) (string, int64, int64, bool) {
	chrom, ok := row[2].(string)
	if !ok {
		return "", 0, 0, false
	}
	start, _ := row[3].(int64)
	end, _ := row[4].(int64)
	return chrom, start - 1, end, true
}

// qualityColumn converts raw Phred scores to the numeric array column. A
// missing quality string (0xff filler) yields an empty list.
func qualityColumn(qual []byte) []int64 {
	out := make([]int64, 0, len(qual))
	for _, q := range qual {
		if q == 0xff {
			break
		}
		out = append(out, int64(q))
	}
	return out
}

// tagColumn renders auxiliary tags either as a typed map or as the opaque
// tab-delimited text form, per session options. Tag parsing is skipped
// entirely when the tags column is not projected.
func tagColumn(aux []sam.Aux, opts ScanOptions) any {
	if len(aux) == 0 || !opts.needs("tags") {
		return nil
	}
	if opts.ParseSAMTags {
		out := make(map[string]string, len(aux))
		for _, a := range aux {
			out[a.Tag().String()] = formatAux(a)
		}
		return out
	}
	parts := make([]string, len(aux))
	for i, a := range aux {
		parts[i] = a.String()
	}
	return strings.Join(parts, "\t")
}

// formatAux renders a tag value. The dispatch follows the declared aux type
// byte, not the Go type of the value: biogo stores integer tags at their
// minimized width, so an i tag can surface as uint8, which is
// indistinguishable from the A character type by Go type alone.
func formatAux(a sam.Aux) string {
	v := a.Value()
	switch a.Type() {
	case 'A':
		if b, ok := v.(byte); ok {
			return string(rune(b))
		}
	case 'c', 'C', 's', 'S', 'i', 'I':
		return formatAuxInt(v)
	}
	return formatAuxValue(v)
}

func formatAuxInt(v any) string {
	switch val := v.(type) {
	case int8:
		return strconv.FormatInt(int64(val), 10)
	case uint8:
		return strconv.FormatUint(uint64(val), 10)
	case int16:
		return strconv.FormatInt(int64(val), 10)
	case uint16:
		return strconv.FormatUint(uint64(val), 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case uint32:
		return strconv.FormatUint(uint64(val), 10)
	case int:
		return strconv.Itoa(val)
	default:
		return fmt.Sprint(v)
	}
}

// formatAuxValue renders string, float, and numeric array values. Array tags
// (the B type) render as a bracketed comma-separated list.
func formatAuxValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case []int8:
		return bracketList(len(val), func(i int) string { return strconv.FormatInt(int64(val[i]), 10) })
	case []uint8:
		return bracketList(len(val), func(i int) string { return strconv.FormatUint(uint64(val[i]), 10) })
	case []int16:
		return bracketList(len(val), func(i int) string { return strconv.FormatInt(int64(val[i]), 10) })
	case []uint16:
		return bracketList(len(val), func(i int) string { return strconv.FormatUint(uint64(val[i]), 10) })
	case []int32:
		return bracketList(len(val), func(i int) string { return strconv.FormatInt(int64(val[i]), 10) })
	case []uint32:
		return bracketList(len(val), func(i int) string { return strconv.FormatUint(uint64(val[i]), 10) })
	case []float32:
		return bracketList(len(val), func(i int) string {
			return strconv.FormatFloat(float64(val[i]), 'g', -1, 32)
		})
	default:
		return fmt.Sprint(v)
	}
}

func bracketList(n int, elem func(int) string) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(elem(i))
	}
	sb.WriteByte(']')
	return sb.String()
}
