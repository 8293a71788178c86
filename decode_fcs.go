package seqtable

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// fcsDecoder yields flow-cytometry events in long form: one row per
// (event, channel) pair with the measured value. The channel set varies per
// file, so the long layout keeps the relational schema fixed while the TEXT
// segment's $PnN names remain queryable as the channel column.
type fcsDecoder struct {
	file     string
	channels []string
	events   [][]float64
	event    int
	channel  int
}

func newFCSDecoder(r io.Reader, file string) (*fcsDecoder, error) {
	// FCS files interleave offsets and segments, so the decoder materializes
	// the byte stream; files are bounded by event count in practice.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, newDecodeError(FormatFCS, file, 0, "read stream", err)
	}
	d := &fcsDecoder{file: file}
	if err := d.parse(data); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *fcsDecoder) parse(data []byte) error {
	if len(data) < 58 || !strings.HasPrefix(string(data[:6]), "FCS") {
		return newDecodeError(FormatFCS, d.file, 0, "not an FCS header", nil)
	}
	offset := func(at int) (int64, error) {
		return strconv.ParseInt(strings.TrimSpace(string(data[at:at+8])), 10, 64)
	}
	textStart, err1 := offset(10)
	textEnd, err2 := offset(18)
	dataStart, err3 := offset(26)
	dataEnd, err4 := offset(34)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return newDecodeError(FormatFCS, d.file, 0, "malformed segment offsets", nil)
	}
	if textEnd >= int64(len(data)) || textStart >= textEnd {
		return newDecodeError(FormatFCS, d.file, 0, "TEXT segment out of bounds", nil)
	}

	keywords, err := parseFCSText(data[textStart : textEnd+1])
	if err != nil {
		return newDecodeError(FormatFCS, d.file, 0, "parse TEXT segment", err)
	}

	par, err := strconv.Atoi(keywords["$PAR"])
	if err != nil || par <= 0 {
		return newDecodeError(FormatFCS, d.file, 0, "missing $PAR keyword", err)
	}
	tot, err := strconv.Atoi(keywords["$TOT"])
	if err != nil || tot < 0 {
		return newDecodeError(FormatFCS, d.file, 0, "missing $TOT keyword", err)
	}
	d.channels = make([]string, par)
	for i := range d.channels {
		name := keywords[fmt.Sprintf("$P%dN", i+1)]
		if name == "" {
			name = fmt.Sprintf("P%d", i+1)
		}
		d.channels[i] = name
	}

	bigEndian := strings.HasPrefix(keywords["$BYTEORD"], "4,3")
	datatype := keywords["$DATATYPE"]
	widths := make([]int, par)
	rowBytes := 0
	for p := range widths {
		switch datatype {
		case "D":
			widths[p] = 8
		case "I":
			// Integer data is stored at the per-parameter $PnB width.
			bits, err := strconv.Atoi(keywords[fmt.Sprintf("$P%dB", p+1)])
			if err != nil || (bits != 8 && bits != 16 && bits != 32 && bits != 64) {
				return newDecodeError(FormatFCS, d.file, 0,
					fmt.Sprintf("unsupported $P%dB width %q for integer data", p+1, keywords[fmt.Sprintf("$P%dB", p+1)]), nil)
			}
			widths[p] = bits / 8
		default: // F
			widths[p] = 4
		}
		rowBytes += widths[p]
	}
	need := int64(tot) * int64(rowBytes)
	if dataEnd == 0 && dataStart == 0 {
		ds, err1 := strconv.ParseInt(keywords["$BEGINDATA"], 10, 64)
		de, err2 := strconv.ParseInt(keywords["$ENDDATA"], 10, 64)
		if err1 != nil || err2 != nil {
			return newDecodeError(FormatFCS, d.file, 0, "missing DATA segment offsets", nil)
		}
		dataStart, dataEnd = ds, de
	}
	if dataStart+need > int64(len(data)) || dataEnd < dataStart {
		return newDecodeError(FormatFCS, d.file, 0, "DATA segment out of bounds", nil)
	}

	order := binary.ByteOrder(binary.LittleEndian)
	if bigEndian {
		order = binary.BigEndian
	}
	raw := data[dataStart:]
	d.events = make([][]float64, tot)
	for e := 0; e < tot; e++ {
		values := make([]float64, par)
		at := e * rowBytes
		for p := 0; p < par; p++ {
			switch datatype {
			case "D":
				values[p] = math.Float64frombits(order.Uint64(raw[at:]))
			case "I":
				switch widths[p] {
				case 1:
					values[p] = float64(raw[at])
				case 2:
					values[p] = float64(order.Uint16(raw[at:]))
				case 4:
					values[p] = float64(order.Uint32(raw[at:]))
				case 8:
					values[p] = float64(order.Uint64(raw[at:]))
				}
			default: // F
				values[p] = float64(math.Float32frombits(order.Uint32(raw[at:])))
			}
			at += widths[p]
		}
		d.events[e] = values
	}
	return nil
}

// parseFCSText splits the delimiter-framed TEXT segment into keyword pairs.
// The first byte is the delimiter.
func parseFCSText(seg []byte) (map[string]string, error) {
	if len(seg) < 2 {
		return nil, fmt.Errorf("TEXT segment too short")
	}
	delim := string(seg[0:1])
	parts := strings.Split(string(seg[1:]), delim)
	out := make(map[string]string, len(parts)/2)
	for i := 0; i+1 < len(parts); i += 2 {
		key := strings.TrimSpace(parts[i])
		if key != "" {
			out[key] = strings.TrimSpace(parts[i+1])
		}
	}
	return out, nil
}

func (d *fcsDecoder) Next() ([]any, error) {
	if d.event >= len(d.events) {
		return nil, io.EOF
	}
	row := []any{int64(d.event), d.channels[d.channel], d.events[d.event][d.channel]}
	d.channel++
	if d.channel >= len(d.channels) {
		d.channel = 0
		d.event++
	}
	return row, nil
}
