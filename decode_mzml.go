package seqtable

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"io"
	"math"
	"strconv"
)

// mzMLDecoder yields one row per <spectrum> element with the m/z and
// intensity binary arrays decoded into list columns. The XML is consumed as
// a token stream so arbitrarily large runs stay single-pass.
type mzMLDecoder struct {
	dec    *xml.Decoder
	file   string
	record int64
}

func newMzMLDecoder(r io.Reader, file string) *mzMLDecoder {
	return &mzMLDecoder{dec: xml.NewDecoder(r), file: file}
}

// Accessions from the PSI-MS controlled vocabulary.
const (
	cvMSLevel        = "MS:1000511"
	cvMZArray        = "MS:1000514"
	cvIntensityArray = "MS:1000515"
	cvFloat64        = "MS:1000523"
	cvFloat32        = "MS:1000521"
	cvZlib           = "MS:1000574"
)

func (d *mzMLDecoder) Next() ([]any, error) {
	for {
		tok, err := d.dec.Token()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, newDecodeError(FormatMzML, d.file, d.record, "read xml", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "spectrum" {
			continue
		}
		d.record++
		return d.decodeSpectrum(start)
	}
}

type mzMLBinaryArray struct {
	CVParams []mzMLCVParam `xml:"cvParam"`
	Binary   string        `xml:"binary"`
}

type mzMLCVParam struct {
	Accession string `xml:"accession,attr"`
	Value     string `xml:"value,attr"`
}

type mzMLSpectrum struct {
	ID       string        `xml:"id,attr"`
	CVParams []mzMLCVParam `xml:"cvParam"`
	Arrays   struct {
		Arrays []mzMLBinaryArray `xml:"binaryDataArray"`
	} `xml:"binaryDataArrayList"`
}

func (d *mzMLDecoder) decodeSpectrum(start xml.StartElement) ([]any, error) {
	var spec mzMLSpectrum
	if err := d.dec.DecodeElement(&spec, &start); err != nil {
		return nil, newDecodeError(FormatMzML, d.file, d.record, "decode spectrum element", err)
	}

	row := make([]any, 4)
	row[0] = spec.ID
	for _, p := range spec.CVParams {
		if p.Accession == cvMSLevel {
			if level, err := strconv.ParseInt(p.Value, 10, 64); err == nil {
				row[1] = level
			}
		}
	}
	row[2] = []float64{}
	row[3] = []float64{}
	for _, arr := range spec.Arrays.Arrays {
		values, kind, err := d.decodeBinaryArray(arr)
		if err != nil {
			return nil, err
		}
		switch kind {
		case cvMZArray:
			row[2] = values
		case cvIntensityArray:
			row[3] = values
		}
	}
	return row, nil
}

// decodeBinaryArray unpacks one base64-encoded, optionally zlib-compressed
// little-endian float array and reports which array it is.
func (d *mzMLDecoder) decodeBinaryArray(arr mzMLBinaryArray) ([]float64, string, error) {
	kind := ""
	wide := true
	compressed := false
	for _, p := range arr.CVParams {
		switch p.Accession {
		case cvMZArray, cvIntensityArray:
			kind = p.Accession
		case cvFloat32:
			wide = false
		case cvFloat64:
			wide = true
		case cvZlib:
			compressed = true
		}
	}

	raw, err := base64.StdEncoding.DecodeString(trimXMLSpace(arr.Binary))
	if err != nil {
		return nil, "", newDecodeError(FormatMzML, d.file, d.record, "decode base64 binary", err)
	}
	if compressed {
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, "", newDecodeError(FormatMzML, d.file, d.record, "open zlib binary", err)
		}
		raw, err = io.ReadAll(zr)
		_ = zr.Close()
		if err != nil {
			return nil, "", newDecodeError(FormatMzML, d.file, d.record, "inflate binary", err)
		}
	}

	width := 8
	if !wide {
		width = 4
	}
	if len(raw)%width != 0 {
		return nil, "", newDecodeError(FormatMzML, d.file, d.record, "binary array length not a multiple of value width", nil)
	}
	out := make([]float64, 0, len(raw)/width)
	for i := 0; i+width <= len(raw); i += width {
		if wide {
			out = append(out, math.Float64frombits(binary.LittleEndian.Uint64(raw[i:])))
		} else {
			out = append(out, float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[i:]))))
		}
	}
	return out, kind, nil
}

func trimXMLSpace(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}
