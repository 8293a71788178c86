package seqtable

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
	"testing"
)

// testFCSData builds a minimal FCS 3.0 file: two events across two channels
// (FSC-A, SSC-A) as little-endian float32 values.
func testFCSData(t *testing.T) []byte {
	t.Helper()
	events := [][]float32{{1.5, 2.5}, {3.5, 4.5}}

	text := "/$PAR/2/$TOT/2/$P1N/FSC-A/$P2N/SSC-A/$DATATYPE/F/$BYTEORD/1,2,3,4/"
	textStart := 58
	textEnd := textStart + len(text) - 1
	dataStart := textEnd + 1
	dataEnd := dataStart + 4*4 - 1

	var buf bytes.Buffer
	buf.WriteString("FCS3.0    ")
	buf.WriteString(fmt.Sprintf("%8d%8d%8d%8d", textStart, textEnd, dataStart, dataEnd))
	for buf.Len() < textStart {
		buf.WriteByte(' ')
	}
	buf.WriteString(text)
	for _, ev := range events {
		for _, v := range ev {
			var raw [4]byte
			binary.LittleEndian.PutUint32(raw[:], math.Float32bits(v))
			buf.Write(raw[:])
		}
	}
	return buf.Bytes()
}

func TestFCSDecoder_LongFormat(t *testing.T) {
	dec, err := newFCSDecoder(bytes.NewReader(testFCSData(t)), "test.fcs")
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	want := []struct {
		event   int64
		channel string
		value   float64
	}{
		{0, "FSC-A", 1.5},
		{0, "SSC-A", 2.5},
		{1, "FSC-A", 3.5},
		{1, "SSC-A", 4.5},
	}
	for i, w := range want {
		row, err := dec.Next()
		if err != nil {
			t.Fatalf("row %d: %v", i, err)
		}
		if row[0] != w.event || row[1] != w.channel || row[2] != w.value {
			t.Errorf("row %d: expected (%d,%s,%v), got %v", i, w.event, w.channel, w.value, row)
		}
	}
	if _, err := dec.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

// buildFCSFile frames a TEXT segment and raw DATA payload into an FCS 3.0
// byte stream.
func buildFCSFile(text string, data []byte) []byte {
	textStart := 58
	textEnd := textStart + len(text) - 1
	dataStart := textEnd + 1
	dataEnd := dataStart + len(data) - 1

	var buf bytes.Buffer
	buf.WriteString("FCS3.0    ")
	buf.WriteString(fmt.Sprintf("%8d%8d%8d%8d", textStart, textEnd, dataStart, dataEnd))
	for buf.Len() < textStart {
		buf.WriteByte(' ')
	}
	buf.WriteString(text)
	buf.Write(data)
	return buf.Bytes()
}

func TestFCSDecoder_IntegerWidths(t *testing.T) {
	// Two events across two channels: a 16-bit and a 32-bit integer
	// parameter, per $PnB.
	text := "/$PAR/2/$TOT/2/$P1N/FSC-A/$P2N/SSC-A/$P1B/16/$P2B/32/$DATATYPE/I/$BYTEORD/1,2,3,4/"
	var data bytes.Buffer
	for _, ev := range [][2]uint32{{300, 70000}, {1, 2}} {
		var w16 [2]byte
		binary.LittleEndian.PutUint16(w16[:], uint16(ev[0]))
		data.Write(w16[:])
		var w32 [4]byte
		binary.LittleEndian.PutUint32(w32[:], ev[1])
		data.Write(w32[:])
	}

	dec, err := newFCSDecoder(bytes.NewReader(buildFCSFile(text, data.Bytes())), "test.fcs")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	want := []float64{300, 70000, 1, 2}
	for i, w := range want {
		row, err := dec.Next()
		if err != nil {
			t.Fatalf("row %d: %v", i, err)
		}
		if row[2] != w {
			t.Errorf("row %d: expected value %v, got %v", i, w, row[2])
		}
	}
	if _, err := dec.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestFCSDecoder_UnsupportedIntegerWidth(t *testing.T) {
	text := "/$PAR/1/$TOT/1/$P1N/FSC-A/$P1B/24/$DATATYPE/I/$BYTEORD/1,2,3,4/"
	_, err := newFCSDecoder(bytes.NewReader(buildFCSFile(text, make([]byte, 3))), "test.fcs")
	if err == nil {
		t.Fatal("expected error for 24-bit integer parameter")
	}
	if !strings.Contains(err.Error(), "$P1B") {
		t.Errorf("expected width in error, got %v", err)
	}
}

func TestFCSDecoder_NotFCS(t *testing.T) {
	if _, err := newFCSDecoder(bytes.NewReader([]byte("definitely not flow cytometry data at all")), "test.fcs"); err == nil {
		t.Error("expected error for non-FCS payload")
	}
}

func TestFCSDecoder_TextOutOfBounds(t *testing.T) {
	data := []byte("FCS3.0    " + fmt.Sprintf("%8d%8d%8d%8d", 99999, 199999, 0, 0) + strings.Repeat(" ", 32))
	if _, err := newFCSDecoder(bytes.NewReader(data), "test.fcs"); err == nil {
		t.Error("expected error for TEXT segment beyond the file")
	}
}
