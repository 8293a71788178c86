package seqtable

import (
	"io"
	"strings"
	"testing"
)

func TestPassthroughDecoder_SmallPayload(t *testing.T) {
	dec := newPassthroughDecoder(strings.NewReader("raw bytes"))
	row, err := dec.Next()
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if row[0] != "raw bytes" {
		t.Errorf("expected payload passed through, got %v", row[0])
	}
	if _, err := dec.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestPassthroughDecoder_Chunking(t *testing.T) {
	payload := strings.Repeat("x", passthroughChunkBytes+10)
	dec := newPassthroughDecoder(strings.NewReader(payload))

	row, err := dec.Next()
	if err != nil {
		t.Fatalf("first chunk: %v", err)
	}
	if len(row[0].(string)) != passthroughChunkBytes {
		t.Errorf("expected full chunk, got %d bytes", len(row[0].(string)))
	}
	row, err = dec.Next()
	if err != nil {
		t.Fatalf("second chunk: %v", err)
	}
	if len(row[0].(string)) != 10 {
		t.Errorf("expected 10-byte tail, got %d bytes", len(row[0].(string)))
	}
	if _, err := dec.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestPassthroughDecoder_Empty(t *testing.T) {
	dec := newPassthroughDecoder(strings.NewReader(""))
	if _, err := dec.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}
