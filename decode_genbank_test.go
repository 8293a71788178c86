package seqtable

import (
	"io"
	"strings"
	"testing"
)

const testGenBankData = `LOCUS       SCU49845     5028 bp    DNA             PLN       21-JUN-1999
DEFINITION  Saccharomyces cerevisiae TCP1-beta gene.
ACCESSION   U49845
VERSION     U49845.1
KEYWORDS    .
SOURCE      Saccharomyces cerevisiae (baker's yeast)
  ORGANISM  Saccharomyces cerevisiae
ORIGIN
        1 gatcctccat atacaacggt atctccacct caggtttaga tctcaacaac ggaaccattg
       61 ccgacatgag acagttaggt atcgtcgaga gttacaagct aaaacgagca gtagtcagct
//
LOCUS       AB000001     12 bp    DNA             PRI       01-JAN-2000
ORIGIN
        1 acgtacgtac gt
//
`

func TestGenBankDecoder_Basic(t *testing.T) {
	dec := newGenBankDecoder(strings.NewReader(testGenBankData), "test.gb")

	row, err := dec.Next()
	if err != nil {
		t.Fatalf("first record: %v", err)
	}
	if row[0] != "SCU49845" {
		t.Errorf("expected name SCU49845, got %v", row[0])
	}
	if row[1] != "U49845" {
		t.Errorf("expected accession U49845, got %v", row[1])
	}
	if row[2] != "U49845.1" {
		t.Errorf("expected version U49845.1, got %v", row[2])
	}
	if row[3] != "Saccharomyces cerevisiae TCP1-beta gene." {
		t.Errorf("unexpected definition: %v", row[3])
	}
	// The bare "." keywords marker decodes to null.
	if row[4] != nil {
		t.Errorf("expected null keywords, got %v", row[4])
	}
	if row[6] != "Saccharomyces cerevisiae" {
		t.Errorf("unexpected organism: %v", row[6])
	}
	seq, ok := row[11].(string)
	if !ok {
		t.Fatalf("expected sequence string, got %T", row[11])
	}
	if !strings.HasPrefix(seq, "gatcctccat") || strings.ContainsAny(seq, " 0123456789") {
		t.Errorf("sequence not concatenated cleanly: %q", seq)
	}

	row, err = dec.Next()
	if err != nil {
		t.Fatalf("second record: %v", err)
	}
	if row[0] != "AB000001" || row[11] != "acgtacgtacgt" {
		t.Errorf("unexpected second record: name=%v seq=%v", row[0], row[11])
	}

	if _, err := dec.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestGenBankDecoder_MissingTerminator(t *testing.T) {
	data := "LOCUS       X  4 bp\nORIGIN\n        1 acgt\n"
	dec := newGenBankDecoder(strings.NewReader(data), "test.gb")
	row, err := dec.Next()
	if err != nil {
		t.Fatalf("expected tolerant final record, got %v", err)
	}
	if row[0] != "X" || row[11] != "acgt" {
		t.Errorf("unexpected record: %v", row)
	}
	if _, err := dec.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestGenBankDecoder_SeparatorBeforeLocus(t *testing.T) {
	dec := newGenBankDecoder(strings.NewReader("//\n"), "test.gb")
	if _, err := dec.Next(); err == nil {
		t.Error("expected error for separator before LOCUS")
	}
}
