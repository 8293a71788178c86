package seqtable

import (
	"fmt"
	"io"
	"strings"
)

// Format is the closed set of supported file formats. Dispatch is on the
// declared format name, never sniffed from content; the set is fixed at build
// time so schema inference and error messages stay exhaustive.
type Format int

const (
	// FormatFASTA is the FASTA sequence format.
	FormatFASTA Format = iota
	// FormatFASTQ is the FASTQ sequence format with quality scores.
	FormatFASTQ
	// FormatVCF is the Variant Call Format.
	FormatVCF
	// FormatBAM is the binary alignment format (bgzf-compressed).
	FormatBAM
	// FormatSAM is the text alignment format.
	FormatSAM
	// FormatBED is the Browser Extensible Data interval format.
	FormatBED
	// FormatGFF is the General Feature Format (GFF3).
	FormatGFF
	// FormatGTF is the Gene Transfer Format (GFF2 dialect).
	FormatGTF
	// FormatGenBank is the GenBank flat-file format.
	FormatGenBank
	// FormatHMMDomTab is the HMMER domain table (domtblout) format.
	FormatHMMDomTab
	// FormatMzML is the mzML mass-spectrometry format.
	FormatMzML
	// FormatSDF is the structure-data (MDL molfile) format.
	FormatSDF
	// FormatFCS is the Flow Cytometry Standard format.
	FormatFCS
	// FormatPassthrough copies columnar payloads opaquely.
	FormatPassthrough
)

// formatNames maps canonical names to formats. Aliases follow the common
// file-extension spellings.
var formatNames = map[string]Format{
	"fasta":       FormatFASTA,
	"fa":          FormatFASTA,
	"fna":         FormatFASTA,
	"fastq":       FormatFASTQ,
	"fq":          FormatFASTQ,
	"vcf":         FormatVCF,
	"bam":         FormatBAM,
	"sam":         FormatSAM,
	"bed":         FormatBED,
	"gff":         FormatGFF,
	"gff3":        FormatGFF,
	"gtf":         FormatGTF,
	"genbank":     FormatGenBank,
	"gbk":         FormatGenBank,
	"gb":          FormatGenBank,
	"hmmdomtab":   FormatHMMDomTab,
	"mzml":        FormatMzML,
	"sdf":         FormatSDF,
	"fcs":         FormatFCS,
	"passthrough": FormatPassthrough,
}

// ParseFormat maps a declared format name to a Format.
func ParseFormat(s string) (Format, error) {
	if f, ok := formatNames[strings.ToLower(s)]; ok {
		return f, nil
	}
	return 0, newConfigError(s, "unrecognized format name", ErrUnknownFormat)
}

// String returns the canonical format name.
func (f Format) String() string {
	switch f {
	case FormatFASTA:
		return "fasta"
	case FormatFASTQ:
		return "fastq"
	case FormatVCF:
		return "vcf"
	case FormatBAM:
		return "bam"
	case FormatSAM:
		return "sam"
	case FormatBED:
		return "bed"
	case FormatGFF:
		return "gff"
	case FormatGTF:
		return "gtf"
	case FormatGenBank:
		return "genbank"
	case FormatHMMDomTab:
		return "hmmdomtab"
	case FormatMzML:
		return "mzml"
	case FormatSDF:
		return "sdf"
	case FormatFCS:
		return "fcs"
	case FormatPassthrough:
		return "passthrough"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Extensions returns the recognized bare file extensions, without compression
// suffixes. The location resolver also accepts each with a recognized
// compression suffix appended (e.g. .vcf.gz).
func (f Format) Extensions() []string {
	switch f {
	case FormatFASTA:
		return []string{".fasta", ".fa", ".fna"}
	case FormatFASTQ:
		return []string{".fastq", ".fq"}
	case FormatVCF:
		return []string{".vcf"}
	case FormatBAM:
		return []string{".bam"}
	case FormatSAM:
		return []string{".sam"}
	case FormatBED:
		return []string{".bed"}
	case FormatGFF:
		return []string{".gff", ".gff3"}
	case FormatGTF:
		return []string{".gtf"}
	case FormatGenBank:
		return []string{".genbank", ".gbk", ".gb"}
	case FormatHMMDomTab:
		return []string{".hmmdomtab", ".domtblout"}
	case FormatMzML:
		return []string{".mzml"}
	case FormatSDF:
		return []string{".sdf"}
	case FormatFCS:
		return []string{".fcs"}
	case FormatPassthrough:
		return nil // passthrough accepts any extension
	}
	return nil
}

// Indexable reports whether the format has an index-capable variant backed by
// a companion block index over bgzf data.
func (f Format) Indexable() bool {
	return f == FormatVCF || f == FormatBAM
}

// selfCompressed reports formats whose decoder consumes the raw byte stream
// and performs its own block decompression.
func (f Format) selfCompressed() bool {
	return f == FormatBAM
}

// hasCoordinates reports formats whose rows carry genomic coordinates and so
// accept region predicates.
func (f Format) hasCoordinates() bool {
	switch f {
	case FormatVCF, FormatSAM, FormatBAM, FormatBED, FormatGFF, FormatGTF:
		return true
	}
	return false
}

// InferFormat maps a file path to its format and compression, stripping a
// recognized compression suffix first.
func InferFormat(path string) (Format, Compression, error) {
	codec, trimmed := inferCompression(path)
	i := strings.LastIndex(trimmed, ".")
	if i < 0 {
		return 0, codec, newConfigError(path, "cannot infer format from extension", ErrUnknownFormat)
	}
	f, err := ParseFormat(trimmed[i+1:])
	if err != nil {
		return 0, codec, newConfigError(path, "cannot infer format from extension", ErrUnknownFormat)
	}
	return f, codec, nil
}

// Schema returns the data-column schema of the format under the given
// options. Pure in (format, options): the same file may be projected under
// either tag-expansion shape depending on session configuration.
func (f Format) Schema(opts ScanOptions) TableSchema {
	switch f {
	case FormatFASTA:
		return TableSchema{Fields: []Field{
			{Name: "id", Type: TypeString},
			{Name: "description", Type: TypeString, Nullable: true},
			{Name: "sequence", Type: TypeString},
		}}
	case FormatFASTQ:
		return TableSchema{Fields: []Field{
			{Name: "name", Type: TypeString},
			{Name: "description", Type: TypeString, Nullable: true},
			{Name: "sequence", Type: TypeString},
			{Name: "quality_scores", Type: TypeListInt},
		}}
	case FormatVCF:
		infoType, formatType := TypeString, TypeString
		if opts.ParseVCFInfo {
			infoType = TypeMap
		}
		if opts.ParseVCFFormat {
			formatType = TypeMap
		}
		return TableSchema{Fields: []Field{
			{Name: "chrom", Type: TypeString},
			{Name: "pos", Type: TypeInt},
			{Name: "id", Type: TypeString, Nullable: true},
			{Name: "ref", Type: TypeString},
			{Name: "alt", Type: TypeString, Nullable: true},
			{Name: "qual", Type: TypeFloat, Nullable: true},
			{Name: "filter", Type: TypeString, Nullable: true},
			{Name: "info", Type: infoType, Nullable: true},
			{Name: "format", Type: formatType, Nullable: true},
		}}
	case FormatSAM, FormatBAM:
		tagType := TypeString
		if opts.ParseSAMTags {
			tagType = TypeMap
		}
		return TableSchema{Fields: []Field{
			{Name: "name", Type: TypeString},
			{Name: "flag", Type: TypeInt},
			{Name: "reference", Type: TypeString, Nullable: true},
			{Name: "start", Type: TypeInt, Nullable: true},
			{Name: "end", Type: TypeInt, Nullable: true},
			{Name: "mapping_quality", Type: TypeString, Nullable: true},
			{Name: "cigar", Type: TypeString},
			{Name: "mate_reference", Type: TypeString, Nullable: true},
			{Name: "sequence", Type: TypeString},
			{Name: "quality_scores", Type: TypeListInt},
			{Name: "tags", Type: tagType, Nullable: true},
		}}
	case FormatBED:
		return TableSchema{Fields: []Field{
			{Name: "chrom", Type: TypeString},
			{Name: "start", Type: TypeInt},
			{Name: "end", Type: TypeInt},
			{Name: "name", Type: TypeString, Nullable: true},
			{Name: "score", Type: TypeInt, Nullable: true},
			{Name: "strand", Type: TypeString, Nullable: true},
			{Name: "thick_start", Type: TypeInt, Nullable: true},
			{Name: "thick_end", Type: TypeInt, Nullable: true},
			{Name: "item_rgb", Type: TypeString, Nullable: true},
			{Name: "block_count", Type: TypeInt, Nullable: true},
			{Name: "block_sizes", Type: TypeString, Nullable: true},
			{Name: "block_starts", Type: TypeString, Nullable: true},
		}}
	case FormatGFF, FormatGTF:
		return TableSchema{Fields: []Field{
			{Name: "seqname", Type: TypeString},
			{Name: "source", Type: TypeString, Nullable: true},
			{Name: "feature", Type: TypeString},
			{Name: "start", Type: TypeInt},
			{Name: "end", Type: TypeInt},
			{Name: "score", Type: TypeFloat, Nullable: true},
			{Name: "strand", Type: TypeString, Nullable: true},
			{Name: "frame", Type: TypeInt, Nullable: true},
			{Name: "attributes", Type: TypeString, Nullable: true},
		}}
	case FormatGenBank:
		return TableSchema{Fields: []Field{
			{Name: "name", Type: TypeString},
			{Name: "accession", Type: TypeString, Nullable: true},
			{Name: "version", Type: TypeString, Nullable: true},
			{Name: "definition", Type: TypeString, Nullable: true},
			{Name: "keywords", Type: TypeString, Nullable: true},
			{Name: "source", Type: TypeString, Nullable: true},
			{Name: "organism", Type: TypeString, Nullable: true},
			{Name: "date", Type: TypeString, Nullable: true},
			{Name: "topology", Type: TypeString, Nullable: true},
			{Name: "division", Type: TypeString, Nullable: true},
			{Name: "molecule_type", Type: TypeString, Nullable: true},
			{Name: "sequence", Type: TypeString, Nullable: true},
		}}
	case FormatHMMDomTab:
		return TableSchema{Fields: []Field{
			{Name: "target_name", Type: TypeString},
			{Name: "target_accession", Type: TypeString, Nullable: true},
			{Name: "tlen", Type: TypeInt},
			{Name: "query_name", Type: TypeString},
			{Name: "accession", Type: TypeString, Nullable: true},
			{Name: "qlen", Type: TypeInt},
			{Name: "sequence_evalue", Type: TypeFloat},
			{Name: "sequence_score", Type: TypeFloat},
			{Name: "sequence_bias", Type: TypeFloat},
			{Name: "domain_number", Type: TypeInt},
			{Name: "ndom", Type: TypeInt},
			{Name: "domain_cevalue", Type: TypeFloat},
			{Name: "domain_ievalue", Type: TypeFloat},
			{Name: "domain_score", Type: TypeFloat},
			{Name: "domain_bias", Type: TypeFloat},
			{Name: "hmm_from", Type: TypeInt},
			{Name: "hmm_to", Type: TypeInt},
			{Name: "ali_from", Type: TypeInt},
			{Name: "ali_to", Type: TypeInt},
			{Name: "env_from", Type: TypeInt},
			{Name: "env_to", Type: TypeInt},
			{Name: "acc", Type: TypeFloat},
			{Name: "description", Type: TypeString, Nullable: true},
		}}
	case FormatMzML:
		return TableSchema{Fields: []Field{
			{Name: "id", Type: TypeString},
			{Name: "ms_level", Type: TypeInt, Nullable: true},
			{Name: "mz", Type: TypeListFloat},
			{Name: "intensity", Type: TypeListFloat},
		}}
	case FormatSDF:
		return TableSchema{Fields: []Field{
			{Name: "header", Type: TypeString, Nullable: true},
			{Name: "atom_count", Type: TypeInt},
			{Name: "bond_count", Type: TypeInt},
			{Name: "data", Type: TypeMap, Nullable: true},
		}}
	case FormatFCS:
		return TableSchema{Fields: []Field{
			{Name: "event", Type: TypeInt},
			{Name: "channel", Type: TypeString},
			{Name: "value", Type: TypeFloat},
		}}
	case FormatPassthrough:
		return TableSchema{Fields: []Field{
			{Name: "data", Type: TypeString},
		}}
	}
	return TableSchema{}
}

// RowDecoder yields one typed row per record under the format's data schema.
// The sequence is finite and single-pass: Next returns io.EOF at end of
// stream, and a decoder is restarted only by re-invoking the format on a
// fresh stream. Malformed records surface as a DecodeError carrying the
// record ordinal; records are never skipped.
type RowDecoder interface {
	Next() ([]any, error)
}

// coordinateDecoder is implemented by decoders over formats whose rows carry
// genomic coordinates. Coordinates reports the half-open 0-based interval of
// a decoded row so the region filter can run at record granularity.
type coordinateDecoder interface {
	RowDecoder
	Coordinates(row []any) (chrom string, start, end int64, ok bool)
}

// NewDecoder returns the format's decoder over a negotiated byte stream.
// file names the source for decode errors.
func (f Format) NewDecoder(r io.Reader, file string, opts ScanOptions) (RowDecoder, error) {
	switch f {
	case FormatFASTA:
		return newFASTADecoder(r, file), nil
	case FormatFASTQ:
		return newFASTQDecoder(r, file), nil
	case FormatVCF:
		return newVCFDecoder(r, file, opts), nil
	case FormatSAM:
		return newSAMDecoder(r, file, opts)
	case FormatBAM:
		return newBAMDecoder(r, file, opts)
	case FormatBED:
		return newBEDDecoder(r, file), nil
	case FormatGFF:
		return newGFFDecoder(r, file, FormatGFF), nil
	case FormatGTF:
		return newGFFDecoder(r, file, FormatGTF), nil
	case FormatGenBank:
		return newGenBankDecoder(r, file), nil
	case FormatHMMDomTab:
		return newHMMDomTabDecoder(r, file), nil
	case FormatMzML:
		return newMzMLDecoder(r, file), nil
	case FormatSDF:
		return newSDFDecoder(r, file), nil
	case FormatFCS:
		return newFCSDecoder(r, file)
	case FormatPassthrough:
		return newPassthroughDecoder(r), nil
	}
	return nil, newConfigError(f.String(), "no decoder for format", ErrUnknownFormat)
}
