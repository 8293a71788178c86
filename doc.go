// Package seqtable is an embeddable scan engine that exposes bioinformatics
// file formats as relational tables.
//
// A Table binds a name to a format, a storage location, and session options;
// Scan streams the table's rows as column-major batches:
//
//	backend, _ := seqtable.NewFileBackend("/data")
//	table, _ := seqtable.NewTable("variants", seqtable.FormatVCF, backend, "vcf/",
//		seqtable.WithPartitionKeys("sample"))
//	stream, _ := table.Scan(ctx, seqtable.ScanRequest{
//		Projection: []string{"chrom", "pos", "ref", "alt", "sample"},
//	})
//	for batch := range stream.C() {
//		// consume batch
//	}
//
// Fourteen formats are supported (VCF, BAM, SAM, BED, FASTA, FASTQ, GFF, GTF,
// GenBank, HMMER domain tables, mzML, SDF, FCS, and raw passthrough), each
// with a fixed relational schema. Files may live on local disk (FileBackend)
// or S3-compatible object storage (S3Backend), optionally laid out as Hive
// key=value partition directories, and optionally compressed with gzip, zstd,
// bgzf, or snappy.
//
// Tables declared with WithIndex require a genomic region on every scan and
// use companion block indexes to read only the bgzf blocks overlapping the
// region. Non-indexed coordinate formats accept a region as a best-effort
// in-decoder filter.
//
// Scalar helpers mirroring common sequence-analysis SQL functions (Phred
// quality conversion, spectrum binning, region matching) live in Functions.
package seqtable
