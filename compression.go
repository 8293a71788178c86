package seqtable

import (
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/biogo/hts/bgzf"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Compression identifies the codec wrapping a byte source.
type Compression int

const (
	// CompressionNone reads the source as-is.
	CompressionNone Compression = iota
	// CompressionGzip is plain gzip: sequential decompression only.
	CompressionGzip
	// CompressionZstd is zstandard: sequential decompression only.
	CompressionZstd
	// CompressionBGZF is block gzip: independently compressed bounded blocks
	// addressable by virtual offsets, enabling random access.
	CompressionBGZF
	// CompressionSnappy is framed snappy, used for passthrough columnar
	// payloads.
	CompressionSnappy
)

// String returns the codec name as used in table options and file extensions.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionBGZF:
		return "bgzf"
	case CompressionSnappy:
		return "snappy"
	}
	return fmt.Sprintf("Compression(%d)", int(c))
}

// ParseCompression maps a codec name to a Compression.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "", "none", "uncompressed":
		return CompressionNone, nil
	case "gzip", "gz":
		return CompressionGzip, nil
	case "zstd", "zst":
		return CompressionZstd, nil
	case "bgzf":
		return CompressionBGZF, nil
	case "snappy":
		return CompressionSnappy, nil
	}
	return CompressionNone, newConfigError(s, "unsupported compression", nil)
}

// compressionExtensions maps recognized compressed-file suffixes to codecs.
// Bgzf files conventionally carry the .gz suffix; formats that require random
// access declare bgzf explicitly or through their indexed variant.
var compressionExtensions = map[string]Compression{
	".gz":     CompressionGzip,
	".zst":    CompressionZstd,
	".bgz":    CompressionBGZF,
	".snappy": CompressionSnappy,
}

// inferCompression inspects the path suffix and returns the implied codec and
// the path with the codec suffix stripped.
func inferCompression(path string) (Compression, string) {
	lower := strings.ToLower(path)
	for ext, codec := range compressionExtensions {
		if strings.HasSuffix(lower, ext) {
			return codec, path[:len(path)-len(ext)]
		}
	}
	return CompressionNone, path
}

// VirtualOffset addresses a position inside a bgzf stream: the compressed
// block's file offset plus the uncompressed offset within that block.
type VirtualOffset struct {
	File  int64
	Block uint16
}

// virtualSeeker is implemented by streams capable of random access.
type virtualSeeker interface {
	SeekVirtual(off VirtualOffset) error
}

// newCodecReader wraps src with the requested codec and returns a sequential
// stream. For CompressionBGZF the returned stream additionally implements
// virtualSeeker when src supports io.Seeker.
func newCodecReader(src io.ReadCloser, codec Compression) (io.ReadCloser, error) {
	switch codec {
	case CompressionNone:
		return src, nil
	case CompressionGzip:
		zr, err := gzip.NewReader(src)
		if err != nil {
			return nil, &CodecError{Codec: codec, Message: "open gzip stream", Cause: err}
		}
		return &wrappedReader{Reader: zr, close: func() error {
			zr.Close()
			return src.Close()
		}}, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(src)
		if err != nil {
			return nil, &CodecError{Codec: codec, Message: "open zstd stream", Cause: err}
		}
		return &wrappedReader{Reader: zr, close: func() error {
			zr.Close()
			return src.Close()
		}}, nil
	case CompressionSnappy:
		return &wrappedReader{Reader: snappy.NewReader(src), close: src.Close}, nil
	case CompressionBGZF:
		zr, err := bgzf.NewReader(src, 0)
		if err != nil {
			return nil, &CodecError{Codec: codec, Message: "open bgzf stream", Cause: err}
		}
		return &bgzfReader{zr: zr, src: src}, nil
	}
	return nil, &CodecError{Codec: codec, Message: "unsupported codec"}
}

// wrappedReader pairs a decompressing reader with the close of its source.
type wrappedReader struct {
	io.Reader
	close func() error
}

func (w *wrappedReader) Close() error { return w.close() }

// bgzfReader is a bgzf stream with virtual-offset random access. Seeks
// require the source to implement io.ReadSeeker; the location resolver only
// routes bgzf-backed sources here.
type bgzfReader struct {
	zr  *bgzf.Reader
	src io.ReadCloser
}

func (b *bgzfReader) Read(p []byte) (int, error) { return b.zr.Read(p) }

func (b *bgzfReader) Close() error {
	if err := b.zr.Close(); err != nil {
		_ = b.src.Close()
		return err
	}
	return b.src.Close()
}

// SeekVirtual positions the stream at the given virtual offset and resumes
// decompression from there.
func (b *bgzfReader) SeekVirtual(off VirtualOffset) error {
	if err := b.zr.Seek(bgzf.Offset{File: off.File, Block: off.Block}); err != nil {
		return &CodecError{Codec: CompressionBGZF, Message: "seek virtual offset", Cause: err}
	}
	return nil
}

// seekVirtual issues a virtual-offset seek against a negotiated stream. A
// non-bgzf stream is an internal invariant violation, not a user error.
func seekVirtual(rc io.ReadCloser, off VirtualOffset) error {
	vs, ok := rc.(virtualSeeker)
	if !ok {
		return &CodecError{Codec: CompressionNone, Message: "seek requested", Cause: ErrNotSeekable}
	}
	return vs.SeekVirtual(off)
}
