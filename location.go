package seqtable

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// SourceFile is one resolved input of a table: an object key plus its
// negotiated compression and the partition values carried by its path.
// Immutable once resolved.
type SourceFile struct {
	Key  string
	Size int64

	// Compression is the codec negotiated for the file: the explicit table
	// option when present, otherwise inferred from the extension.
	Compression Compression

	// CompressionMismatch records that an explicit compression option
	// disagreed with the extension-implied codec. The explicit option wins;
	// the mismatch is surfaced as a warning rather than a silent guess.
	CompressionMismatch bool

	// Partitions maps each declared partition column to the value carried by
	// this file's path. Empty for unpartitioned tables.
	Partitions map[string]string
}

// Location declares where a table's files live.
type Location struct {
	// Backend is the store holding the files.
	Backend StorageBackend

	// Root is the file key or directory prefix of the table.
	Root string

	// Format selects the decoder and the recognized extensions.
	Format Format

	// Compression, when non-nil, overrides extension inference for every
	// file.
	Compression *Compression

	// PartitionKeys are the declared PARTITIONED BY columns, in order.
	PartitionKeys []string
}

// ResolveLocation expands a table location into its source files. A single
// file resolves to itself with no partition values; a directory is listed
// recursively, filtered by the format's extensions (compressed variants
// included), with partition values parsed from the path segments between the
// root and the file. An empty directory is an empty table, not an error;
// a missing location is a resolution error.
func ResolveLocation(ctx context.Context, loc Location) ([]SourceFile, error) {
	if info, err := loc.Backend.Stat(ctx, loc.Root); err == nil {
		if len(loc.PartitionKeys) > 0 {
			return nil, newConfigError(loc.Root, "PARTITIONED BY requires a directory location", ErrPartitionMismatch)
		}
		sf, ok := loc.sourceFile(info, nil)
		if !ok {
			return nil, newConfigError(loc.Root, "file extension does not match format "+loc.Format.String(), ErrUnknownFormat)
		}
		return []SourceFile{sf}, nil
	}

	prefix := strings.TrimSuffix(loc.Root, "/")
	objects, err := loc.Backend.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	// A prefix that exists but holds no objects is an empty table. Backends
	// signal a location that never existed from List itself (the file backend
	// returns ErrMissingLocation for a missing directory); object stores have
	// no directory existence, so an empty listing is an empty table there.
	var out []SourceFile
	for _, obj := range objects {
		rel := strings.TrimPrefix(strings.TrimPrefix(obj.Key, prefix), "/")
		segments := strings.Split(rel, "/")
		dirs := segments[:len(segments)-1]
		partitions, err := parsePartitions(loc.PartitionKeys, dirs, obj.Key)
		if err != nil {
			return nil, err
		}
		sf, ok := loc.sourceFile(obj, partitions)
		if !ok {
			continue // not one of the format's files (index artifacts, etc.)
		}
		out = append(out, sf)
	}
	return out, nil
}

// sourceFile negotiates compression for one object and checks its extension
// against the format.
func (loc Location) sourceFile(obj ObjectInfo, partitions map[string]string) (SourceFile, bool) {
	inferred, trimmed := inferCompression(obj.Key)
	if !matchesExtension(trimmed, loc.Format) {
		return SourceFile{}, false
	}
	sf := SourceFile{
		Key:         obj.Key,
		Size:        obj.Size,
		Compression: inferred,
		Partitions:  partitions,
	}
	if loc.Compression != nil {
		sf.CompressionMismatch = inferred != *loc.Compression
		sf.Compression = *loc.Compression
	}
	return sf, true
}

func matchesExtension(trimmedKey string, format Format) bool {
	exts := format.Extensions()
	if len(exts) == 0 {
		return true
	}
	lower := strings.ToLower(trimmedKey)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// parsePartitions interprets the directory segments between the table root
// and the file as partition values, either bare or in key=value form. The
// segment count must equal the declared partition-column count.
func parsePartitions(keys []string, dirs []string, file string) (map[string]string, error) {
	if len(keys) == 0 {
		if len(dirs) == 0 {
			return nil, nil
		}
		// Undeclared subdirectories are allowed; they simply carry no
		// partition values.
		return nil, nil
	}
	if len(dirs) != len(keys) {
		return nil, newConfigError(file,
			fmt.Sprintf("path has %d partition segments, table declares %d", len(dirs), len(keys)),
			ErrPartitionMismatch)
	}
	out := make(map[string]string, len(keys))
	for i, seg := range dirs {
		key, value := keys[i], seg
		if j := strings.Index(seg, "="); j >= 0 {
			name := seg[:j]
			if name != keys[i] {
				return nil, newConfigError(file,
					fmt.Sprintf("path segment %q does not match declared partition column %q", name, keys[i]),
					ErrPartitionMismatch)
			}
			value = seg[j+1:]
		}
		out[key] = value
	}
	return out, nil
}

// openSource negotiates the byte stream for one source file, honoring the
// file's codec. Self-decompressing formats receive the raw stream.
func openSource(ctx context.Context, backend StorageBackend, format Format, sf SourceFile) (io.ReadCloser, error) {
	if format.selfCompressed() {
		raw, err := backend.Open(ctx, sf.Key)
		if err != nil {
			return nil, err
		}
		return countingReadCloser{raw}, nil
	}
	raw, err := backend.Open(ctx, sf.Key)
	if err != nil {
		return nil, err
	}
	rc, err := newCodecReader(countingReadCloser{raw}, sf.Compression)
	if err != nil {
		_ = raw.Close()
		return nil, err
	}
	return rc, nil
}
