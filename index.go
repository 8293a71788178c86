package seqtable

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/seqtable-db/seqtable/internal/encoding"
)

// IndexExtension is the suffix of a companion index artifact.
const IndexExtension = ".sqx"

// indexMagic identifies a seqtable index artifact.
var indexMagic = [4]byte{'S', 'Q', 'X', 1}

// IndexEntry maps a half-open coordinate interval of one reference to the
// compressed block holding its first record. Entries are ordered by
// (reference, start) with starts monotonically non-decreasing per reference;
// the scanner binary-searches over start.
type IndexEntry struct {
	Ref    string
	Start  int64
	End    int64
	Offset VirtualOffset
}

// Index is the read-only block index of one bgzf-compressed file. Built
// externally, loaded once, and shared by reference across concurrent region
// queries.
type Index struct {
	entries []IndexEntry
}

// IndexKey returns the companion index key for a data file key.
func IndexKey(dataKey string) string { return dataKey + IndexExtension }

// ReadIndex decodes an index artifact.
func ReadIndex(r io.Reader) (*Index, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, &IndexError{File: "", Message: "read magic", Cause: err}
	}
	if magic != indexMagic {
		return nil, fmt.Errorf("bad magic %q: %w", magic[:], ErrBadIndex)
	}
	count, err := encoding.ReadUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read entry count: %w", ErrBadIndex)
	}
	entries := make([]IndexEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		var e IndexEntry
		if e.Ref, err = encoding.ReadString(r, 1<<16); err != nil {
			return nil, fmt.Errorf("entry %d reference: %w", i, ErrBadIndex)
		}
		if e.Start, err = encoding.ReadInt64(r); err != nil {
			return nil, fmt.Errorf("entry %d start: %w", i, ErrBadIndex)
		}
		if e.End, err = encoding.ReadInt64(r); err != nil {
			return nil, fmt.Errorf("entry %d end: %w", i, ErrBadIndex)
		}
		if e.Offset.File, err = encoding.ReadInt64(r); err != nil {
			return nil, fmt.Errorf("entry %d offset: %w", i, ErrBadIndex)
		}
		if e.Offset.Block, err = encoding.ReadUint16(r); err != nil {
			return nil, fmt.Errorf("entry %d block offset: %w", i, ErrBadIndex)
		}
		entries = append(entries, e)
	}
	return &Index{entries: entries}, nil
}

// WriteIndex encodes an index artifact. Index construction itself is
// external; this codec exists for tooling and tests.
func WriteIndex(w io.Writer, entries []IndexEntry) error {
	if _, err := w.Write(indexMagic[:]); err != nil {
		return err
	}
	if err := encoding.WriteUint32(w, uint32(len(entries))); err != nil {
		return err
	}
	for _, e := range entries {
		if err := encoding.WriteString(w, e.Ref); err != nil {
			return err
		}
		if err := encoding.WriteInt64(w, e.Start); err != nil {
			return err
		}
		if err := encoding.WriteInt64(w, e.End); err != nil {
			return err
		}
		if err := encoding.WriteInt64(w, e.Offset.File); err != nil {
			return err
		}
		if err := encoding.WriteUint16(w, e.Offset.Block); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of entries.
func (ix *Index) Len() int { return len(ix.entries) }

// Chunks returns the contiguous run of entries whose interval overlaps the
// region. A reference name absent from the index yields zero entries: it is
// valid for a query to name a chromosome this file does not carry.
func (ix *Index) Chunks(region Region) []IndexEntry {
	// Entries for one reference are contiguous; locate the reference run
	// first, then binary-search over start within it.
	lo := sort.Search(len(ix.entries), func(i int) bool {
		return ix.entries[i].Ref >= region.Chrom
	})
	hi := lo
	for hi < len(ix.entries) && ix.entries[hi].Ref == region.Chrom {
		hi++
	}
	if lo == hi {
		return nil
	}
	run := ix.entries[lo:hi]
	// First entry that could still overlap: starts are monotonic, so skip
	// entries ending at or before the region start.
	first := sort.Search(len(run), func(i int) bool {
		return run[i].End > region.Start
	})
	var out []IndexEntry
	for _, e := range run[first:] {
		if e.Start >= region.End {
			break
		}
		if e.End > region.Start {
			out = append(out, e)
		}
	}
	return out
}

// indexCache loads each file's index at most once and shares it read-only
// across concurrent region queries.
type indexCache struct {
	mu      sync.Mutex
	indexes map[string]*Index
}

func newIndexCache() *indexCache {
	return &indexCache{indexes: make(map[string]*Index)}
}

func (c *indexCache) load(ctx context.Context, backend StorageBackend, dataKey string) (*Index, error) {
	key := IndexKey(dataKey)
	c.mu.Lock()
	if ix, ok := c.indexes[key]; ok {
		c.mu.Unlock()
		return ix, nil
	}
	c.mu.Unlock()

	rc, err := backend.Open(ctx, key)
	if err != nil {
		return nil, &IndexError{File: dataKey, Message: "index artifact missing", Cause: err}
	}
	defer func() { _ = rc.Close() }()
	ix, err := ReadIndex(rc)
	if err != nil {
		return nil, &IndexError{File: dataKey, Message: "load index", Cause: err}
	}

	c.mu.Lock()
	c.indexes[key] = ix
	c.mu.Unlock()
	return ix, nil
}
