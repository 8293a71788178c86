package seqtable

import (
	"context"
	"io"
)

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// StorageBackend abstracts the byte stores table locations resolve against:
// local filesystem and S3-compatible object storage. Backends must support
// full-object reads, byte-range reads (for bgzf seeking), prefix listing, and
// object writes for copy-out.
type StorageBackend interface {
	// Open returns a sequential reader over the whole object.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// OpenRange returns a reader over [offset, offset+length) of the object.
	// length < 0 reads to the end.
	OpenRange(ctx context.Context, key string, offset, length int64) (io.ReadCloser, error)

	// Stat describes a single object. Missing objects return an error
	// wrapping ErrMissingLocation.
	Stat(ctx context.Context, key string) (ObjectInfo, error)

	// List returns the objects under a key prefix, recursively, in
	// lexicographic key order.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Write stores an object (copy-out path).
	Write(ctx context.Context, key string, data []byte) error

	// Close releases backend resources.
	Close() error
}

// Ensure interfaces are implemented.
var (
	_ StorageBackend = (*FileBackend)(nil)
	_ StorageBackend = (*MemoryBackend)(nil)
	_ StorageBackend = (*S3Backend)(nil)
)

// rangeSeeker adapts a StorageBackend object into an io.ReadSeeker using
// range reads, as bgzf random access requires. Reads are issued on demand;
// a seek only records the new position.
type rangeSeeker struct {
	ctx     context.Context
	backend StorageBackend
	key     string
	size    int64
	pos     int64
	rc      io.ReadCloser
}

func newRangeSeeker(ctx context.Context, backend StorageBackend, key string, size int64) *rangeSeeker {
	return &rangeSeeker{ctx: ctx, backend: backend, key: key, size: size}
}

func (r *rangeSeeker) Read(p []byte) (int, error) {
	if r.pos >= r.size {
		return 0, io.EOF
	}
	if r.rc == nil {
		rc, err := r.backend.OpenRange(r.ctx, r.key, r.pos, -1)
		if err != nil {
			return 0, err
		}
		r.rc = rc
	}
	n, err := r.rc.Read(p)
	r.pos += int64(n)
	if n > 0 {
		metricBytesRead.Add(float64(n))
	}
	return n, err
}

func (r *rangeSeeker) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.pos + offset
	case io.SeekEnd:
		abs = r.size + offset
	}
	if abs != r.pos {
		if r.rc != nil {
			_ = r.rc.Close()
			r.rc = nil
		}
		r.pos = abs
	}
	return abs, nil
}

func (r *rangeSeeker) Close() error {
	if r.rc != nil {
		err := r.rc.Close()
		r.rc = nil
		return err
	}
	return nil
}
