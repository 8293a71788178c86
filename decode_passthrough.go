package seqtable

import "io"

// passthroughDecoder copies opaque columnar payloads through as fixed-size
// chunks. The host engine reads passthrough formats natively; the engine's
// job is only to move the bytes (see CopyFiles for the write path).
type passthroughDecoder struct {
	r    io.Reader
	done bool
}

const passthroughChunkBytes = 1 << 20

func newPassthroughDecoder(r io.Reader) *passthroughDecoder {
	return &passthroughDecoder{r: r}
}

func (d *passthroughDecoder) Next() ([]any, error) {
	if d.done {
		return nil, io.EOF
	}
	buf := make([]byte, passthroughChunkBytes)
	n, err := io.ReadFull(d.r, buf)
	if err == io.EOF {
		d.done = true
		return nil, io.EOF
	}
	if err == io.ErrUnexpectedEOF {
		d.done = true
	} else if err != nil {
		return nil, err
	}
	return []any{string(buf[:n])}, nil
}
