package seqtable

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestFileBackend_ReadWrite(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	defer backend.Close()
	ctx := context.Background()

	if err := backend.Write(ctx, "sub/dir/data.vcf", []byte("payload")); err != nil {
		t.Fatalf("write: %v", err)
	}
	info, err := backend.Stat(ctx, "sub/dir/data.vcf")
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size != 7 {
		t.Errorf("expected size 7, got %d", info.Size)
	}
	rc, err := backend.Open(ctx, "sub/dir/data.vcf")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "payload" {
		t.Errorf("expected payload, got %q", data)
	}
}

func TestFileBackend_OpenRange(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	defer backend.Close()
	ctx := context.Background()
	if err := backend.Write(ctx, "data.bin", []byte("0123456789")); err != nil {
		t.Fatalf("write: %v", err)
	}

	rc, err := backend.OpenRange(ctx, "data.bin", 3, 4)
	if err != nil {
		t.Fatalf("open range: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "3456" {
		t.Errorf("expected 3456, got %q", data)
	}

	rc, err = backend.OpenRange(ctx, "data.bin", 7, -1)
	if err != nil {
		t.Fatalf("open tail: %v", err)
	}
	data, _ = io.ReadAll(rc)
	rc.Close()
	if string(data) != "789" {
		t.Errorf("expected 789, got %q", data)
	}
}

func TestFileBackend_List(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	defer backend.Close()
	ctx := context.Background()
	for _, key := range []string{"tbl/b.vcf", "tbl/a.vcf", "tbl/sub/c.vcf", "other/d.vcf"} {
		if err := backend.Write(ctx, key, nil); err != nil {
			t.Fatalf("write %s: %v", key, err)
		}
	}

	objects, err := backend.List(ctx, "tbl")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"tbl/a.vcf", "tbl/b.vcf", "tbl/sub/c.vcf"}
	if len(objects) != len(want) {
		t.Fatalf("expected %d objects, got %d", len(want), len(objects))
	}
	for i, obj := range objects {
		if obj.Key != want[i] {
			t.Errorf("object %d: expected %s, got %s", i, want[i], obj.Key)
		}
	}
}

func TestFileBackend_TraversalGuard(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	defer backend.Close()
	if _, err := backend.Open(context.Background(), "../outside"); err == nil {
		t.Error("expected error for path escaping the base directory")
	}
}

func TestFileBackend_MissingFile(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	defer backend.Close()
	_, err = backend.Stat(context.Background(), "absent.vcf")
	if !errors.Is(err, ErrMissingLocation) {
		t.Errorf("expected ErrMissingLocation, got %v", err)
	}
}

func TestFileBackend_StatDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "tbl"), 0o755); err != nil {
		t.Fatal(err)
	}
	backend, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	defer backend.Close()
	// Directories are not objects; the resolver falls through to List.
	if _, err := backend.Stat(context.Background(), "tbl"); err == nil {
		t.Error("expected error when statting a directory")
	}
}

func TestMemoryBackend_RoundTrip(t *testing.T) {
	backend := NewMemoryBackend()
	ctx := context.Background()
	if err := backend.Write(ctx, "k", []byte("value")); err != nil {
		t.Fatalf("write: %v", err)
	}

	rc, err := backend.Open(ctx, "k")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "value" {
		t.Errorf("expected value, got %q", data)
	}
	if n := backend.OpenCount("k"); n != 1 {
		t.Errorf("expected open count 1, got %d", n)
	}

	rc, err = backend.OpenRange(ctx, "k", 1, 3)
	if err != nil {
		t.Fatalf("open range: %v", err)
	}
	data, _ = io.ReadAll(rc)
	rc.Close()
	if string(data) != "alu" {
		t.Errorf("expected alu, got %q", data)
	}
}

func TestRangeSeeker(t *testing.T) {
	backend := memBackendWith(t, map[string][]byte{"k": []byte("0123456789")})
	rs := newRangeSeeker(context.Background(), backend, "k", 10)
	defer rs.Close()

	buf := make([]byte, 4)
	if _, err := io.ReadFull(rs, buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf) != "0123" {
		t.Errorf("expected 0123, got %q", buf)
	}

	if _, err := rs.Seek(7, io.SeekStart); err != nil {
		t.Fatalf("seek: %v", err)
	}
	data, err := io.ReadAll(rs)
	if err != nil {
		t.Fatalf("read after seek: %v", err)
	}
	if string(data) != "789" {
		t.Errorf("expected 789 after seek, got %q", data)
	}
}
