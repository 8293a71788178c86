package seqtable

import (
	"context"
	"io"
	"strings"
)

// CopyResult summarizes a completed copy between backends.
type CopyResult struct {
	Files int
	Bytes int64
}

// CopyFiles copies every object under srcRoot on src to the same relative
// keys under dstRoot on dst, byte for byte. Companion index files travel
// with their data files. This is the staging path for pulling remote
// datasets onto local disk (or pushing local files to object storage)
// without re-encoding.
func CopyFiles(ctx context.Context, src StorageBackend, srcRoot string, dst StorageBackend, dstRoot string) (CopyResult, error) {
	var result CopyResult

	// Single object first; fall back to prefix listing.
	if info, err := src.Stat(ctx, srcRoot); err == nil {
		n, err := copyObject(ctx, src, info.Key, dst, joinKey(dstRoot, baseKey(info.Key)))
		if err != nil {
			return result, err
		}
		result.Files, result.Bytes = 1, n
		return result, nil
	}

	objects, err := src.List(ctx, srcRoot)
	if err != nil {
		return result, err
	}
	if len(objects) == 0 {
		return result, newConfigError(srcRoot, "no objects to copy", ErrMissingLocation)
	}
	prefix := strings.TrimSuffix(srcRoot, "/") + "/"
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		rel := strings.TrimPrefix(obj.Key, prefix)
		n, err := copyObject(ctx, src, obj.Key, dst, joinKey(dstRoot, rel))
		if err != nil {
			return result, err
		}
		result.Files++
		result.Bytes += n
	}
	return result, nil
}

func copyObject(ctx context.Context, src StorageBackend, srcKey string, dst StorageBackend, dstKey string) (int64, error) {
	rc, err := src.Open(ctx, srcKey)
	if err != nil {
		return 0, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return 0, &ScanError{File: srcKey, Cause: err}
	}
	if err := dst.Write(ctx, dstKey, data); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func joinKey(root, rel string) string {
	root = strings.TrimSuffix(root, "/")
	if root == "" {
		return rel
	}
	return root + "/" + rel
}

func baseKey(key string) string {
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		return key[i+1:]
	}
	return key
}
