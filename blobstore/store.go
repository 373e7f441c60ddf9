// Package blobstore abstracts where image containers live.
//
// The core format only needs two collaborator semantics: a sink that accepts
// one contiguous byte sequence, and a source that lends back a contiguous,
// stable byte range of known length. Stores are free to implement the source
// side zero-copy (see Mappable).
package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore is an abstraction for accessing immutable image blobs.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Put writes a blob in one shot. Blobs are immutable; Put over an
	// existing name replaces it atomically where the backend allows.
	Put(ctx context.Context, name string, data []byte) error
}

// Blob is a read-only handle to an image blob.
type Blob interface {
	io.Closer
	// ReadAt reads len(p) bytes at offset off.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// Size returns the size of the blob in bytes.
	Size() int64
}

// Mappable is an optional interface for Blobs that can lend their bytes
// without copying. The slice is valid until the Blob is closed.
type Mappable interface {
	Bytes() ([]byte, error)
}

// ReadAll fetches the full contents of a blob, zero-copy when the blob is
// Mappable.
func ReadAll(ctx context.Context, b Blob, size int64) ([]byte, error) {
	if m, ok := b.(Mappable); ok {
		return m.Bytes()
	}
	buf := make([]byte, size)
	if _, err := b.ReadAt(ctx, buf, 0); err != nil && err != io.EOF {
		return nil, err
	}
	return buf, nil
}
