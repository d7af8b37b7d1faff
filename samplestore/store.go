package samplestore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations return an error satisfying errors.Is(err, ErrNotFound).
// The default maps to os.ErrNotExist.
var ErrNotFound = os.ErrNotExist

// BlobStore is an abstraction for storing immutable sample archives.
// Blobs are addressed by slash-separated names relative to the store
// root, e.g. "runs/2026-08/batch-0042.smp".
type BlobStore interface {
	// Open opens an existing blob for reading.
	// It returns ErrNotFound if no blob exists under the name.
	Open(ctx context.Context, name string) (Blob, error)

	// Create opens a blob for streaming writes. The data becomes visible
	// to readers only once the returned WritableBlob is closed.
	Create(ctx context.Context, name string) (WritableBlob, error)

	// Put writes a complete blob atomically, replacing existing content.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of all blobs under the prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a stored archive.
type Blob interface {
	// ReadAt reads len(p) bytes starting at offset off. It returns io.EOF
	// when fewer than len(p) bytes remain, with n reporting how many were
	// read, matching io.ReaderAt semantics.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)

	// ReadRange returns a reader over [off, off+length), clamped to the
	// blob size. An offset at or past the end returns io.EOF.
	ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error)

	// Size returns the size of the blob in bytes.
	Size() int64

	// Close releases resources held by the handle.
	Close() error
}

// WritableBlob is a write-only handle to a blob under construction.
// Exactly one of Close or Abort must be called.
type WritableBlob interface {
	io.Writer

	// Sync flushes written data to stable storage where the backend
	// supports it. Object-store backends treat it as a no-op.
	Sync() error

	// Close finalizes the blob and makes it visible to readers.
	Close() error

	// Abort discards everything written so far. Whatever was stored
	// under the name before Create is left untouched.
	Abort() error
}

// Mappable is an optional interface for Blobs backed by memory-mapped
// files. Archive readers use it to decode sections without copying.
type Mappable interface {
	// Bytes returns the underlying byte slice.
	// The slice is only valid until the Blob is closed.
	Bytes() ([]byte, error)
}
