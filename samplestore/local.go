package samplestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/hupe1980/annealgo/internal/fs"
	"github.com/hupe1980/annealgo/internal/mmap"
)

// LocalStore implements BlobStore on the local filesystem. Reads are
// served through memory-mapped files, so archive readers get zero-copy
// access via the Mappable interface. Writes go through a temp file that
// is fsynced and renamed into place, so a blob is either fully present
// or absent.
type LocalStore struct {
	root string
	fsys fs.FileSystem
}

// LocalStoreOptions configures a LocalStore.
type LocalStoreOptions struct {
	// FileSystem handles all write-side operations. Defaults to the os
	// package; tests can inject a fault-injecting implementation.
	FileSystem fs.FileSystem
}

// NewLocalStore creates a LocalStore rooted at the given directory,
// creating it if necessary.
func NewLocalStore(root string, optFns ...func(o *LocalStoreOptions)) (*LocalStore, error) {
	opts := LocalStoreOptions{
		FileSystem: fs.Default,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := opts.FileSystem.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{root: root, fsys: opts.FileSystem}, nil
}

func (s *LocalStore) path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

// Open opens a blob for reading. Mapping needs a real file descriptor, so
// reads bypass the FileSystem abstraction.
func (s *LocalStore) Open(_ context.Context, name string) (Blob, error) {
	m, err := mmap.Open(s.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	// Archive readers jump between sections, not front to back.
	_ = m.Advise(mmap.AccessRandom)
	return &localBlob{m: m}, nil
}

// tempSeq distinguishes concurrent writes to the same name.
var tempSeq atomic.Uint64

// Create opens a blob for streaming writes. The data is written to a
// temp file next to the target and renamed into place on Close.
func (s *LocalStore) Create(_ context.Context, name string) (WritableBlob, error) {
	path := s.path(name)
	if err := s.fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	tmp := fmt.Sprintf("%s.tmp-%d-%d", path, os.Getpid(), tempSeq.Add(1))
	f, err := s.fsys.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	return &localWritableBlob{fsys: s.fsys, f: f, tmp: tmp, path: path}, nil
}

// Put writes a blob atomically.
func (s *LocalStore) Put(ctx context.Context, name string, data []byte) error {
	wb, err := s.Create(ctx, name)
	if err != nil {
		return err
	}
	if _, err := wb.Write(data); err != nil {
		_ = wb.Abort()
		return err
	}
	return wb.Close()
}

// Delete removes a blob. A missing blob is not an error.
func (s *LocalStore) Delete(_ context.Context, name string) error {
	err := s.fsys.Remove(s.path(name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// List returns all blob names under the prefix, sorted. Uncommitted
// temp files are skipped.
func (s *LocalStore) List(_ context.Context, prefix string) ([]string, error) {
	var names []string

	var walk func(dir, rel string) error
	walk = func(dir, rel string) error {
		entries, err := s.fsys.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			childRel := e.Name()
			if rel != "" {
				childRel = rel + "/" + e.Name()
			}
			if e.IsDir() {
				if err := walk(filepath.Join(dir, e.Name()), childRel); err != nil {
					return err
				}
				continue
			}
			if strings.Contains(e.Name(), ".tmp-") {
				continue
			}
			if strings.HasPrefix(childRel, prefix) {
				names = append(names, childRel)
			}
		}
		return nil
	}
	if err := walk(s.root, ""); err != nil {
		return nil, err
	}

	sort.Strings(names)
	return names, nil
}

// commitTemp syncs and closes the temp file and renames it over path.
// The temp file is removed on any failure.
func commitTemp(fsys fs.FileSystem, f fs.File, tmp, path string) error {
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = fsys.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = fsys.Remove(tmp)
		return err
	}
	if err := fsys.Rename(tmp, path); err != nil {
		_ = fsys.Remove(tmp)
		return err
	}
	syncDir(filepath.Dir(path))
	return nil
}

// syncDir makes the rename durable. Failures are ignored: some
// filesystems reject fsync on directories.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

// localBlob serves reads from a memory-mapped archive file.
type localBlob struct {
	m *mmap.File
}

func (b *localBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	return b.m.ReadAt(p, off)
}

func (b *localBlob) ReadRange(_ context.Context, off, length int64) (io.ReadCloser, error) {
	data := b.m.Bytes()
	if off >= int64(len(data)) {
		return nil, io.EOF
	}
	end := off + length
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	// The view stays valid because it borrows from the mapping, which
	// lives until the blob is closed.
	return io.NopCloser(bytes.NewReader(data[off:end])), nil
}

func (b *localBlob) Size() int64 {
	return int64(b.m.Size())
}

func (b *localBlob) Close() error {
	return b.m.Close()
}

// Bytes implements Mappable for zero-copy archive decoding.
func (b *localBlob) Bytes() ([]byte, error) {
	return b.m.Bytes(), nil
}

// localWritableBlob writes to a temp file and commits it on Close.
type localWritableBlob struct {
	fsys   fs.FileSystem
	f      fs.File
	tmp    string
	path   string
	closed bool
}

func (w *localWritableBlob) Write(p []byte) (int, error) {
	return w.f.Write(p)
}

func (w *localWritableBlob) Sync() error {
	return w.f.Sync()
}

// Close commits the blob. After Close the blob is visible under its
// final name.
func (w *localWritableBlob) Close() error {
	if w.closed {
		return os.ErrClosed
	}
	w.closed = true
	return commitTemp(w.fsys, w.f, w.tmp, w.path)
}

// Abort drops the temp file without touching the target path.
func (w *localWritableBlob) Abort() error {
	if w.closed {
		return os.ErrClosed
	}
	w.closed = true
	_ = w.f.Close()
	return w.fsys.Remove(w.tmp)
}
