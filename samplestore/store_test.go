package samplestore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreTests exercises the BlobStore contract shared by all backends.
func runStoreTests(t *testing.T, newStore func(t *testing.T) BlobStore) {
	ctx := context.Background()

	t.Run("OpenMissing", func(t *testing.T) {
		store := newStore(t)

		_, err := store.Open(ctx, "missing.smp")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("PutOpenRead", func(t *testing.T) {
		store := newStore(t)
		data := []byte("annealed sample archive payload")
		require.NoError(t, store.Put(ctx, "runs/a.smp", data))

		blob, err := store.Open(ctx, "runs/a.smp")
		require.NoError(t, err)
		defer blob.Close()

		require.Equal(t, int64(len(data)), blob.Size())

		buf := make([]byte, 8)
		n, err := blob.ReadAt(ctx, buf, 9)
		require.NoError(t, err)
		require.Equal(t, 8, n)
		assert.Equal(t, "sample a", string(buf))
	})

	t.Run("ReadAtShortAndPastEnd", func(t *testing.T) {
		store := newStore(t)
		data := []byte("annealed sample archive payload")
		require.NoError(t, store.Put(ctx, "short.smp", data))

		blob, err := store.Open(ctx, "short.smp")
		require.NoError(t, err)
		defer blob.Close()

		buf := make([]byte, 10)
		n, err := blob.ReadAt(ctx, buf, 24)
		require.ErrorIs(t, err, io.EOF)
		require.Equal(t, 7, n)
		assert.Equal(t, "payload", string(buf[:n]))

		n, err = blob.ReadAt(ctx, buf, int64(len(data)))
		require.ErrorIs(t, err, io.EOF)
		assert.Equal(t, 0, n)
	})

	t.Run("ReadRange", func(t *testing.T) {
		store := newStore(t)
		data := []byte("annealed sample archive payload")
		require.NoError(t, store.Put(ctx, "range.smp", data))

		blob, err := store.Open(ctx, "range.smp")
		require.NoError(t, err)
		defer blob.Close()

		r, err := blob.ReadRange(ctx, 16, 7)
		require.NoError(t, err)
		got, err := io.ReadAll(r)
		require.NoError(t, err)
		require.NoError(t, r.Close())
		assert.Equal(t, "archive", string(got))

		// Length past the end is clamped.
		r, err = blob.ReadRange(ctx, 24, 100)
		require.NoError(t, err)
		got, err = io.ReadAll(r)
		require.NoError(t, err)
		require.NoError(t, r.Close())
		assert.Equal(t, "payload", string(got))

		// Offset past the end fails outright.
		_, err = blob.ReadRange(ctx, int64(len(data)), 4)
		require.ErrorIs(t, err, io.EOF)
	})

	t.Run("CreateStreaming", func(t *testing.T) {
		store := newStore(t)

		w, err := store.Create(ctx, "stream.smp")
		require.NoError(t, err)

		n, err := w.Write([]byte("first chunk, "))
		require.NoError(t, err)
		require.Equal(t, 13, n)
		require.NoError(t, w.Sync())
		_, err = w.Write([]byte("second chunk"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		blob, err := store.Open(ctx, "stream.smp")
		require.NoError(t, err)
		defer blob.Close()

		buf := make([]byte, blob.Size())
		_, err = blob.ReadAt(ctx, buf, 0)
		require.NoError(t, err)
		assert.Equal(t, "first chunk, second chunk", string(buf))
	})

	t.Run("CreateAbort", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Put(ctx, "abort.smp", []byte("keep me")))

		w, err := store.Create(ctx, "abort.smp")
		require.NoError(t, err)
		_, err = w.Write([]byte("half-written replacement"))
		require.NoError(t, err)
		require.NoError(t, w.Abort())

		// The old content survives an aborted overwrite.
		blob, err := store.Open(ctx, "abort.smp")
		require.NoError(t, err)
		defer blob.Close()

		buf := make([]byte, blob.Size())
		_, err = blob.ReadAt(ctx, buf, 0)
		require.NoError(t, err)
		assert.Equal(t, "keep me", string(buf))
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Put(ctx, "over.smp", []byte("old")))
		require.NoError(t, store.Put(ctx, "over.smp", []byte("newer")))

		blob, err := store.Open(ctx, "over.smp")
		require.NoError(t, err)
		defer blob.Close()

		require.Equal(t, int64(5), blob.Size())
		buf := make([]byte, 5)
		_, err = blob.ReadAt(ctx, buf, 0)
		require.NoError(t, err)
		assert.Equal(t, "newer", string(buf))
	})

	t.Run("EmptyBlob", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Put(ctx, "empty.smp", nil))

		blob, err := store.Open(ctx, "empty.smp")
		require.NoError(t, err)
		defer blob.Close()

		require.Equal(t, int64(0), blob.Size())
		n, err := blob.ReadAt(ctx, make([]byte, 4), 0)
		require.ErrorIs(t, err, io.EOF)
		assert.Equal(t, 0, n)
	})

	t.Run("Delete", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Put(ctx, "gone.smp", []byte("x")))
		require.NoError(t, store.Delete(ctx, "gone.smp"))

		_, err := store.Open(ctx, "gone.smp")
		require.ErrorIs(t, err, ErrNotFound)

		// Deleting again is fine.
		require.NoError(t, store.Delete(ctx, "gone.smp"))
	})

	t.Run("List", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Put(ctx, "runs/2026/a.smp", []byte("a")))
		require.NoError(t, store.Put(ctx, "runs/2026/b.smp", []byte("b")))
		require.NoError(t, store.Put(ctx, "scratch/x.smp", []byte("x")))

		all, err := store.List(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"runs/2026/a.smp", "runs/2026/b.smp", "scratch/x.smp"}, all)

		runs, err := store.List(ctx, "runs/")
		require.NoError(t, err)
		assert.Equal(t, []string{"runs/2026/a.smp", "runs/2026/b.smp"}, runs)

		none, err := store.List(ctx, "nope/")
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) BlobStore {
		return NewMemoryStore()
	})
}

func TestLocalStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) BlobStore {
		store, err := NewLocalStore(t.TempDir())
		require.NoError(t, err)
		return store
	})
}

// An open handle keeps reading the bytes it was opened on, even if the
// name is overwritten behind it.
func TestMemoryStore_OpenIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Put(ctx, "iso.smp", []byte("before")))
	blob, err := store.Open(ctx, "iso.smp")
	require.NoError(t, err)
	defer blob.Close()

	require.NoError(t, store.Put(ctx, "iso.smp", []byte("after!")))

	buf := make([]byte, 6)
	_, err = blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "before", string(buf))
}
