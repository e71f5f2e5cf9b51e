package filestore

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docask/docask/internal/config"
)

type testReader struct {
	*bytes.Reader
}

func (testReader) Close() error { return nil }

func TestLocalStore_RoundTrip(t *testing.T) {
	store, err := New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": t.TempDir()},
	})
	require.NoError(t, err)

	ctx := context.Background()
	payload := []byte("%PDF-1.4 fake content")
	require.NoError(t, store.Save(ctx, "doc-1.pdf", testReader{bytes.NewReader(payload)}, int64(len(payload))))

	file, err := store.Open(ctx, "doc-1.pdf")
	require.NoError(t, err)
	read, err := io.ReadAll(file)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	require.Equal(t, payload, read)

	require.NoError(t, store.Delete(ctx, "doc-1.pdf"))
	_, err = store.Open(ctx, "doc-1.pdf")
	require.Error(t, err)

	// deleting a missing key is not an error
	require.NoError(t, store.Delete(ctx, "doc-1.pdf"))
}

func TestLocalStore_RejectsTraversalKeys(t *testing.T) {
	store, err := New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": t.TempDir()},
	})
	require.NoError(t, err)

	payload := []byte("x")
	for _, key := range []string{"", "a/b.pdf", "..", `a\b.pdf`} {
		require.Error(t, store.Save(context.Background(), key, testReader{bytes.NewReader(payload)}, 1))
	}
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	payload := []byte("content")
	require.NoError(t, store.Save(ctx, "k.pdf", testReader{bytes.NewReader(payload)}, int64(len(payload))))

	file, err := store.Open(ctx, "k.pdf")
	require.NoError(t, err)
	read, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Equal(t, payload, read)

	require.NoError(t, store.Delete(ctx, "k.pdf"))
	_, err = store.Open(ctx, "k.pdf")
	require.Error(t, err)
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New(config.FileStoreConfig{Type: "ftp"})
	require.Error(t, err)
	_, err = New(config.FileStoreConfig{})
	require.Error(t, err)
}
