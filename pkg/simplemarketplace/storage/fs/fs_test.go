package fs_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-marketplace/pkg/simplemarketplace"
	"github.com/tendant/simple-marketplace/pkg/simplemarketplace/storage/fs"
)

func newBackend(t *testing.T) (simplemarketplace.BlobStore, string) {
	t.Helper()
	dir := t.TempDir()
	backend, err := fs.New(fs.Config{BaseDir: dir, URLPrefix: "http://localhost/files"})
	require.NoError(t, err)
	return backend, dir
}

func TestNewRequiresBaseDir(t *testing.T) {
	_, err := fs.New(fs.Config{})
	assert.Error(t, err)
}

func TestUploadDownloadDelete(t *testing.T) {
	ctx := context.Background()
	backend, dir := newBackend(t)

	key := "posts/owner/photo.jpg"
	require.NoError(t, backend.Upload(ctx, key, strings.NewReader("data")))

	// Keys map to nested paths under the base directory.
	_, err := os.Stat(filepath.Join(dir, "posts", "owner", "photo.jpg"))
	require.NoError(t, err)

	rc, err := backend.Download(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "data", string(data))

	require.NoError(t, backend.Delete(ctx, key))
	_, err = backend.Download(ctx, key)
	assert.ErrorIs(t, err, simplemarketplace.ErrBlobNotFound)

	// Empty parent directories are cleaned up.
	_, err = os.Stat(filepath.Join(dir, "posts"))
	assert.True(t, os.IsNotExist(err))
}

func TestUploadOverwrites(t *testing.T) {
	ctx := context.Background()
	backend, _ := newBackend(t)

	require.NoError(t, backend.Upload(ctx, "k", strings.NewReader("first")))
	require.NoError(t, backend.Upload(ctx, "k", strings.NewReader("second")))

	rc, err := backend.Download(ctx, "k")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestGetObjectMeta(t *testing.T) {
	ctx := context.Background()
	backend, _ := newBackend(t)

	require.NoError(t, backend.Upload(ctx, "k", strings.NewReader("hello")))

	meta, err := backend.GetObjectMeta(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(5), meta.Size)
	assert.NotEmpty(t, meta.ContentType)

	_, err = backend.GetObjectMeta(ctx, "missing")
	assert.ErrorIs(t, err, simplemarketplace.ErrBlobNotFound)
}

func TestGetDownloadURL(t *testing.T) {
	ctx := context.Background()
	backend, _ := newBackend(t)

	require.NoError(t, backend.Upload(ctx, "posts/owner/a.jpg", strings.NewReader("x")))

	url, err := backend.GetDownloadURL(ctx, "posts/owner/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost/files/posts/owner/a.jpg", url)

	_, err = backend.GetDownloadURL(ctx, "missing")
	assert.ErrorIs(t, err, simplemarketplace.ErrBlobNotFound)
}

func TestDeleteMissing(t *testing.T) {
	ctx := context.Background()
	backend, _ := newBackend(t)

	assert.ErrorIs(t, backend.Delete(ctx, "missing"), simplemarketplace.ErrBlobNotFound)
}
