package simplemarketplace_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-marketplace/pkg/simplemarketplace"
	memorystorage "github.com/tendant/simple-marketplace/pkg/simplemarketplace/storage/memory"
)

func TestBlobCoordinatorUpload(t *testing.T) {
	ctx := context.Background()
	store := memorystorage.New()
	blobs := simplemarketplace.NewBlobCoordinator(store)
	owner := uuid.New()

	ref, err := blobs.Upload(ctx, simplemarketplace.NamespacePosts, owner, simplemarketplace.UploadFile{
		Name:   "photo.jpg",
		Reader: strings.NewReader("first"),
	})
	require.NoError(t, err)
	assert.Equal(t, "posts/"+owner.String()+"/photo.jpg", ref.Key())

	exists, err := blobs.Exists(ctx, ref)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestBlobCoordinatorUploadOverwritesSameName(t *testing.T) {
	ctx := context.Background()
	store := memorystorage.New()
	blobs := simplemarketplace.NewBlobCoordinator(store)
	owner := uuid.New()

	file := func(content string) simplemarketplace.UploadFile {
		return simplemarketplace.UploadFile{Name: "photo.jpg", Reader: strings.NewReader(content)}
	}

	first, err := blobs.Upload(ctx, simplemarketplace.NamespacePosts, owner, file("first"))
	require.NoError(t, err)
	second, err := blobs.Upload(ctx, simplemarketplace.NamespacePosts, owner, file("second"))
	require.NoError(t, err)

	// Same name resolves to the same key; the second upload clobbers the first.
	assert.Equal(t, first, second)

	rc, err := store.Download(ctx, first.Key())
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestBlobCoordinatorUploadValidation(t *testing.T) {
	ctx := context.Background()
	blobs := simplemarketplace.NewBlobCoordinator(memorystorage.New())

	tests := []struct {
		name      string
		namespace string
		owner     uuid.UUID
		fileName  string
	}{
		{"missing namespace", "", uuid.New(), "a.jpg"},
		{"missing owner", simplemarketplace.NamespacePosts, uuid.Nil, "a.jpg"},
		{"missing file name", simplemarketplace.NamespacePosts, uuid.New(), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := blobs.Upload(ctx, tt.namespace, tt.owner, simplemarketplace.UploadFile{
				Name:   tt.fileName,
				Reader: strings.NewReader("x"),
			})
			assert.ErrorIs(t, err, simplemarketplace.ErrValidation)
		})
	}
}

func TestBlobCoordinatorDeleteTolerant(t *testing.T) {
	ctx := context.Background()
	store := memorystorage.New()
	blobs := simplemarketplace.NewBlobCoordinator(store)
	owner := uuid.New()

	ref, err := blobs.Upload(ctx, simplemarketplace.NamespacePosts, owner, simplemarketplace.UploadFile{
		Name:   "photo.jpg",
		Reader: strings.NewReader("data"),
	})
	require.NoError(t, err)

	require.NoError(t, blobs.Delete(ctx, ref))

	// Deleting an already-deleted object is a non-fatal outcome.
	assert.NoError(t, blobs.Delete(ctx, ref))
}

func TestBlobCoordinatorResolveURL(t *testing.T) {
	ctx := context.Background()
	store := memorystorage.New()
	blobs := simplemarketplace.NewBlobCoordinator(store)
	owner := uuid.New()

	ref, err := blobs.Upload(ctx, simplemarketplace.NamespaceProfiles, owner, simplemarketplace.UploadFile{
		Name:   "avatar.png",
		Reader: strings.NewReader("data"),
	})
	require.NoError(t, err)

	url, err := blobs.ResolveURL(ctx, ref)
	require.NoError(t, err)
	assert.Contains(t, url, ref.Key())
}

func TestParseBlobRef(t *testing.T) {
	owner := uuid.New()

	ref, err := simplemarketplace.ParseBlobRef("posts/" + owner.String() + "/dir/photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, simplemarketplace.NamespacePosts, ref.Namespace)
	assert.Equal(t, owner, ref.OwnerID)
	assert.Equal(t, "dir/photo.jpg", ref.Name)

	_, err = simplemarketplace.ParseBlobRef("posts/not-a-uuid/photo.jpg")
	assert.Error(t, err)

	_, err = simplemarketplace.ParseBlobRef("posts/" + owner.String())
	assert.Error(t, err)
}
