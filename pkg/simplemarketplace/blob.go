package simplemarketplace

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// BlobCoordinator uploads, deletes and resolves binary objects in the blob
// store on behalf of the document-side services. Keys are deterministic:
// namespace/ownerID/filename.
type BlobCoordinator struct {
	store BlobStore
}

// NewBlobCoordinator creates a coordinator over the given blob store.
func NewBlobCoordinator(store BlobStore) *BlobCoordinator {
	return &BlobCoordinator{store: store}
}

// Upload stores the file under the namespace owned by ownerID and returns
// its ref. An upload with a filename already present under the same
// namespace and owner silently overwrites the prior object; there is no
// dedup or rename-on-conflict. Known correctness risk: two post images both
// named photo.jpg clobber each other.
func (c *BlobCoordinator) Upload(ctx context.Context, namespace string, ownerID uuid.UUID, file UploadFile) (BlobRef, error) {
	if namespace == "" {
		return BlobRef{}, &ValidationError{Field: "namespace", Message: "required"}
	}
	if ownerID == uuid.Nil {
		return BlobRef{}, &ValidationError{Field: "owner", Message: "required"}
	}
	if file.Name == "" {
		return BlobRef{}, &ValidationError{Field: "file name", Message: "required"}
	}

	ref := BlobRef{Namespace: namespace, OwnerID: ownerID, Name: file.Name}
	if err := c.store.Upload(ctx, ref.Key(), file.Reader); err != nil {
		return BlobRef{}, &BlobError{Key: ref.Key(), Op: "upload", Err: err}
	}
	return ref, nil
}

// Delete removes the object behind ref. An already-deleted object is a
// non-fatal outcome: ErrBlobNotFound from the store is swallowed.
func (c *BlobCoordinator) Delete(ctx context.Context, ref BlobRef) error {
	if err := c.store.Delete(ctx, ref.Key()); err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return nil
		}
		return &BlobError{Key: ref.Key(), Op: "delete", Err: err}
	}
	return nil
}

// ResolveURL resolves ref to a directly fetchable URL.
func (c *BlobCoordinator) ResolveURL(ctx context.Context, ref BlobRef) (string, error) {
	url, err := c.store.GetDownloadURL(ctx, ref.Key())
	if err != nil {
		return "", &BlobError{Key: ref.Key(), Op: "resolve", Err: err}
	}
	return url, nil
}

// Exists reports whether the object behind ref is currently retrievable.
func (c *BlobCoordinator) Exists(ctx context.Context, ref BlobRef) (bool, error) {
	_, err := c.store.GetObjectMeta(ctx, ref.Key())
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return false, nil
		}
		return false, &BlobError{Key: ref.Key(), Op: "stat", Err: err}
	}
	return true, nil
}
