package simplemarketplace

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// BlobStore defines the interface for blob storage backends.
type BlobStore interface {
	// Upload stores the object at objectKey, overwriting any prior object.
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// Download streams the object back.
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// GetDownloadURL returns a stable, directly fetchable URL for the object.
	GetDownloadURL(ctx context.Context, objectKey string) (string, error)

	// Delete removes the object. Absent objects surface ErrBlobNotFound.
	Delete(ctx context.Context, objectKey string) error

	// GetObjectMeta retrieves metadata for a stored object.
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// Repository defines the interface for user and post document persistence.
//
// The backing store is collection-oriented and shares no transaction with the
// blob store; callers sequence document and blob writes themselves.
type Repository interface {
	// User operations
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByDisplayName(ctx context.Context, displayName string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error

	// Post operations
	CreatePost(ctx context.Context, post *Post) error
	GetPost(ctx context.Context, id uuid.UUID) (*Post, error)
	UpdatePost(ctx context.Context, post *Post) error
	DeletePost(ctx context.Context, id uuid.UUID) error
	ListPosts(ctx context.Context) ([]*Post, error)
	ListPostsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Post, error)
}

// AuthProvider defines the operations of the external authentication
// provider. Failures surface as undifferentiated errors; AuthBridge wraps
// them as ErrUpstreamFailure.
type AuthProvider interface {
	SignUp(ctx context.Context, email, password string) (*Identity, error)
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	UpdateIdentity(ctx context.Context, userID uuid.UUID, patch IdentityPatch) (*Identity, error)
	SendVerificationEmail(ctx context.Context, userID uuid.UUID) error
	SendPasswordReset(ctx context.Context, email string) error
	SignOut(ctx context.Context, userID uuid.UUID) error
}

// SessionSlot is the persisted client-side storage slot: one string value
// surviving process restarts for up to its TTL.
type SessionSlot interface {
	// Read returns the stored value, or ErrSlotEmpty when the slot holds no
	// live value (never written, cleared, or expired).
	Read(ctx context.Context) (string, error)

	// Write stores the value with the given time-to-live, overwriting any
	// prior value. A non-positive ttl writes an immediately-expired value,
	// emptying the slot.
	Write(ctx context.Context, value string, ttl time.Duration) error
}

// ObjectMeta contains metadata about an object in storage
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	Metadata    map[string]string
}

// UploadFile is one file handed to an upload operation.
type UploadFile struct {
	Name   string
	Reader io.Reader
}
