package simplemarketplace

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PostStatus is the domain type for post lifecycle states.
type PostStatus string

// Post status constants (typed).
const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
	PostStatusEdited    PostStatus = "edited"
	PostStatusDeleted   PostStatus = "deleted"
)

// Blob namespaces. Every blob key is rooted under one of these.
const (
	NamespacePosts    = "posts"
	NamespaceProfiles = "profiles"
)

// DefaultTagVocabulary is the fixed tag set posts may draw from.
// Overridable per service via WithTagVocabulary.
var DefaultTagVocabulary = []string{
	"Option 1", "Option 2", "Option 3", "Option 4", "Option 5",
	"Option 6", "Option 7", "Option 8", "Option 9", "Option 10",
}

// Identity is the minimal user-identifying record mirrored from the
// authentication provider. It carries only the fields this system consumes;
// nothing is synthesized for fields it does not use.
type Identity struct {
	UserID         uuid.UUID `json:"uid"`
	Email          string    `json:"email"`
	DisplayName    string    `json:"displayName"`
	ProfilePicture *BlobRef  `json:"profilePicture,omitempty"`
}

// User is the document-store record backing a profile.
//
// Email and DisplayName are unique across all users; the uniqueness is
// enforced by the Repository implementations (unique constraint in postgres,
// mirrored index in memory), not by the pre-insert availability checks.
type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	DisplayName    string    `json:"display_name"`
	ProfilePicture *BlobRef  `json:"profile_picture,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Post is a published listing. Images are ordered by upload order and every
// ref must have been produced by the BlobCoordinator under the posts
// namespace owned by OwnerID.
type Post struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       string    `json:"price,omitempty"`
	Location    string    `json:"location,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Images      []BlobRef `json:"images,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BlobRef is an opaque locator for a binary object held outside the document
// store. It is exclusively referenced by at most one user (profile picture)
// or listed inside exactly one post's image sequence.
type BlobRef struct {
	Namespace string    `json:"namespace"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Name      string    `json:"name"`
}

// Key returns the storage object key for the ref: namespace/owner/name.
// The key is filename-addressed: two uploads with the same name under the
// same namespace and owner resolve to the same key and silently overwrite.
func (r BlobRef) Key() string {
	return fmt.Sprintf("%s/%s/%s", r.Namespace, r.OwnerID, r.Name)
}

func (r BlobRef) String() string { return r.Key() }

// IsZero reports whether the ref is the zero value.
func (r BlobRef) IsZero() bool {
	return r.Namespace == "" && r.OwnerID == uuid.Nil && r.Name == ""
}

// ParseBlobRef parses an object key of the form namespace/owner/name back
// into a BlobRef. The name component may itself contain slashes.
func ParseBlobRef(key string) (BlobRef, error) {
	parts := strings.SplitN(key, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return BlobRef{}, fmt.Errorf("malformed blob key %q", key)
	}
	ownerID, err := uuid.Parse(parts[1])
	if err != nil {
		return BlobRef{}, fmt.Errorf("malformed blob key %q: %w", key, err)
	}
	return BlobRef{Namespace: parts[0], OwnerID: ownerID, Name: parts[2]}, nil
}

// PostFields is the wholesale-replaced field set of a post. UpdatePost writes
// the full set onto the document; it is not merged field-by-field with what
// is currently stored, so two concurrent edits resolve last-write-wins.
type PostFields struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       string   `json:"price"`
	Location    string   `json:"location"`
	Tags        []string `json:"tags"`
}

// IdentityPatch carries the provider-side profile fields to change. Nil
// fields are left untouched.
type IdentityPatch struct {
	DisplayName *string
	Email       *string
	Password    *string
}
