package simplemarketplace

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error kinds. Operation boundaries classify underlying failures into this
// taxonomy so callers can branch with errors.Is; the HTTP layer derives the
// user-facing message at the outermost boundary.
var (
	// ErrValidation indicates a missing or malformed required field.
	ErrValidation = errors.New("validation failed")

	// ErrAuthenticationRequired indicates the operation needs an active session.
	ErrAuthenticationRequired = errors.New("authentication required")

	// ErrNotOwner indicates the caller is not the owner of the resource.
	ErrNotOwner = errors.New("caller is not the resource owner")

	// ErrUserNotFound indicates a user document was not found.
	ErrUserNotFound = errors.New("user not found")

	// ErrPostNotFound indicates a post document was not found.
	ErrPostNotFound = errors.New("post not found")

	// ErrBlobNotFound indicates a blob object was not found.
	ErrBlobNotFound = errors.New("blob not found")

	// ErrAlreadyExists indicates a unique constraint (email, display name)
	// rejected a write.
	ErrAlreadyExists = errors.New("already exists")

	// ErrUpstreamFailure indicates the provider or a store was unreachable or
	// erroring. Provider failures are undifferentiated; no structured code
	// survives this layer.
	ErrUpstreamFailure = errors.New("upstream failure")

	// ErrCorruptSession indicates the persisted session payload failed to parse.
	ErrCorruptSession = errors.New("corrupted session payload")

	// ErrSlotEmpty indicates the persisted session slot holds no live value.
	ErrSlotEmpty = errors.New("session slot empty")
)

// ValidationError reports which field failed validation. It unwraps to
// ErrValidation so callers can classify without inspecting the field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// PostError represents an error related to post operations
type PostError struct {
	PostID uuid.UUID
	Op     string
	Err    error
}

func (e *PostError) Error() string {
	return fmt.Sprintf("post operation %s failed for post %s: %v", e.Op, e.PostID, e.Err)
}

func (e *PostError) Unwrap() error { return e.Err }

// BlobError represents an error related to blob operations
type BlobError struct {
	Key string
	Op  string
	Err error
}

func (e *BlobError) Error() string {
	return fmt.Sprintf("blob operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *BlobError) Unwrap() error { return e.Err }

// AuthError represents an error related to auth provider operations
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth operation %s failed: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }
