package simplemarketplace

import "github.com/google/uuid"

// Request DTOs

// SignUpRequest contains parameters for creating an account.
type SignUpRequest struct {
	Email       string
	Password    string
	DisplayName string
}

// UpdateProfileRequest contains the profile fields to change. Empty fields
// are left untouched, mirroring the conditional provider updates of the
// settings flow.
type UpdateProfileRequest struct {
	DisplayName string
	Email       string
	Password    string
}

// CreatePostRequest contains parameters for publishing a post. Images are
// uploaded sequentially in slice order before the document is written.
type CreatePostRequest struct {
	Fields PostFields
	Images []UploadFile
}

// UpdatePostRequest contains parameters for editing a post. The final image
// sequence is RetainedImages followed by the refs of NewImages in upload
// order; Fields replaces the stored field set wholesale.
type UpdatePostRequest struct {
	ID             uuid.UUID
	Fields         PostFields
	RetainedImages []BlobRef
	NewImages      []UploadFile
}
