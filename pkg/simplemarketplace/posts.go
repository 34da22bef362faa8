package simplemarketplace

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
)

var priceFormat = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)

// PostService coordinates post documents in the repository with the image
// blobs they reference. The two stores share no transaction: every mutating
// operation is a sequence of independent writes with a visible window where
// one side can succeed and the other fail. The hazards are documented per
// operation.
type PostService struct {
	repo  Repository
	blobs *BlobCoordinator

	vocabulary map[string]struct{}
	compensate bool
	logger     *slog.Logger
}

// PostOption represents a functional option for configuring the post service
type PostOption func(*PostService)

// WithTagVocabulary replaces the fixed tag vocabulary posts are validated
// against.
func WithTagVocabulary(tags []string) PostOption {
	return func(s *PostService) {
		s.vocabulary = make(map[string]struct{}, len(tags))
		for _, tag := range tags {
			s.vocabulary[tag] = struct{}{}
		}
	}
}

// WithUploadCompensation turns the sequential upload-then-write flow into a
// saga: on any downstream failure, already-uploaded blobs are deleted before
// the error is surfaced. Off by default, which reproduces the original
// behavior of leaving orphans behind.
func WithUploadCompensation() PostOption {
	return func(s *PostService) {
		s.compensate = true
	}
}

// WithPostLogger sets the logger used for non-fatal cleanup failures.
func WithPostLogger(logger *slog.Logger) PostOption {
	return func(s *PostService) {
		s.logger = logger
	}
}

// NewPostService creates a post service over the repository and blob
// coordinator.
func NewPostService(repo Repository, blobs *BlobCoordinator, options ...PostOption) *PostService {
	s := &PostService{
		repo:   repo,
		blobs:  blobs,
		logger: slog.Default(),
	}
	WithTagVocabulary(DefaultTagVocabulary)(s)
	for _, option := range options {
		option(s)
	}
	return s
}

// CreatePost uploads the request's images sequentially (each upload awaited
// before the next begins), collects the refs in upload order, then writes
// one post document referencing them.
//
// Without compensation enabled, a failure at upload k leaves uploads 1..k-1
// in the blob store as orphans and writes no document.
func (s *PostService) CreatePost(ctx context.Context, caller *Identity, req CreatePostRequest) (*Post, error) {
	if caller == nil {
		return nil, ErrAuthenticationRequired
	}
	if err := s.validateFields(req.Fields); err != nil {
		return nil, err
	}

	refs, err := s.uploadSequentially(ctx, caller.UserID, req.Images)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	post := &Post{
		ID:          uuid.New(),
		OwnerID:     caller.UserID,
		Title:       req.Fields.Title,
		Description: req.Fields.Description,
		Price:       req.Fields.Price,
		Location:    req.Fields.Location,
		Tags:        req.Fields.Tags,
		Images:      refs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.CreatePost(ctx, post); err != nil {
		s.compensateUploads(ctx, refs)
		return nil, &PostError{PostID: post.ID, Op: "create", Err: err}
	}
	return post, nil
}

// GetPost returns the post document by id.
func (s *PostService) GetPost(ctx context.Context, id uuid.UUID) (*Post, error) {
	return s.repo.GetPost(ctx, id)
}

// ListPosts returns all posts ordered by creation time descending.
func (s *PostService) ListPosts(ctx context.Context) ([]*Post, error) {
	return s.repo.ListPosts(ctx)
}

// ListPostsByOwner returns the owner's posts ordered by creation time
// descending.
func (s *PostService) ListPostsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Post, error) {
	return s.repo.ListPostsByOwner(ctx, ownerID)
}

// UpdatePost edits a post the caller owns. The stored field set is replaced
// wholesale with req.Fields, not merged field-by-field, so two concurrent
// updates resolve last-write-wins even for fields the loser never touched.
// The final image sequence is req.RetainedImages followed by the refs of
// req.NewImages in upload order. Every retained ref must already be on the
// post or live under the caller's posts namespace; refs pointing at other
// owners' blobs are rejected before anything is uploaded.
func (s *PostService) UpdatePost(ctx context.Context, caller *Identity, req UpdatePostRequest) (*Post, error) {
	if caller == nil {
		return nil, ErrAuthenticationRequired
	}
	if err := s.validateFields(req.Fields); err != nil {
		return nil, err
	}

	post, err := s.repo.GetPost(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if post.OwnerID != caller.UserID {
		return nil, &PostError{PostID: req.ID, Op: "update", Err: ErrNotOwner}
	}

	stored := make(map[BlobRef]struct{}, len(post.Images))
	for _, img := range post.Images {
		stored[img] = struct{}{}
	}
	for _, ref := range req.RetainedImages {
		if _, ok := stored[ref]; ok {
			continue
		}
		if ref.Namespace != NamespacePosts || ref.OwnerID != caller.UserID {
			return nil, &ValidationError{Field: "retained images", Message: "ref " + ref.Key() + " does not belong to the caller"}
		}
	}

	refs, err := s.uploadSequentially(ctx, caller.UserID, req.NewImages)
	if err != nil {
		return nil, err
	}

	images := make([]BlobRef, 0, len(req.RetainedImages)+len(refs))
	images = append(images, req.RetainedImages...)
	images = append(images, refs...)

	post.Title = req.Fields.Title
	post.Description = req.Fields.Description
	post.Price = req.Fields.Price
	post.Location = req.Fields.Location
	post.Tags = req.Fields.Tags
	post.Images = images
	post.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdatePost(ctx, post); err != nil {
		s.compensateUploads(ctx, refs)
		return nil, &PostError{PostID: post.ID, Op: "update", Err: err}
	}
	return post, nil
}

// DeletePost removes the post document the caller owns. The referenced
// blobs are not cascade-deleted and become orphans in the blob store.
// Documented limitation.
func (s *PostService) DeletePost(ctx context.Context, caller *Identity, id uuid.UUID) error {
	if caller == nil {
		return ErrAuthenticationRequired
	}

	post, err := s.repo.GetPost(ctx, id)
	if err != nil {
		return err
	}
	if post.OwnerID != caller.UserID {
		return &PostError{PostID: id, Op: "delete", Err: ErrNotOwner}
	}

	if err := s.repo.DeletePost(ctx, id); err != nil {
		return &PostError{PostID: id, Op: "delete", Err: err}
	}
	return nil
}

// DeleteImage removes one image from a post the caller owns. The ref must be
// one of the post's images; anything else is rejected before the blob store
// is touched. The blob is deleted first, then the document is updated to
// drop the ref. Ordering hazard: if the document update fails after the blob
// delete succeeded, the document is left referencing a now-missing blob.
func (s *PostService) DeleteImage(ctx context.Context, caller *Identity, postID uuid.UUID, ref BlobRef) error {
	if caller == nil {
		return ErrAuthenticationRequired
	}

	post, err := s.repo.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.OwnerID != caller.UserID {
		return &PostError{PostID: postID, Op: "delete image", Err: ErrNotOwner}
	}

	referenced := false
	for _, img := range post.Images {
		if img == ref {
			referenced = true
			break
		}
	}
	if !referenced {
		return &PostError{PostID: postID, Op: "delete image", Err: ErrBlobNotFound}
	}

	if err := s.blobs.Delete(ctx, ref); err != nil {
		return err
	}

	images := post.Images[:0:0]
	for _, img := range post.Images {
		if img != ref {
			images = append(images, img)
		}
	}
	post.Images = images
	post.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdatePost(ctx, post); err != nil {
		return &PostError{PostID: postID, Op: "delete image", Err: err}
	}
	return nil
}

// uploadSequentially uploads the files one at a time under the posts
// namespace. On failure the already-uploaded refs are compensated only when
// the saga option is enabled; otherwise they remain as orphans.
func (s *PostService) uploadSequentially(ctx context.Context, ownerID uuid.UUID, files []UploadFile) ([]BlobRef, error) {
	refs := make([]BlobRef, 0, len(files))
	for _, file := range files {
		ref, err := s.blobs.Upload(ctx, NamespacePosts, ownerID, file)
		if err != nil {
			s.compensateUploads(ctx, refs)
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// compensateUploads issues compensating deletes for refs uploaded earlier in
// a failed operation. No-op unless WithUploadCompensation was set.
func (s *PostService) compensateUploads(ctx context.Context, refs []BlobRef) {
	if !s.compensate {
		return
	}
	for _, ref := range refs {
		if err := s.blobs.Delete(ctx, ref); err != nil {
			s.logger.Warn("compensating delete failed", "key", ref.Key(), "error", err)
		}
	}
}

func (s *PostService) validateFields(fields PostFields) error {
	if fields.Title == "" {
		return &ValidationError{Field: "title", Message: "required"}
	}
	if fields.Description == "" {
		return &ValidationError{Field: "description", Message: "required"}
	}
	if fields.Price != "" && !priceFormat.MatchString(fields.Price) {
		return &ValidationError{Field: "price", Message: "must be a decimal amount"}
	}
	for _, tag := range fields.Tags {
		if _, ok := s.vocabulary[tag]; !ok {
			return &ValidationError{Field: "tags", Message: "unknown tag " + tag}
		}
	}
	return nil
}
