package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/simple-marketplace/pkg/simplemarketplace"
)

// maxUploadMemory bounds the in-memory portion of multipart parsing.
const maxUploadMemory = 32 << 20

// PostsHandler handles HTTP requests for posts and their images.
type PostsHandler struct {
	posts *simplemarketplace.PostService
	blobs *simplemarketplace.BlobCoordinator
}

// NewPostsHandler creates a new posts handler
func NewPostsHandler(posts *simplemarketplace.PostService, blobs *simplemarketplace.BlobCoordinator) *PostsHandler {
	return &PostsHandler{posts: posts, blobs: blobs}
}

// Routes returns the routes for posts
func (h *PostsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListPosts)
	r.Post("/", h.CreatePost)
	r.Get("/{id}", h.GetPost)
	r.Put("/{id}", h.UpdatePost)
	r.Delete("/{id}", h.DeletePost)
	r.Delete("/{id}/images", h.DeleteImage)

	return r
}

// ImageResponse is one post image with its resolved URL
type ImageResponse struct {
	Key string `json:"key"`
	URL string `json:"url,omitempty"`
}

// PostResponse is the response body for a post
type PostResponse struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"owner_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       string          `json:"price,omitempty"`
	Location    string          `json:"location,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	Images      []ImageResponse `json:"images,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (h *PostsHandler) postResponse(r *http.Request, post *simplemarketplace.Post) PostResponse {
	resp := PostResponse{
		ID:          post.ID.String(),
		OwnerID:     post.OwnerID.String(),
		Title:       post.Title,
		Description: post.Description,
		Price:       post.Price,
		Location:    post.Location,
		Tags:        post.Tags,
		CreatedAt:   post.CreatedAt,
		UpdatedAt:   post.UpdatedAt,
	}
	for _, ref := range post.Images {
		img := ImageResponse{Key: ref.Key()}
		if url, err := h.blobs.ResolveURL(r.Context(), ref); err == nil {
			img.URL = url
		}
		resp.Images = append(resp.Images, img)
	}
	return resp
}

// ListPosts lists all posts, or one owner's posts with ?owner=<uuid>
func (h *PostsHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	var (
		posts []*simplemarketplace.Post
		err   error
	)

	if ownerStr := r.URL.Query().Get("owner"); ownerStr != "" {
		ownerID, parseErr := uuid.Parse(ownerStr)
		if parseErr != nil {
			http.Error(w, "Invalid owner ID", http.StatusBadRequest)
			return
		}
		posts, err = h.posts.ListPostsByOwner(r.Context(), ownerID)
	} else {
		posts, err = h.posts.ListPosts(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]PostResponse, 0, len(posts))
	for _, post := range posts {
		resp = append(resp, h.postResponse(r, post))
	}
	render.JSON(w, r, resp)
}

// GetPost retrieves a post by ID
func (h *PostsHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	post, err := h.posts.GetPost(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	render.JSON(w, r, h.postResponse(r, post))
}

// CreatePost publishes a post from a multipart form: text fields plus any
// number of files under "images", uploaded in form order
func (h *PostsHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	caller := IdentityFromRequest(r)
	if caller == nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	images, err := filesFromForm(r, "images")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	req := simplemarketplace.CreatePostRequest{
		Fields: fieldsFromForm(r),
		Images: images,
	}

	post, err := h.posts.CreatePost(r.Context(), caller, req)
	if err != nil {
		writeError(w, err)
		return
	}

	slog.Info("Post created", "post_id", post.ID.String(), "images", len(post.Images))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, h.postResponse(r, post))
}

// UpdatePost edits a post from a multipart form. "retained" values name the
// image keys to keep; files under "images" are appended after them.
func (h *PostsHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	caller := IdentityFromRequest(r)
	if caller == nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var retained []simplemarketplace.BlobRef
	for _, key := range r.Form["retained"] {
		ref, err := simplemarketplace.ParseBlobRef(key)
		if err != nil {
			http.Error(w, "Invalid retained image key", http.StatusBadRequest)
			return
		}
		retained = append(retained, ref)
	}

	newImages, err := filesFromForm(r, "images")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	req := simplemarketplace.UpdatePostRequest{
		ID:             id,
		Fields:         fieldsFromForm(r),
		RetainedImages: retained,
		NewImages:      newImages,
	}

	post, err := h.posts.UpdatePost(r.Context(), caller, req)
	if err != nil {
		writeError(w, err)
		return
	}

	render.JSON(w, r, h.postResponse(r, post))
}

// DeletePost deletes a post by ID. The post's image blobs are left in place.
func (h *PostsHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	caller := IdentityFromRequest(r)
	if caller == nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	if err := h.posts.DeletePost(r.Context(), caller, id); err != nil {
		writeError(w, err)
		return
	}

	slog.Info("Post deleted", "post_id", id.String())
	w.WriteHeader(http.StatusNoContent)
}

// DeleteImage removes one image, named by ?key=, from a post
func (h *PostsHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	caller := IdentityFromRequest(r)
	if caller == nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	ref, err := simplemarketplace.ParseBlobRef(r.URL.Query().Get("key"))
	if err != nil {
		http.Error(w, "Invalid image key", http.StatusBadRequest)
		return
	}

	if err := h.posts.DeleteImage(r.Context(), caller, id, ref); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// fieldsFromForm collects the post field set from multipart form values.
func fieldsFromForm(r *http.Request) simplemarketplace.PostFields {
	return simplemarketplace.PostFields{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Price:       r.FormValue("price"),
		Location:    r.FormValue("location"),
		Tags:        r.Form["tags"],
	}
}

// filesFromForm adapts the multipart file headers under field into upload
// files, preserving form order. A part that cannot be opened fails the whole
// form; dropping it would publish the post with fewer images than submitted.
func filesFromForm(r *http.Request, field string) ([]simplemarketplace.UploadFile, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}

	headers := r.MultipartForm.File[field]
	files := make([]simplemarketplace.UploadFile, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open uploaded file %q: %w", header.Filename, err)
		}
		files = append(files, simplemarketplace.UploadFile{
			Name:   header.Filename,
			Reader: f,
		})
	}
	return files, nil
}
