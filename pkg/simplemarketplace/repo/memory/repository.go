package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/simple-marketplace/pkg/simplemarketplace"
)

// Repository implements simplemarketplace.Repository using in-memory storage.
// Uniqueness of email and display name is enforced on insert, mirroring the
// unique constraints of the postgres implementation.
type Repository struct {
	mu                 sync.RWMutex
	users              map[uuid.UUID]*simplemarketplace.User
	usersByEmail       map[string]uuid.UUID
	usersByDisplayName map[string]uuid.UUID
	posts              map[uuid.UUID]*simplemarketplace.Post
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		users:              make(map[uuid.UUID]*simplemarketplace.User),
		usersByEmail:       make(map[string]uuid.UUID),
		usersByDisplayName: make(map[string]uuid.UUID),
		posts:              make(map[uuid.UUID]*simplemarketplace.Post),
	}
}

// User operations

func (r *Repository) CreateUser(ctx context.Context, user *simplemarketplace.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.usersByEmail[user.Email]; exists {
		return simplemarketplace.ErrAlreadyExists
	}
	if _, exists := r.usersByDisplayName[user.DisplayName]; exists {
		return simplemarketplace.ErrAlreadyExists
	}

	// Store a copy to avoid external modifications
	userCopy := *user
	r.users[user.ID] = &userCopy
	r.usersByEmail[user.Email] = user.ID
	r.usersByDisplayName[user.DisplayName] = user.ID

	return nil
}

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*simplemarketplace.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, simplemarketplace.ErrUserNotFound
	}
	userCopy := *user
	return &userCopy, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*simplemarketplace.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.usersByEmail[email]
	if !exists {
		return nil, simplemarketplace.ErrUserNotFound
	}
	userCopy := *r.users[id]
	return &userCopy, nil
}

func (r *Repository) GetUserByDisplayName(ctx context.Context, displayName string) (*simplemarketplace.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.usersByDisplayName[displayName]
	if !exists {
		return nil, simplemarketplace.ErrUserNotFound
	}
	userCopy := *r.users[id]
	return &userCopy, nil
}

func (r *Repository) UpdateUser(ctx context.Context, user *simplemarketplace.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prior, exists := r.users[user.ID]
	if !exists {
		return simplemarketplace.ErrUserNotFound
	}

	if id, taken := r.usersByEmail[user.Email]; taken && id != user.ID {
		return simplemarketplace.ErrAlreadyExists
	}
	if id, taken := r.usersByDisplayName[user.DisplayName]; taken && id != user.ID {
		return simplemarketplace.ErrAlreadyExists
	}

	delete(r.usersByEmail, prior.Email)
	delete(r.usersByDisplayName, prior.DisplayName)

	userCopy := *user
	r.users[user.ID] = &userCopy
	r.usersByEmail[user.Email] = user.ID
	r.usersByDisplayName[user.DisplayName] = user.ID

	return nil
}

// Post operations

func (r *Repository) CreatePost(ctx context.Context, post *simplemarketplace.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	postCopy := clonePost(post)
	r.posts[post.ID] = postCopy

	return nil
}

func (r *Repository) GetPost(ctx context.Context, id uuid.UUID) (*simplemarketplace.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	post, exists := r.posts[id]
	if !exists {
		return nil, simplemarketplace.ErrPostNotFound
	}
	return clonePost(post), nil
}

func (r *Repository) UpdatePost(ctx context.Context, post *simplemarketplace.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.posts[post.ID]; !exists {
		return simplemarketplace.ErrPostNotFound
	}
	r.posts[post.ID] = clonePost(post)

	return nil
}

func (r *Repository) DeletePost(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.posts[id]; !exists {
		return simplemarketplace.ErrPostNotFound
	}
	delete(r.posts, id)

	return nil
}

func (r *Repository) ListPosts(ctx context.Context) ([]*simplemarketplace.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*simplemarketplace.Post, 0, len(r.posts))
	for _, post := range r.posts {
		result = append(result, clonePost(post))
	}

	// Sort by created_at descending
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

func (r *Repository) ListPostsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*simplemarketplace.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*simplemarketplace.Post
	for _, post := range r.posts {
		if post.OwnerID == ownerID {
			result = append(result, clonePost(post))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

// clonePost deep-copies a post so callers cannot mutate stored state through
// the shared tag and image slices.
func clonePost(post *simplemarketplace.Post) *simplemarketplace.Post {
	postCopy := *post
	if post.Tags != nil {
		postCopy.Tags = append([]string(nil), post.Tags...)
	}
	if post.Images != nil {
		postCopy.Images = append([]simplemarketplace.BlobRef(nil), post.Images...)
	}
	return &postCopy
}
