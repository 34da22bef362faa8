package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-marketplace/pkg/simplemarketplace"
	"github.com/tendant/simple-marketplace/pkg/simplemarketplace/repo/memory"
)

func newUser(email, displayName string) *simplemarketplace.User {
	now := time.Now().UTC()
	return &simplemarketplace.User{
		ID:          uuid.New(),
		Email:       email,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func newPost(ownerID uuid.UUID, title string, createdAt time.Time) *simplemarketplace.Post {
	return &simplemarketplace.Post{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       title,
		Description: "desc",
		Tags:        []string{"Option 1"},
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func TestUserCRUD(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	alice := newUser("alice@example.com", "alice")
	require.NoError(t, repo.CreateUser(ctx, alice))

	got, err := repo.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.Email, got.Email)

	byEmail, err := repo.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byEmail.ID)

	byName, err := repo.GetUserByDisplayName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byName.ID)

	_, err = repo.GetUser(ctx, uuid.New())
	assert.ErrorIs(t, err, simplemarketplace.ErrUserNotFound)
	_, err = repo.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, simplemarketplace.ErrUserNotFound)
}

func TestCreateUserUniqueConstraints(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	require.NoError(t, repo.CreateUser(ctx, newUser("alice@example.com", "alice")))

	err := repo.CreateUser(ctx, newUser("alice@example.com", "alice2"))
	assert.ErrorIs(t, err, simplemarketplace.ErrAlreadyExists)

	err = repo.CreateUser(ctx, newUser("alice2@example.com", "alice"))
	assert.ErrorIs(t, err, simplemarketplace.ErrAlreadyExists)
}

func TestUpdateUserReindexes(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	alice := newUser("alice@example.com", "alice")
	require.NoError(t, repo.CreateUser(ctx, alice))

	alice.Email = "alice@new.example.com"
	alice.DisplayName = "alice-new"
	require.NoError(t, repo.UpdateUser(ctx, alice))

	// Old identifiers are released, new ones resolve.
	_, err := repo.GetUserByEmail(ctx, "alice@example.com")
	assert.ErrorIs(t, err, simplemarketplace.ErrUserNotFound)
	got, err := repo.GetUserByEmail(ctx, "alice@new.example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	require.NoError(t, repo.CreateUser(ctx, newUser("alice@example.com", "alice")))
}

func TestUpdateUserUniqueConstraints(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	alice := newUser("alice@example.com", "alice")
	bob := newUser("bob@example.com", "bob")
	require.NoError(t, repo.CreateUser(ctx, alice))
	require.NoError(t, repo.CreateUser(ctx, bob))

	bob.Email = "alice@example.com"
	assert.ErrorIs(t, repo.UpdateUser(ctx, bob), simplemarketplace.ErrAlreadyExists)

	missing := newUser("x@example.com", "x")
	assert.ErrorIs(t, repo.UpdateUser(ctx, missing), simplemarketplace.ErrUserNotFound)
}

func TestPostCRUD(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	owner := uuid.New()

	post := newPost(owner, "Bike", time.Now().UTC())
	require.NoError(t, repo.CreatePost(ctx, post))

	got, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bike", got.Title)

	got.Title = "Bike (updated)"
	require.NoError(t, repo.UpdatePost(ctx, got))

	updated, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bike (updated)", updated.Title)

	require.NoError(t, repo.DeletePost(ctx, post.ID))
	_, err = repo.GetPost(ctx, post.ID)
	assert.ErrorIs(t, err, simplemarketplace.ErrPostNotFound)
	assert.ErrorIs(t, repo.DeletePost(ctx, post.ID), simplemarketplace.ErrPostNotFound)
	assert.ErrorIs(t, repo.UpdatePost(ctx, post), simplemarketplace.ErrPostNotFound)
}

func TestGetPostReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	owner := uuid.New()

	post := newPost(owner, "Bike", time.Now().UTC())
	require.NoError(t, repo.CreatePost(ctx, post))

	got, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	got.Tags[0] = "mutated"
	got.Title = "mutated"

	again, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bike", again.Title)
	assert.Equal(t, "Option 1", again.Tags[0])
}

func TestListPostsOrdering(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	alice := uuid.New()
	bob := uuid.New()

	base := time.Now().UTC()
	require.NoError(t, repo.CreatePost(ctx, newPost(alice, "oldest", base.Add(-2*time.Hour))))
	require.NoError(t, repo.CreatePost(ctx, newPost(bob, "middle", base.Add(-time.Hour))))
	require.NoError(t, repo.CreatePost(ctx, newPost(alice, "newest", base)))

	posts, err := repo.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, "newest", posts[0].Title)
	assert.Equal(t, "middle", posts[1].Title)
	assert.Equal(t, "oldest", posts[2].Title)

	alicePosts, err := repo.ListPostsByOwner(ctx, alice)
	require.NoError(t, err)
	require.Len(t, alicePosts, 2)
	assert.Equal(t, "newest", alicePosts[0].Title)
	assert.Equal(t, "oldest", alicePosts[1].Title)
}
