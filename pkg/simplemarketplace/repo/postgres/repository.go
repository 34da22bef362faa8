package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-marketplace/pkg/simplemarketplace"
)

// DBTX is an interface that allows us to use either a connection pool or a
// transaction.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements simplemarketplace.Repository using PostgreSQL.
// Unique constraints on users.email and users.display_name close the
// availability-check race at the storage layer.
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) simplemarketplace.Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) simplemarketplace.Repository {
	return &Repository{db: pool}
}

// classify maps driver errors onto the package error taxonomy.
func classify(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return simplemarketplace.ErrAlreadyExists
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

// User operations

func (r *Repository) CreateUser(ctx context.Context, user *simplemarketplace.User) error {
	query := `
		INSERT INTO users (id, email, display_name, profile_picture, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		user.ID, user.Email, user.DisplayName, refKey(user.ProfilePicture),
		user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return classify("create user", err)
	}

	return nil
}

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*simplemarketplace.User, error) {
	query := `
		SELECT id, email, display_name, profile_picture, created_at, updated_at
		FROM users WHERE id = $1`

	return r.scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*simplemarketplace.User, error) {
	query := `
		SELECT id, email, display_name, profile_picture, created_at, updated_at
		FROM users WHERE email = $1`

	return r.scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *Repository) GetUserByDisplayName(ctx context.Context, displayName string) (*simplemarketplace.User, error) {
	query := `
		SELECT id, email, display_name, profile_picture, created_at, updated_at
		FROM users WHERE display_name = $1`

	return r.scanUser(r.db.QueryRow(ctx, query, displayName))
}

func (r *Repository) UpdateUser(ctx context.Context, user *simplemarketplace.User) error {
	query := `
		UPDATE users SET
			email = $2, display_name = $3, profile_picture = $4, updated_at = $5
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		user.ID, user.Email, user.DisplayName, refKey(user.ProfilePicture), user.UpdatedAt)
	if err != nil {
		return classify("update user", err)
	}
	if tag.RowsAffected() == 0 {
		return simplemarketplace.ErrUserNotFound
	}

	return nil
}

func (r *Repository) scanUser(row pgx.Row) (*simplemarketplace.User, error) {
	var user simplemarketplace.User
	var pictureKey *string

	err := row.Scan(&user.ID, &user.Email, &user.DisplayName, &pictureKey,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplemarketplace.ErrUserNotFound
		}
		return nil, err
	}

	if pictureKey != nil {
		ref, err := simplemarketplace.ParseBlobRef(*pictureKey)
		if err != nil {
			return nil, fmt.Errorf("stored profile picture key: %w", err)
		}
		user.ProfilePicture = &ref
	}

	return &user, nil
}

// Post operations

func (r *Repository) CreatePost(ctx context.Context, post *simplemarketplace.Post) error {
	query := `
		INSERT INTO posts (
			id, owner_id, title, description, price, location, tags, images,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(ctx, query,
		post.ID, post.OwnerID, post.Title, post.Description, post.Price,
		post.Location, post.Tags, imageKeys(post.Images),
		post.CreatedAt, post.UpdatedAt)
	if err != nil {
		return classify("create post", err)
	}

	return nil
}

func (r *Repository) GetPost(ctx context.Context, id uuid.UUID) (*simplemarketplace.Post, error) {
	query := `
		SELECT id, owner_id, title, description, price, location, tags, images,
		       created_at, updated_at
		FROM posts WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	post, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplemarketplace.ErrPostNotFound
		}
		return nil, err
	}

	return post, nil
}

func (r *Repository) UpdatePost(ctx context.Context, post *simplemarketplace.Post) error {
	query := `
		UPDATE posts SET
			title = $2, description = $3, price = $4, location = $5,
			tags = $6, images = $7, updated_at = $8
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		post.ID, post.Title, post.Description, post.Price, post.Location,
		post.Tags, imageKeys(post.Images), post.UpdatedAt)
	if err != nil {
		return classify("update post", err)
	}
	if tag.RowsAffected() == 0 {
		return simplemarketplace.ErrPostNotFound
	}

	return nil
}

func (r *Repository) DeletePost(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return classify("delete post", err)
	}
	if tag.RowsAffected() == 0 {
		return simplemarketplace.ErrPostNotFound
	}

	return nil
}

func (r *Repository) ListPosts(ctx context.Context) ([]*simplemarketplace.Post, error) {
	query := `
		SELECT id, owner_id, title, description, price, location, tags, images,
		       created_at, updated_at
		FROM posts ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPosts(rows)
}

func (r *Repository) ListPostsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*simplemarketplace.Post, error) {
	query := `
		SELECT id, owner_id, title, description, price, location, tags, images,
		       created_at, updated_at
		FROM posts WHERE owner_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPosts(rows)
}

func collectPosts(rows pgx.Rows) ([]*simplemarketplace.Post, error) {
	var posts []*simplemarketplace.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return posts, nil
}

func scanPost(row pgx.Row) (*simplemarketplace.Post, error) {
	var post simplemarketplace.Post
	var keys []string

	err := row.Scan(&post.ID, &post.OwnerID, &post.Title, &post.Description,
		&post.Price, &post.Location, &post.Tags, &keys,
		&post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(keys) > 0 {
		post.Images = make([]simplemarketplace.BlobRef, 0, len(keys))
		for _, key := range keys {
			ref, err := simplemarketplace.ParseBlobRef(key)
			if err != nil {
				return nil, fmt.Errorf("stored image key: %w", err)
			}
			post.Images = append(post.Images, ref)
		}
	}

	return &post, nil
}

// refKey flattens an optional blob ref to its nullable storage key.
func refKey(ref *simplemarketplace.BlobRef) *string {
	if ref == nil {
		return nil
	}
	key := ref.Key()
	return &key
}

// imageKeys flattens the ordered image refs to a text array; element order in
// the column is the display order.
func imageKeys(refs []simplemarketplace.BlobRef) []string {
	keys := make([]string, len(refs))
	for i, ref := range refs {
		keys[i] = ref.Key()
	}
	return keys
}
