package simplemarketplace

import (
	"context"
	"errors"
	"fmt"
)

// UniquenessGuard answers pre-insert availability checks against the user
// collection.
//
// The checks carry no transactional guarantee: two concurrent sign-ups for
// the same email can both observe "available" before either write lands.
// That window is closed at the storage layer — Repository.CreateUser rejects
// duplicates with ErrAlreadyExists — not here. Residual risk: a caller that
// ignores the CreateUser error after a passing check can still race.
type UniquenessGuard struct {
	repo Repository
}

// NewUniquenessGuard creates a guard over the given repository.
func NewUniquenessGuard(repo Repository) *UniquenessGuard {
	return &UniquenessGuard{repo: repo}
}

// CheckEmailAvailable reports whether no user currently holds email.
// Exact-match lookup; no normalization is applied.
func (g *UniquenessGuard) CheckEmailAvailable(ctx context.Context, email string) (bool, error) {
	if email == "" {
		return false, &ValidationError{Field: "email", Message: "required"}
	}
	_, err := g.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return true, nil
		}
		return false, fmt.Errorf("email availability check: %w", err)
	}
	return false, nil
}

// CheckUsernameAvailable reports whether no user currently holds the display
// name.
func (g *UniquenessGuard) CheckUsernameAvailable(ctx context.Context, displayName string) (bool, error) {
	if displayName == "" {
		return false, &ValidationError{Field: "display name", Message: "required"}
	}
	_, err := g.repo.GetUserByDisplayName(ctx, displayName)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return true, nil
		}
		return false, fmt.Errorf("username availability check: %w", err)
	}
	return false, nil
}
