package simplemarketplace

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// AuthBridge translates provider auth operations into session and document
// transitions. The provider, the user collection and the session mirror are
// three independent systems; the bridge sequences them and classifies
// provider failures as ErrUpstreamFailure (the provider preserves no
// structured error code across this boundary).
type AuthBridge struct {
	provider AuthProvider
	repo     Repository
	guard    *UniquenessGuard
	blobs    *BlobCoordinator

	sessions *SessionCache
	logger   *slog.Logger
}

// AuthOption represents a functional option for configuring the auth bridge
type AuthOption func(*AuthBridge)

// WithSessionCache makes the bridge mirror successful sign-in/sign-up and
// profile updates into the given session cache.
func WithSessionCache(sessions *SessionCache) AuthOption {
	return func(b *AuthBridge) {
		b.sessions = sessions
	}
}

// WithAuthLogger sets the logger for non-fatal bookkeeping failures.
func WithAuthLogger(logger *slog.Logger) AuthOption {
	return func(b *AuthBridge) {
		b.logger = logger
	}
}

// NewAuthBridge creates an auth bridge over the provider, repository and
// blob coordinator.
func NewAuthBridge(provider AuthProvider, repo Repository, blobs *BlobCoordinator, options ...AuthOption) *AuthBridge {
	b := &AuthBridge{
		provider: provider,
		repo:     repo,
		guard:    NewUniquenessGuard(repo),
		blobs:    blobs,
		logger:   slog.Default(),
	}
	for _, option := range options {
		option(b)
	}
	return b
}

// SignUp creates an account: availability pre-checks, provider sign-up,
// display-name patch, verification email, then the user document. The
// pre-checks race with concurrent sign-ups; the document write is the
// backstop and surfaces ErrAlreadyExists when it loses.
func (b *AuthBridge) SignUp(ctx context.Context, req SignUpRequest) (*Identity, error) {
	if req.Email == "" {
		return nil, &ValidationError{Field: "email", Message: "required"}
	}
	if req.Password == "" {
		return nil, &ValidationError{Field: "password", Message: "required"}
	}
	if req.DisplayName == "" {
		return nil, &ValidationError{Field: "display name", Message: "required"}
	}

	available, err := b.guard.CheckEmailAvailable(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, &AuthError{Op: "sign up", Err: ErrAlreadyExists}
	}
	available, err = b.guard.CheckUsernameAvailable(ctx, req.DisplayName)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, &AuthError{Op: "sign up", Err: ErrAlreadyExists}
	}

	identity, err := b.provider.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		return nil, upstream("sign up", err)
	}

	identity, err = b.provider.UpdateIdentity(ctx, identity.UserID, IdentityPatch{DisplayName: &req.DisplayName})
	if err != nil {
		return nil, upstream("sign up", err)
	}

	if err := b.provider.SendVerificationEmail(ctx, identity.UserID); err != nil {
		return nil, upstream("sign up", err)
	}

	if err := b.remember(ctx, *identity); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &User{
		ID:          identity.UserID,
		Email:       identity.Email,
		DisplayName: req.DisplayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := b.repo.CreateUser(ctx, user); err != nil {
		return nil, &AuthError{Op: "sign up", Err: err}
	}

	return identity, nil
}

// SignIn authenticates against the provider, merges the document-side
// profile picture into the identity, and mirrors the session.
func (b *AuthBridge) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	if email == "" {
		return nil, &ValidationError{Field: "email", Message: "required"}
	}
	if password == "" {
		return nil, &ValidationError{Field: "password", Message: "required"}
	}

	identity, err := b.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, upstream("sign in", err)
	}

	// The provider does not track the profile picture; the user document does.
	if user, err := b.repo.GetUser(ctx, identity.UserID); err == nil {
		identity.ProfilePicture = user.ProfilePicture
	}

	if err := b.remember(ctx, *identity); err != nil {
		return nil, err
	}
	return identity, nil
}

// SignOut ends the provider session and clears the session mirror.
func (b *AuthBridge) SignOut(ctx context.Context, caller *Identity) error {
	if caller == nil {
		return ErrAuthenticationRequired
	}
	if err := b.provider.SignOut(ctx, caller.UserID); err != nil {
		return upstream("sign out", err)
	}
	if b.sessions != nil {
		if err := b.sessions.Clear(ctx); err != nil {
			return err
		}
	}
	return nil
}

// SendPasswordReset asks the provider to mail a reset link.
func (b *AuthBridge) SendPasswordReset(ctx context.Context, email string) error {
	if email == "" {
		return &ValidationError{Field: "email", Message: "required"}
	}
	if err := b.provider.SendPasswordReset(ctx, email); err != nil {
		return upstream("password reset", err)
	}
	return nil
}

// UpdateProfile applies the non-empty fields of req as conditional provider
// patches, updates the user document, and refreshes the session mirror with
// the resulting identity.
func (b *AuthBridge) UpdateProfile(ctx context.Context, caller *Identity, req UpdateProfileRequest) (*Identity, error) {
	if caller == nil {
		return nil, ErrAuthenticationRequired
	}

	patch := IdentityPatch{}
	if req.DisplayName != "" && req.DisplayName != caller.DisplayName {
		patch.DisplayName = &req.DisplayName
	}
	if req.Email != "" && req.Email != caller.Email {
		patch.Email = &req.Email
	}
	if req.Password != "" {
		patch.Password = &req.Password
	}

	identity := caller
	if patch.DisplayName != nil || patch.Email != nil || patch.Password != nil {
		updated, err := b.provider.UpdateIdentity(ctx, caller.UserID, patch)
		if err != nil {
			return nil, upstream("update profile", err)
		}
		identity = updated
	}

	user, err := b.repo.GetUser(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	user.Email = identity.Email
	user.DisplayName = identity.DisplayName
	user.UpdatedAt = time.Now().UTC()
	if err := b.repo.UpdateUser(ctx, user); err != nil {
		return nil, &AuthError{Op: "update profile", Err: err}
	}
	identity.ProfilePicture = user.ProfilePicture

	if err := b.remember(ctx, *identity); err != nil {
		return nil, err
	}
	return identity, nil
}

// UpdateProfilePicture uploads the file under the profiles namespace and
// points the user document and session mirror at the new ref. The previous
// picture's blob is not deleted; same-name uploads overwrite it in place.
func (b *AuthBridge) UpdateProfilePicture(ctx context.Context, caller *Identity, file UploadFile) (*Identity, error) {
	if caller == nil {
		return nil, ErrAuthenticationRequired
	}

	ref, err := b.blobs.Upload(ctx, NamespaceProfiles, caller.UserID, file)
	if err != nil {
		return nil, err
	}

	user, err := b.repo.GetUser(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	user.ProfilePicture = &ref
	user.UpdatedAt = time.Now().UTC()
	if err := b.repo.UpdateUser(ctx, user); err != nil {
		return nil, &AuthError{Op: "update profile picture", Err: err}
	}

	identity := *caller
	identity.ProfilePicture = &ref
	if err := b.remember(ctx, identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

func (b *AuthBridge) remember(ctx context.Context, identity Identity) error {
	if b.sessions == nil {
		return nil
	}
	return b.sessions.Set(ctx, identity)
}

// upstream flattens a provider failure into the undifferentiated
// ErrUpstreamFailure kind; the original cause survives only in the message.
func upstream(op string, err error) error {
	return &AuthError{Op: op, Err: fmt.Errorf("%w: %v", ErrUpstreamFailure, err)}
}
