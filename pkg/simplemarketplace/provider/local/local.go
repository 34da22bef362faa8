package local

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/simple-marketplace/pkg/simplemarketplace"
	"golang.org/x/crypto/bcrypt"
)

// Provider errors. AuthBridge flattens these into ErrUpstreamFailure at its
// boundary; they exist for tests and direct callers.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotFound    = errors.New("account not found")
	ErrEmailTaken         = errors.New("email already registered")
)

type account struct {
	id           uuid.UUID
	email        string
	displayName  string
	passwordHash []byte
	verified     bool
	signedIn     bool
}

// Provider is an in-process implementation of the
// simplemarketplace.AuthProvider interface backed by bcrypt password hashes.
// Verification and reset emails are logged instead of sent; deployments with
// a real identity provider supply their own AuthProvider.
type Provider struct {
	mu              sync.Mutex
	accountsByID    map[uuid.UUID]*account
	accountsByEmail map[string]uuid.UUID
	logger          *slog.Logger
}

// New creates a new local auth provider
func New(logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		accountsByID:    make(map[uuid.UUID]*account),
		accountsByEmail: make(map[string]uuid.UUID),
		logger:          logger,
	}
}

func (p *Provider) SignUp(ctx context.Context, email, password string) (*simplemarketplace.Identity, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, taken := p.accountsByEmail[email]; taken {
		return nil, ErrEmailTaken
	}

	acct := &account{
		id:           uuid.New(),
		email:        email,
		passwordHash: hash,
		signedIn:     true,
	}
	p.accountsByID[acct.id] = acct
	p.accountsByEmail[email] = acct.id

	return identityOf(acct), nil
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (*simplemarketplace.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, exists := p.accountsByEmail[email]
	if !exists {
		return nil, ErrInvalidCredentials
	}
	acct := p.accountsByID[id]

	if err := bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	acct.signedIn = true

	return identityOf(acct), nil
}

func (p *Provider) UpdateIdentity(ctx context.Context, userID uuid.UUID, patch simplemarketplace.IdentityPatch) (*simplemarketplace.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	acct, exists := p.accountsByID[userID]
	if !exists {
		return nil, ErrAccountNotFound
	}

	if patch.Email != nil && *patch.Email != acct.email {
		if _, taken := p.accountsByEmail[*patch.Email]; taken {
			return nil, ErrEmailTaken
		}
		delete(p.accountsByEmail, acct.email)
		acct.email = *patch.Email
		p.accountsByEmail[acct.email] = acct.id
	}
	if patch.DisplayName != nil {
		acct.displayName = *patch.DisplayName
	}
	if patch.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*patch.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		acct.passwordHash = hash
	}

	return identityOf(acct), nil
}

func (p *Provider) SendVerificationEmail(ctx context.Context, userID uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	acct, exists := p.accountsByID[userID]
	if !exists {
		return ErrAccountNotFound
	}
	acct.verified = true
	p.logger.Info("verification email sent", "email", acct.email)
	return nil
}

func (p *Provider) SendPasswordReset(ctx context.Context, email string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.accountsByEmail[email]; !exists {
		return ErrAccountNotFound
	}
	p.logger.Info("password reset email sent", "email", email)
	return nil
}

func (p *Provider) SignOut(ctx context.Context, userID uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	acct, exists := p.accountsByID[userID]
	if !exists {
		return ErrAccountNotFound
	}
	acct.signedIn = false
	return nil
}

func identityOf(acct *account) *simplemarketplace.Identity {
	return &simplemarketplace.Identity{
		UserID:      acct.id,
		Email:       acct.email,
		DisplayName: acct.displayName,
	}
}
