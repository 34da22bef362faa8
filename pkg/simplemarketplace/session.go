package simplemarketplace

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionTTL is the fixed lifetime of the persisted session projection.
const SessionTTL = 7 * 24 * time.Hour

// sessionProjection is the wire form of the persisted identity: the minimal
// projection written to the session slot. Field names are the cookie payload
// keys of the original client.
type sessionProjection struct {
	UID            uuid.UUID `json:"uid"`
	Email          string    `json:"email"`
	DisplayName    string    `json:"displayName"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
}

// SessionCache is the client-local mirror of the current identity: an
// in-memory copy plus a persisted projection in a SessionSlot surviving
// process restarts. It is constructed at a composition root and injected
// into the operations that need it; there is no process-wide instance.
type SessionCache struct {
	mu       sync.RWMutex
	identity *Identity

	slot   SessionSlot
	logger *slog.Logger
}

// NewSessionCache creates an empty cache over the given slot.
func NewSessionCache(slot SessionSlot, logger *slog.Logger) *SessionCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionCache{slot: slot, logger: logger}
}

// Get returns a copy of the current identity, or nil when no session is
// active. Pure read; no I/O.
func (c *SessionCache) Get() *Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.identity == nil {
		return nil
	}
	identity := *c.identity
	return &identity
}

// Set replaces the in-memory identity and synchronously writes the minimal
// projection to the slot with the 7-day max age, overwriting any prior value.
func (c *SessionCache) Set(ctx context.Context, identity Identity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.identity = &identity

	payload, err := json.Marshal(projectionOf(identity))
	if err != nil {
		return err
	}
	if err := c.slot.Write(ctx, string(payload), SessionTTL); err != nil {
		return &AuthError{Op: "persist session", Err: err}
	}
	return nil
}

// Clear empties memory and writes an immediately-expired value to the slot.
func (c *SessionCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.identity = nil
	if err := c.slot.Write(ctx, "", 0); err != nil {
		return &AuthError{Op: "clear session", Err: err}
	}
	return nil
}

// Hydrate reconstructs the in-memory identity from the slot at process
// start. Idempotent: when memory already holds an identity it is a no-op.
// Fails soft: slot and parse failures are logged, a corrupted slot is
// cleared, and memory is left empty; nothing is raised past the caller.
func (c *SessionCache) Hydrate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.identity != nil {
		return
	}

	payload, err := c.slot.Read(ctx)
	if err != nil {
		if !errors.Is(err, ErrSlotEmpty) {
			c.logger.Debug("session slot read failed", "error", err)
		}
		return
	}

	var proj sessionProjection
	if err := json.Unmarshal([]byte(payload), &proj); err != nil || proj.UID == uuid.Nil {
		c.logger.Warn("clearing corrupted session slot", "error", err)
		if clearErr := c.slot.Write(ctx, "", 0); clearErr != nil {
			c.logger.Warn("failed to clear corrupted session slot", "error", clearErr)
		}
		return
	}

	c.identity = identityOf(proj)
}

func projectionOf(identity Identity) sessionProjection {
	proj := sessionProjection{
		UID:         identity.UserID,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
	}
	if identity.ProfilePicture != nil {
		proj.ProfilePicture = identity.ProfilePicture.Key()
	}
	return proj
}

func identityOf(proj sessionProjection) *Identity {
	identity := &Identity{
		UserID:      proj.UID,
		Email:       proj.Email,
		DisplayName: proj.DisplayName,
	}
	if proj.ProfilePicture != "" {
		if ref, err := ParseBlobRef(proj.ProfilePicture); err == nil {
			identity.ProfilePicture = &ref
		}
	}
	return identity
}
