package memory

import (
	"context"
	"sync"
	"time"

	"github.com/tendant/simple-marketplace/pkg/simplemarketplace"
)

// Slot is an in-memory implementation of the simplemarketplace.SessionSlot
// interface. The value survives only for the process lifetime; expiry is
// checked lazily on read.
type Slot struct {
	mu        sync.RWMutex
	value     string
	expiresAt time.Time
}

// New creates a new in-memory session slot
func New() *Slot {
	return &Slot{}
}

func (s *Slot) Read(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.expiresAt.IsZero() || !time.Now().Before(s.expiresAt) {
		return "", simplemarketplace.ErrSlotEmpty
	}
	return s.value, nil
}

func (s *Slot) Write(ctx context.Context, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ttl <= 0 {
		s.value = ""
		s.expiresAt = time.Time{}
		return nil
	}
	s.value = value
	s.expiresAt = time.Now().Add(ttl)
	return nil
}
