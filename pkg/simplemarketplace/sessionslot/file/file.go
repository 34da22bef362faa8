package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tendant/simple-marketplace/pkg/simplemarketplace"
)

// Slot is a file-backed implementation of the simplemarketplace.SessionSlot
// interface. The value survives process restarts; a write replaces the file
// atomically via rename. Expiry is checked lazily on read.
type Slot struct {
	mu   sync.Mutex
	path string
}

type envelope struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// New creates a session slot persisted at path. The parent directory is
// created if missing.
func New(path string) (*Slot, error) {
	if path == "" {
		return nil, errors.New("slot path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create slot directory: %w", err)
	}
	return &Slot{path: path}, nil
}

func (s *Slot) Read(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", simplemarketplace.ErrSlotEmpty
	} else if err != nil {
		return "", fmt.Errorf("failed to read slot: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		// An unreadable envelope cannot be repaired; drop the file so the
		// corruption does not linger until the next write.
		if rmErr := os.Remove(s.path); rmErr != nil && !os.IsNotExist(rmErr) {
			return "", fmt.Errorf("failed to clear corrupt slot: %w", rmErr)
		}
		return "", simplemarketplace.ErrSlotEmpty
	}
	if !time.Now().Before(env.ExpiresAt) {
		return "", simplemarketplace.ErrSlotEmpty
	}
	return env.Value, nil
}

func (s *Slot) Write(ctx context.Context, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ttl <= 0 {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to clear slot: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(envelope{
		Value:     value,
		ExpiresAt: time.Now().Add(ttl),
	})
	if err != nil {
		return fmt.Errorf("failed to encode slot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write slot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace slot: %w", err)
	}
	return nil
}
