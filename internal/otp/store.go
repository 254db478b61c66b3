// Package otp issues and verifies the one-time codes that gate public
// phone-number flows.
package otp

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when no code is stored for a phone number, either
// because none was issued or because it expired.
var ErrNotFound = errors.New("OTP expired or not found")

// Store persists one code per phone number with a TTL.
type Store interface {
	Set(ctx context.Context, phone, code string, ttl time.Duration) error
	// Get returns the stored code, or ErrNotFound.
	Get(ctx context.Context, phone string) (string, error)
	Delete(ctx context.Context, phone string) error
}

// MemoryStore keeps codes in process memory. Suitable for tests and
// single-instance deployments only; use the Redis store otherwise.
type MemoryStore struct {
	mu    sync.Mutex
	codes map[string]memoryEntry
	now   func() time.Time
}

type memoryEntry struct {
	code    string
	expires time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{codes: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Set(_ context.Context, phone, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[phone] = memoryEntry{code: code, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, phone string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.codes[phone]
	if !ok {
		return "", ErrNotFound
	}
	if s.now().After(entry.expires) {
		delete(s.codes, phone)
		return "", ErrNotFound
	}
	return entry.code, nil
}

func (s *MemoryStore) Delete(_ context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, phone)
	return nil
}
