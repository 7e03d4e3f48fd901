// Package cache is the CLI's keyed, invalidation-driven cache for summaries.
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// Entry is one cached value.
type Entry struct {
	Key         string
	Data        json.RawMessage
	FetchedAt   time.Time
	Invalidated bool
	// ExpiresAt is when the entry may be garbage collected.
	ExpiresAt time.Time
}

// Fresh reports whether the entry can be served without refetching.
func (e *Entry) Fresh(now time.Time, staleTime time.Duration) bool {
	return e != nil && !e.Invalidated && now.Sub(e.FetchedAt) < staleTime
}

// Store persists entries. Get returns nil for absent or expired keys.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, e Entry) error
	Delete(ctx context.Context, key string) error
	// Invalidate marks every entry whose key starts with prefix as stale.
	Invalidate(ctx context.Context, prefix string) error
	// Sweep drops entries that expired before now and reports how many.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]Entry{}, now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || !s.now().Before(e.ExpiresAt) {
		return nil, nil
	}
	e.Data = append(json.RawMessage(nil), e.Data...)
	return &e, nil
}

func (s *MemoryStore) Set(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.Data = append(json.RawMessage(nil), e.Data...)
	s.entries[e.Key] = e
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Invalidate(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.entries {
		if strings.HasPrefix(k, prefix) {
			e.Invalidated = true
			s.entries[k] = e
		}
	}
	return nil
}

func (s *MemoryStore) Sweep(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, e := range s.entries {
		if !now.Before(e.ExpiresAt) {
			delete(s.entries, k)
			n++
		}
	}
	return n, nil
}

// Clearer is implemented by stores that can drop everything they hold.
type Clearer interface {
	Clear(ctx context.Context) error
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = map[string]Entry{}
	return nil
}
