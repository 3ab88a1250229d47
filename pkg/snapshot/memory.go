package snapshot

import (
	"context"
	"slices"
	"strconv"
	"sync"
)

// MemoryBackend keeps snapshots in process memory and assigns sequential ids
// starting at 1. Intended for tests and local development.
type MemoryBackend struct {
	mu        sync.RWMutex
	seq       int64
	snapshots map[string]Snapshot
	useGiven  bool
}

// MemoryOption configures a MemoryBackend.
type MemoryOption func(*MemoryBackend)

// WithGivenIDs keeps the ids generated by the Store instead of counting.
func WithGivenIDs() MemoryOption {
	return func(b *MemoryBackend) {
		b.useGiven = true
	}
}

func NewMemoryBackend(opts ...MemoryOption) *MemoryBackend {
	b := &MemoryBackend{
		snapshots: make(map[string]Snapshot),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *MemoryBackend) Append(_ context.Context, s Snapshot) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.useGiven || s.ID == "" {
		b.seq++
		s.ID = strconv.FormatInt(b.seq, 10)
	}
	// Copy the payload so later changes by the caller cannot alter history.
	s.Payload = slices.Clone(s.Payload)
	b.snapshots[s.ID] = s
	return s.ID, nil
}

func (b *MemoryBackend) Get(_ context.Context, id string) (Snapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s, ok := b.snapshots[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	s.Payload = slices.Clone(s.Payload)
	return s, nil
}

// Len returns the number of stored snapshots.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.snapshots)
}
