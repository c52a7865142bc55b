// Copyright (c) 2026 Caseline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     Session
	expiresAt time.Time
}

// MemoryStore is an in-process Store. It is not shared between replicas.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore returns an empty in-memory session store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns a copy of the stored session, or nil if absent or expired.
func (store *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	store.mu.RLock()
	entry, ok := store.entries[id]
	store.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.After(store.now()) {
		store.mu.Lock()
		if current, ok := store.entries[id]; ok && !current.expiresAt.After(store.now()) {
			delete(store.entries, id)
		}
		store.mu.Unlock()
		return nil, nil
	}

	value := entry.value
	if entry.value.User != nil {
		user := *entry.value.User
		value.User = &user
	}
	return &value, nil
}

// Save stores a copy of value under id.
func (store *MemoryStore) Save(ctx context.Context, id string, value *Session) error {
	if err := value.Check(); err != nil {
		return err
	}

	stored := *value
	if value.User != nil {
		user := *value.User
		stored.User = &user
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	store.entries[id] = memoryEntry{value: stored, expiresAt: store.now().Add(store.ttl)}
	return nil
}

// Destroy removes id from the store.
func (store *MemoryStore) Destroy(ctx context.Context, id string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	delete(store.entries, id)
	return nil
}
