package repofake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-auth-session/storage"
)

var _ storage.Repo = (*FakeRepo)(nil)

// FakeRepo is an in-memory Repo. It backs the "memory" storage backend and tests.
type FakeRepo struct {
	entries map[string]string
	lock    sync.RWMutex
}

func NewFakeRepo() *FakeRepo {
	return &FakeRepo{
		entries: make(map[string]string),
	}
}

func (r *FakeRepo) Get(_ context.Context, key string) (string, bool, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	v, ok := r.entries[key]
	return v, ok, nil
}

func (r *FakeRepo) Set(_ context.Context, key, value string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.entries[key] = value
	return nil
}

func (r *FakeRepo) Remove(_ context.Context, key string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.entries, key)
	return nil
}

// Len returns the number of stored keys
func (r *FakeRepo) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.entries)
}
