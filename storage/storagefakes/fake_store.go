package storagefakes

import (
	"context"
	"sync"

	"github.com/iblai/go-mentor-session/storage"
)

var _ storage.Store = (*FakeStore)(nil)

// FakeStore is an in-memory storage.Store for tests and the diagnostic CLI.
type FakeStore struct {
	values map[string]string
	lock   sync.RWMutex
}

func NewFakeStore() *FakeStore {
	return &FakeStore{values: make(map[string]string)}
}

func (f *FakeStore) Get(_ context.Context, key string) (string, bool, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *FakeStore) Set(_ context.Context, key, value string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.values[key] = value
	return nil
}

func (f *FakeStore) Remove(_ context.Context, key string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	delete(f.values, key)
	return nil
}

func (f *FakeStore) Clear(_ context.Context) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.values = make(map[string]string)
	return nil
}

// Len returns the number of stored keys.
func (f *FakeStore) Len() int {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return len(f.values)
}
