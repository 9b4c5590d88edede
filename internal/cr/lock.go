package cr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// keyedMutex serializes holders of the same key within one process.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// Lock acquires exclusive access to the record id for a read-modify-write.
// It holds an in-process mutex and an advisory file lock on
// .locks/<id>.lock, so cooperating processes are serialized as well.
// The returned func releases both.
func (s *Store) Lock(ctx context.Context, id string) (func(), error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	release := s.locks.lock(id)

	dir := filepath.Join(s.dir, ".locks")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		release()
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, id+".lock"), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		release()
		return nil, fmt.Errorf("opening lock file: %w", err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		release()
		return nil, fmt.Errorf("locking %s: %w", id, err)
	}
	return func() {
		_ = unlockFile(f)
		f.Close()
		release()
	}, nil
}
