package storage

import (
	"fmt"
	"sync"
)

// MemoryBackend keeps everything in process memory. Used for tests and
// for masters running without persistence.
type MemoryBackend struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{buckets: make(map[string]map[string][]byte)}
}

func (m *MemoryBackend) CreateBucket(name []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.buckets[string(name)]; !ok {
		m.buckets[string(name)] = make(map[string][]byte)
	}
	return nil
}

func (m *MemoryBackend) DeleteBucket(name []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.buckets, string(name))
	return nil
}

func (m *MemoryBackend) BucketExists(name []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.buckets[string(name)]
	return ok, nil
}

func (m *MemoryBackend) Put(bucket, key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bkt, ok := m.buckets[string(bucket)]
	if !ok {
		return fmt.Errorf("bucket not found: %s", bucket)
	}

	// Copy so later caller mutations cannot leak into the store.
	cp := make([]byte, len(value))
	copy(cp, value)
	bkt[string(key)] = cp
	return nil
}

func (m *MemoryBackend) Get(bucket, key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bkt, ok := m.buckets[string(bucket)]
	if !ok {
		return nil, fmt.Errorf("bucket not found: %s", bucket)
	}

	value, ok := bkt[string(key)]
	if !ok {
		return nil, nil
	}

	cp := make([]byte, len(value))
	copy(cp, value)
	return cp, nil
}

func (m *MemoryBackend) Delete(bucket, key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bkt, ok := m.buckets[string(bucket)]
	if !ok {
		return fmt.Errorf("bucket not found: %s", bucket)
	}

	delete(bkt, string(key))
	return nil
}

func (m *MemoryBackend) ForEach(bucket []byte, fn func(k, v []byte) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bkt, ok := m.buckets[string(bucket)]
	if !ok {
		return fmt.Errorf("bucket not found: %s", bucket)
	}

	for k, v := range bkt {
		if err := fn([]byte(k), v); err != nil {
			return err
		}
	}
	return nil
}

// Update runs fn against the backend. The memory backend has no real
// transactions; operations apply immediately.
func (m *MemoryBackend) Update(fn func(tx Transaction) error) error {
	return fn(&memoryTransaction{backend: m})
}

func (m *MemoryBackend) View(fn func(tx Transaction) error) error {
	return fn(&memoryTransaction{backend: m})
}

func (m *MemoryBackend) Close() error { return nil }

type memoryTransaction struct {
	backend *MemoryBackend
}

func (t *memoryTransaction) CreateBucket(name []byte) error {
	return t.backend.CreateBucket(name)
}

func (t *memoryTransaction) DeleteBucket(name []byte) error {
	return t.backend.DeleteBucket(name)
}

func (t *memoryTransaction) Bucket(name []byte) Bucket {
	t.backend.mu.RLock()
	defer t.backend.mu.RUnlock()

	if _, ok := t.backend.buckets[string(name)]; !ok {
		return nil
	}
	return &memoryBucket{backend: t.backend, name: string(name)}
}

func (t *memoryTransaction) ForEachBucket(fn func(name []byte) error) error {
	t.backend.mu.RLock()
	defer t.backend.mu.RUnlock()

	for name := range t.backend.buckets {
		if err := fn([]byte(name)); err != nil {
			return err
		}
	}
	return nil
}

type memoryBucket struct {
	backend *MemoryBackend
	name    string
}

func (b *memoryBucket) Put(key, value []byte) error {
	return b.backend.Put([]byte(b.name), key, value)
}

func (b *memoryBucket) Get(key []byte) []byte {
	value, _ := b.backend.Get([]byte(b.name), key)
	return value
}

func (b *memoryBucket) Delete(key []byte) error {
	return b.backend.Delete([]byte(b.name), key)
}

func (b *memoryBucket) ForEach(fn func(k, v []byte) error) error {
	return b.backend.ForEach([]byte(b.name), fn)
}
