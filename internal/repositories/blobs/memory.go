package blobs

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/securechat/securechat/internal/common"
)

type memoryBlob struct {
	data     []byte
	expireAt *time.Time
}

// MemoryRepository is the in-memory blob store used by tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	blobs map[string]memoryBlob
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{blobs: make(map[string]memoryBlob)}
}

func (r *MemoryRepository) Put(_ context.Context, id string, data []byte, expireAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blobs[id] = memoryBlob{data: bytes.Clone(data), expireAt: expireAt}
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.blobs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	if b.expireAt != nil && !b.expireAt.After(time.Now()) {
		return nil, common.ErrNotFound
	}
	return bytes.Clone(b.data), nil
}

// Delete removes a blob; used by tests to simulate store-side expiry.
func (r *MemoryRepository) Delete(_ context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.blobs, id)
}
