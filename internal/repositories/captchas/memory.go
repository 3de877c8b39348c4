package captchas

import (
	"context"
	"sync"
	"time"

	"github.com/securechat/securechat/internal/common"
)

type memoryEntry struct {
	answer   string
	expireAt time.Time
}

// MemoryRepository is the in-memory challenge store. Take holds the lock
// across lookup and delete, giving the same one-shot guarantee as the SQL
// DELETE ... RETURNING.
type MemoryRepository struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{entries: make(map[string]memoryEntry)}
}

func (r *MemoryRepository) Save(_ context.Context, id, answer string, expireAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = memoryEntry{answer: answer, expireAt: expireAt}
	return nil
}

func (r *MemoryRepository) Take(_ context.Context, id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return "", common.ErrNotFound
	}
	delete(r.entries, id)
	if !e.expireAt.After(time.Now()) {
		return "", common.ErrNotFound
	}
	return e.answer, nil
}
