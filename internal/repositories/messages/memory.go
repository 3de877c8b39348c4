package messages

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/securechat/securechat/internal/models"
)

// MemoryRepository is the in-memory message store used by tests. Expired
// records are filtered on read, so TTL behavior matches the real store even
// without a sweeper.
type MemoryRepository struct {
	mu   sync.RWMutex
	msgs []*models.Message
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Create(_ context.Context, m *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.msgs = append(r.msgs, &cp)
	return nil
}

func (r *MemoryRepository) CreatePair(_ context.Context, recipient, archive *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, b := *recipient, *archive
	r.msgs = append(r.msgs, &a, &b)
	return nil
}

func (r *MemoryRepository) Conversation(_ context.Context, me, partner string, limit int) ([]*models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	var out []*models.Message
	for _, m := range r.msgs {
		if r.expired(m, now) {
			continue
		}
		if m.To == me && (m.From == partner || m.OriginalTo == partner) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) DistinctSendersSince(_ context.Context, me string, since time.Time) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	seen := map[string]bool{}
	var senders []string
	for _, m := range r.msgs {
		if r.expired(m, now) {
			continue
		}
		if m.To == me && m.From != me && m.Timestamp.After(since) && !seen[m.From] {
			seen[m.From] = true
			senders = append(senders, m.From)
		}
	}
	sort.Strings(senders)
	return senders, nil
}

func (r *MemoryRepository) DeleteConversation(_ context.Context, me, partner string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var kept []*models.Message
	var removed int64
	for _, m := range r.msgs {
		if m.To == me && (m.From == partner || m.OriginalTo == partner) {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	r.msgs = kept
	return removed, nil
}

func (r *MemoryRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var kept []*models.Message
	var removed int64
	for _, m := range r.msgs {
		if r.expired(m, now) {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	r.msgs = kept
	return removed, nil
}

func (r *MemoryRepository) expired(m *models.Message, now time.Time) bool {
	return m.ExpireAt != nil && !m.ExpireAt.After(now)
}
