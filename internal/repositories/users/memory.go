package users

import (
	"context"
	"sync"
	"time"

	"github.com/securechat/securechat/internal/common"
	"github.com/securechat/securechat/internal/models"
)

// MemoryRepository is an in-memory Repository used by tests and the demo
// wiring. Field updates hold the lock for the whole operation, mirroring
// the per-row atomicity of the real store.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]*models.User)}
}

func (r *MemoryRepository) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.Username]; ok {
		return common.ErrDuplicateUser
	}
	cp := *u
	cp.CreatedAt = time.Now()
	r.users[u.Username] = &cp
	return nil
}

func (r *MemoryRepository) Find(_ context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[username]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *u
	cp.Contacts = append([]string(nil), u.Contacts...)
	return &cp, nil
}

func (r *MemoryRepository) IssueSession(_ context.Context, username, token string) error {
	return r.update(username, func(u *models.User) { u.SessionToken = token })
}

func (r *MemoryRepository) SessionToken(_ context.Context, username string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[username]
	if !ok {
		return "", common.ErrNotFound
	}
	return u.SessionToken, nil
}

func (r *MemoryRepository) IncrementFailedAttempts(_ context.Context, username string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[username]
	if !ok {
		return 0, common.ErrNotFound
	}
	u.FailedAttempts++
	return u.FailedAttempts, nil
}

func (r *MemoryRepository) LockUntil(_ context.Context, username string, until time.Time) error {
	return r.update(username, func(u *models.User) { u.LockoutUntil = &until })
}

func (r *MemoryRepository) ResetLockout(_ context.Context, username string) error {
	return r.update(username, func(u *models.User) {
		u.FailedAttempts = 0
		u.LockoutUntil = nil
	})
}

func (r *MemoryRepository) ReplaceCredentials(_ context.Context, username string, b *models.CredentialBundle) error {
	return r.update(username, func(u *models.User) {
		u.PasswordSaltB64 = b.PasswordSaltB64
		u.PasswordHashB64 = b.PasswordHashB64
		u.PasswordIterations = b.PasswordIterations
		u.SigningKeyEnvelope = b.SigningKeyEnvelope
		u.ExchangeKeyEnvelope = b.ExchangeKeyEnvelope
	})
}

func (r *MemoryRepository) AddContact(_ context.Context, username, contact string) error {
	return r.update(username, func(u *models.User) {
		for _, c := range u.Contacts {
			if c == contact {
				return
			}
		}
		u.Contacts = append(u.Contacts, contact)
	})
}

func (r *MemoryRepository) Contacts(_ context.Context, username string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[username]
	if !ok {
		return nil, common.ErrNotFound
	}
	return append([]string(nil), u.Contacts...), nil
}

func (r *MemoryRepository) SetLastLogout(_ context.Context, username string, at time.Time) error {
	return r.update(username, func(u *models.User) { u.LastLogoutAt = &at })
}

func (r *MemoryRepository) UpdateProfile(_ context.Context, username string, p EncryptedProfile) error {
	return r.update(username, func(u *models.User) {
		u.EncryptedEmail = p.Email
		u.EncryptedFullName = p.FullName
		u.EncryptedAddress = p.Address
		u.EncryptedGender = p.Gender
	})
}

func (r *MemoryRepository) UpdateAvatar(_ context.Context, username, encryptedAvatar string) error {
	return r.update(username, func(u *models.User) { u.EncryptedAvatar = encryptedAvatar })
}

func (r *MemoryRepository) update(username string, fn func(*models.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[username]
	if !ok {
		return common.ErrNotFound
	}
	fn(u)
	return nil
}
