// Package users implements the identity-record store collaborator: equality
// lookup by username plus the field-level updates authentication needs.
package users

import (
	"context"
	"time"

	"github.com/securechat/securechat/internal/models"
)

// EncryptedProfile carries the at-rest-encrypted profile fields as a unit.
type EncryptedProfile struct {
	Email    string
	FullName string
	Address  string
	Gender   string
}

type Repository interface {
	// Create inserts a new identity record. Returns common.ErrDuplicateUser
	// if the username is taken.
	Create(ctx context.Context, user *models.User) error

	// Find returns the record for username or common.ErrNotFound.
	Find(ctx context.Context, username string) (*models.User, error)

	// IssueSession replaces the stored session token, invalidating any
	// previously issued one (single concurrent session per account).
	IssueSession(ctx context.Context, username, token string) error

	// SessionToken is a pure read of the currently valid token.
	SessionToken(ctx context.Context, username string) (string, error)

	// IncrementFailedAttempts adds one to the counter and returns the new
	// value. Persisted immediately so the count survives a crash between
	// attempts.
	IncrementFailedAttempts(ctx context.Context, username string) (int, error)

	// LockUntil opens the lockout window.
	LockUntil(ctx context.Context, username string, until time.Time) error

	// ResetLockout zeroes the counter and clears any lockout.
	ResetLockout(ctx context.Context, username string) error

	// ReplaceCredentials atomically swaps the password verifier and both
	// private-key envelopes.
	ReplaceCredentials(ctx context.Context, username string, bundle *models.CredentialBundle) error

	AddContact(ctx context.Context, username, contact string) error
	Contacts(ctx context.Context, username string) ([]string, error)

	SetLastLogout(ctx context.Context, username string, at time.Time) error

	UpdateProfile(ctx context.Context, username string, p EncryptedProfile) error
	UpdateAvatar(ctx context.Context, username, encryptedAvatar string) error
}
