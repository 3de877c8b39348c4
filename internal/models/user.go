// Package models holds the record shapes shared between services and their
// store collaborators. Binary fields are base64-encoded strings so records
// serialize the same way regardless of backend.
package models

import (
	"time"

	"github.com/securechat/securechat/internal/keys"
)

// User is the identity record, one per account. The username is the natural
// key and never changes. Private keys appear only inside their password
// envelopes; the password hash is a PBKDF2 verifier, never reversible.
type User struct {
	Username string

	PasswordSaltB64    string
	PasswordHashB64    string
	PasswordIterations int

	SigningPublicKeyB64 string
	SigningKeyEnvelope  keys.ProtectedBlob

	ExchangePublicKeyB64 string
	ExchangeKeyEnvelope  keys.ProtectedBlob

	FailedAttempts int
	LockoutUntil   *time.Time

	// SessionToken holds the single currently valid token; overwriting it
	// force-logs-out any other client.
	SessionToken string

	LastLogoutAt *time.Time

	Contacts []string

	// Profile fields encrypted at rest under the server-wide profile key
	// (independent of the message engine).
	EncryptedEmail    string
	EncryptedFullName string
	EncryptedAddress  string
	EncryptedGender   string
	EncryptedAvatar   string

	CreatedAt time.Time
}

// CredentialBundle is the set of artifacts replaced atomically on a
// password change: the new verifier plus both re-protected key envelopes.
type CredentialBundle struct {
	PasswordSaltB64    string
	PasswordHashB64    string
	PasswordIterations int

	SigningKeyEnvelope  keys.ProtectedBlob
	ExchangeKeyEnvelope keys.ProtectedBlob
}

// Profile is the decrypted view of a user's personal fields.
type Profile struct {
	Email    string
	FullName string
	Address  string
	Gender   string
}
