// Package auth verifies passwords, rate-limits guessing, issues session
// tokens and unlocks the user's private keys for the duration of a session.
package auth

import (
	"crypto/ecdh"
	"crypto/ed25519"
)

// Session is the credential object a successful login returns. The decoded
// private keys live only here, in unexported fields with no serialization
// tags; nothing may persist them. Lifetime is scoped to the logical
// session: drop the value and the keys are gone.
type Session struct {
	username string
	token    string

	signingPublic  ed25519.PublicKey
	signingPrivate ed25519.PrivateKey

	exchangePublic  *ecdh.PublicKey
	exchangePrivate *ecdh.PrivateKey
}

func (s *Session) Username() string { return s.username }

// Token is the opaque session token as stored server-side. A client polls
// IsSessionValid with it to detect forced logout by a concurrent login.
func (s *Session) Token() string { return s.token }

func (s *Session) SigningPublic() ed25519.PublicKey   { return s.signingPublic }
func (s *Session) SigningPrivate() ed25519.PrivateKey { return s.signingPrivate }
func (s *Session) ExchangePublic() *ecdh.PublicKey    { return s.exchangePublic }
func (s *Session) ExchangePrivate() *ecdh.PrivateKey  { return s.exchangePrivate }
