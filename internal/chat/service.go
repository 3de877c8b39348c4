// Package chat implements the message engine: sign-then-encrypt on send,
// decrypt-then-verify on load, with an independent ephemeral key exchange
// for each stored copy of a message.
package chat

import (
	"context"
	"crypto/ecdh"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/securechat/securechat/internal/auth"
	"github.com/securechat/securechat/internal/common"
	"github.com/securechat/securechat/internal/cryptox"
	"github.com/securechat/securechat/internal/keys"
	"github.com/securechat/securechat/internal/logging"
	"github.com/securechat/securechat/internal/models"
	"github.com/securechat/securechat/internal/repositories/blobs"
	"github.com/securechat/securechat/internal/repositories/messages"
	"github.com/securechat/securechat/internal/repositories/users"
)

// messageKeyInfo is the fixed HKDF context string. Changing it is a wire
// format break: old records would stop decrypting.
const messageKeyInfo = "SecureChat msg key"

type Service struct {
	users    users.Repository
	messages messages.Repository
	blobs    blobs.Repository
	logger   logging.Logger
	now      func() time.Time
}

func NewService(userRepo users.Repository, messageRepo messages.Repository, blobRepo blobs.Repository, logger logging.Logger) *Service {
	return &Service{
		users:    userRepo,
		messages: messageRepo,
		blobs:    blobRepo,
		logger:   logger,
		now:      time.Now,
	}
}

// Send encrypts plaintext for recipient and stores two records: the
// recipient's copy and the sender's archival copy, each sealed under its
// own ephemeral exchange and derived key. ttl of zero means the records
// never expire. Both parties end up in each other's contact sets.
func (s *Service) Send(ctx context.Context, session *auth.Session, recipient, plaintext string, ttl time.Duration) error {
	peer, err := s.users.Find(ctx, recipient)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrRecipientNotFound
		}
		return err
	}
	peerExchange, err := decodeExchangePublicB64(peer.ExchangePublicKeyB64)
	if err != nil {
		return fmt.Errorf("recipient exchange key: %w", err)
	}

	from := session.Username()
	ts := s.now().UTC().Truncate(time.Millisecond)

	digest := cryptox.Hash(digestInput(from, recipient, ts, plaintext))
	sig := keys.Sign(session.SigningPrivate(), digest)

	cleartext := encodePayload(&payload{
		From:      from,
		To:        recipient,
		Timestamp: ts,
		Plaintext: plaintext,
		Digest:    digest,
		Signature: sig,
	})

	// both copies bind the same AAD: the logical (from, recipient, ts)
	aad := aadFor(from, recipient, ts)

	var expireAt *time.Time
	if ttl > 0 {
		t := ts.Add(ttl)
		expireAt = &t
	}

	recipientCopy, err := sealCopy(cleartext, aad, peerExchange)
	if err != nil {
		return err
	}
	recipientCopy.From = from
	recipientCopy.To = recipient
	recipientCopy.Timestamp = ts
	recipientCopy.ExpireAt = expireAt

	archiveCopy, err := sealCopy(cleartext, aad, session.ExchangePublic())
	if err != nil {
		return err
	}
	archiveCopy.From = from
	archiveCopy.To = from
	archiveCopy.OriginalTo = recipient
	archiveCopy.Timestamp = ts
	archiveCopy.ExpireAt = expireAt

	if err := s.messages.CreatePair(ctx, recipientCopy, archiveCopy); err != nil {
		return err
	}

	if err := s.users.AddContact(ctx, from, recipient); err != nil {
		return err
	}
	if err := s.users.AddContact(ctx, recipient, from); err != nil {
		return err
	}

	s.logger.Debug(ctx, "message sent", "from", from, "to", recipient)
	return nil
}

// sealCopy runs one copy's share of the send protocol: fresh ephemeral
// X25519 keypair, ECDH against the copy owner's long-term public key, HKDF
// with the copy's random IV as salt, then AEAD seal.
func sealCopy(cleartext, aad []byte, owner *ecdh.PublicKey) (*models.Message, error) {
	eph, err := keys.GenerateExchangeKeypair()
	if err != nil {
		return nil, err
	}
	shared, err := keys.SharedSecret(eph.Private, owner)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(shared)

	iv := cryptox.RandBytes(cryptox.IVSize)
	key, err := cryptox.DeriveMessageKey(shared, iv, []byte(messageKeyInfo))
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	ciphertext, err := cryptox.Encrypt(key, iv, cleartext, aad)
	if err != nil {
		return nil, err
	}

	return &models.Message{
		ID:                    uuid.NewString(),
		EphemeralPublicKeyB64: base64.StdEncoding.EncodeToString(keys.EncodeExchangePublic(eph.Public)),
		IVB64:                 base64.StdEncoding.EncodeToString(iv),
		CiphertextB64:         base64.StdEncoding.EncodeToString(ciphertext),
		EncAlg:                models.EncAlgAESGCM,
		KexAlg:                models.KexAlgX25519,
		SigAlg:                models.SigAlgEd25519,
	}, nil
}

// LoadConversation fetches and opens the caller's copies of the exchange
// with partner, oldest first. Every record yields a result: one that fails
// to decrypt, parse or verify comes back flagged instead of aborting the
// batch.
func (s *Service) LoadConversation(ctx context.Context, session *auth.Session, partner string, limit int) ([]*models.DecryptedMessage, error) {
	records, err := s.messages.Conversation(ctx, session.Username(), partner, limit)
	if err != nil {
		return nil, err
	}

	signingKeys := map[string]ed25519.PublicKey{}
	out := make([]*models.DecryptedMessage, 0, len(records))
	for _, record := range records {
		dm, err := s.openRecord(ctx, session, record, signingKeys)
		if err != nil {
			s.logger.Warn(ctx, "message unreadable", "id", record.ID, "from", record.From)
			dm = &models.DecryptedMessage{
				From:          record.From,
				To:            logicalRecipient(record),
				Timestamp:     record.Timestamp,
				DecryptFailed: true,
			}
		}
		out = append(out, dm)
	}
	return out, nil
}

// openRecord reverses sealCopy for one record and verifies the embedded
// signature against the claimed sender's published signing key.
func (s *Service) openRecord(ctx context.Context, session *auth.Session, record *models.Message, signingKeys map[string]ed25519.PublicKey) (*models.DecryptedMessage, error) {
	realTo := logicalRecipient(record)

	ephBytes, err := base64.StdEncoding.DecodeString(record.EphemeralPublicKeyB64)
	if err != nil {
		return nil, err
	}
	eph, err := keys.DecodeExchangePublic(ephBytes)
	if err != nil {
		return nil, err
	}
	iv, err := base64.StdEncoding.DecodeString(record.IVB64)
	if err != nil {
		return nil, err
	}
	ciphertext, err := base64.StdEncoding.DecodeString(record.CiphertextB64)
	if err != nil {
		return nil, err
	}

	shared, err := keys.SharedSecret(session.ExchangePrivate(), eph)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(shared)
	key, err := cryptox.DeriveMessageKey(shared, iv, []byte(messageKeyInfo))
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	cleartext, err := cryptox.Decrypt(key, iv, ciphertext, aadFor(record.From, realTo, record.Timestamp))
	if err != nil {
		return nil, err
	}

	p, err := parsePayload(cleartext)
	if err != nil {
		return nil, err
	}

	senderKey, err := s.signingKeyFor(ctx, record.From, signingKeys)
	if err != nil {
		return nil, err
	}

	digest := cryptox.Hash(digestInput(record.From, realTo, record.Timestamp, p.Plaintext))
	signatureValid := cryptox.ConstantTimeEqual(digest, p.Digest) &&
		keys.Verify(senderKey, digest, p.Signature)

	return &models.DecryptedMessage{
		From:           record.From,
		To:             realTo,
		Timestamp:      record.Timestamp,
		Plaintext:      p.Plaintext,
		SignatureValid: signatureValid,
	}, nil
}

func (s *Service) signingKeyFor(ctx context.Context, username string, cache map[string]ed25519.PublicKey) (ed25519.PublicKey, error) {
	if k, ok := cache[username]; ok {
		return k, nil
	}
	u, err := s.users.Find(ctx, username)
	if err != nil {
		return nil, err
	}
	raw, err := base64.StdEncoding.DecodeString(u.SigningPublicKeyB64)
	if err != nil {
		return nil, err
	}
	k, err := keys.DecodeSigningPublic(raw)
	if err != nil {
		return nil, err
	}
	cache[username] = k
	return k, nil
}

// Contacts returns everyone the user has ever exchanged messages with.
func (s *Service) Contacts(ctx context.Context, username string) ([]string, error) {
	return s.users.Contacts(ctx, username)
}

// MissedSenders lists users who sent messages after the caller's last
// logout. A user who never logged out sees every sender.
func (s *Service) MissedSenders(ctx context.Context, username string) ([]string, error) {
	u, err := s.users.Find(ctx, username)
	if err != nil {
		return nil, err
	}
	var since time.Time
	if u.LastLogoutAt != nil {
		since = *u.LastLogoutAt
	}
	return s.messages.DistinctSendersSince(ctx, username, since)
}

// DeleteConversation removes the caller's copies of the exchange with
// partner. The partner's copies are untouched.
func (s *Service) DeleteConversation(ctx context.Context, session *auth.Session, partner string) (int64, error) {
	n, err := s.messages.DeleteConversation(ctx, session.Username(), partner)
	if err != nil {
		return 0, err
	}
	s.logger.Info(ctx, "conversation deleted", "user", session.Username(), "partner", partner, "records", n)
	return n, nil
}

// logicalRecipient recovers realTo: the true addressee of the logical
// message, regardless of which copy this record is.
func logicalRecipient(m *models.Message) string {
	if m.OriginalTo != "" {
		return m.OriginalTo
	}
	return m.To
}

func decodeExchangePublicB64(b64 string) (*ecdh.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	return keys.DecodeExchangePublic(raw)
}
