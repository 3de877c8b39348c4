package models

import "time"

// Algorithm tags recorded on every message for forward compatibility. They
// are not consulted at read time in this version.
const (
	EncAlgAESGCM  = "AES/GCM"
	KexAlgX25519  = "X25519"
	SigAlgEd25519 = "Ed25519"
)

// Message is an append-only encrypted record. Every logical send produces
// exactly two of these: one routed to the recipient and one archival copy
// routed back to the sender with OriginalTo holding the true recipient.
// Each copy has its own ephemeral exchange key, IV and ciphertext, so
// compromising one copy's key reveals nothing about the other.
type Message struct {
	ID string

	From string
	// To is the store-level routing address; it equals From on archival
	// copies.
	To string
	// OriginalTo is set only on archival copies.
	OriginalTo string

	Timestamp time.Time

	EphemeralPublicKeyB64 string
	IVB64                 string
	CiphertextB64         string

	EncAlg string
	KexAlg string
	SigAlg string

	// ExpireAt, when set, hands the record to the store's TTL mechanism.
	ExpireAt *time.Time
}

// DecryptedMessage is the per-message result of loading a conversation.
// A record that failed to decrypt or verify still yields one of these with
// DecryptFailed set; one bad record never aborts the batch.
type DecryptedMessage struct {
	From           string
	To             string
	Timestamp      time.Time
	Plaintext      string
	SignatureValid bool
	DecryptFailed  bool
}

// CaptchaChallenge is a one-time bot-filter question handed to a client
// before registration.
type CaptchaChallenge struct {
	ID       string
	Question string
}
