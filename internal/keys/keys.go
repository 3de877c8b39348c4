// Package keys manages the two asymmetric identities every SecureChat user
// owns: an Ed25519 signing keypair for authenticity and an X25519 exchange
// keypair for confidentiality. It also provides the password envelope
// (ProtectedBlob) that locks the private halves at rest.
package keys

import (
	"crypto/ecdh"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

// SigningKeypair is a freshly generated or decoded Ed25519 identity.
type SigningKeypair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// ExchangeKeypair is a freshly generated or decoded X25519 identity.
type ExchangeKeypair struct {
	Public  *ecdh.PublicKey
	Private *ecdh.PrivateKey
}

// GenerateSigningKeypair produces a fresh Ed25519 keypair. Failure means no
// secure randomness source and is unrecoverable.
func GenerateSigningKeypair() (*SigningKeypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("ed25519 keygen: %w", err)
	}
	return &SigningKeypair{Public: pub, Private: priv}, nil
}

// GenerateExchangeKeypair produces a fresh X25519 keypair.
func GenerateExchangeKeypair() (*ExchangeKeypair, error) {
	priv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("x25519 keygen: %w", err)
	}
	return &ExchangeKeypair{Public: priv.PublicKey(), Private: priv}, nil
}

// Raw byte encodings. Ed25519 private keys travel as the 64-byte expanded
// form, X25519 keys as their 32-byte scalar/point forms.

func EncodeSigningPublic(k ed25519.PublicKey) []byte   { return []byte(k) }
func EncodeSigningPrivate(k ed25519.PrivateKey) []byte { return []byte(k) }
func EncodeExchangePublic(k *ecdh.PublicKey) []byte    { return k.Bytes() }
func EncodeExchangePrivate(k *ecdh.PrivateKey) []byte  { return k.Bytes() }

// Decoders copy their input: callers wipe decoded envelope contents after
// use, and the returned key must not alias the wiped slice.

func DecodeSigningPublic(b []byte) (ed25519.PublicKey, error) {
	if len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("bad ed25519 public key length %d", len(b))
	}
	return ed25519.PublicKey(append([]byte(nil), b...)), nil
}

func DecodeSigningPrivate(b []byte) (ed25519.PrivateKey, error) {
	if len(b) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("bad ed25519 private key length %d", len(b))
	}
	return ed25519.PrivateKey(append([]byte(nil), b...)), nil
}

func DecodeExchangePublic(b []byte) (*ecdh.PublicKey, error) {
	return ecdh.X25519().NewPublicKey(b)
}

func DecodeExchangePrivate(b []byte) (*ecdh.PrivateKey, error) {
	return ecdh.X25519().NewPrivateKey(b)
}

// Sign signs a digest with the Ed25519 private key.
func Sign(priv ed25519.PrivateKey, digest []byte) []byte {
	return ed25519.Sign(priv, digest)
}

// Verify reports whether sig is a valid signature of digest under pub.
func Verify(pub ed25519.PublicKey, digest, sig []byte) bool {
	return ed25519.Verify(pub, digest, sig)
}

// SharedSecret runs X25519 ECDH between our private key and their public
// key, returning the 32-byte shared secret.
func SharedSecret(priv *ecdh.PrivateKey, pub *ecdh.PublicKey) ([]byte, error) {
	s, err := priv.ECDH(pub)
	if err != nil {
		return nil, fmt.Errorf("x25519 ecdh: %w", err)
	}
	return s, nil
}
