// Package cryptox wraps the symmetric primitives the rest of SecureChat is
// built on: AES-256-GCM, PBKDF2 and HKDF key derivation, SHA-256 digests and
// secure randomness. It carries no policy; callers decide salts, iteration
// counts and associated data.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
)

const (
	// KeySize is the AES-256 key length used everywhere in SecureChat.
	KeySize = 32
	// IVSize is the GCM nonce length.
	IVSize = 12
)

// ErrDecrypt is the single opaque failure returned for any AEAD open
// failure. Which byte was wrong is never reported.
var ErrDecrypt = errors.New("cryptox: decryption failed")

// Encrypt seals plaintext with AES-256-GCM under the given 32-byte key and
// 12-byte IV, binding aad (which may be nil) into the authentication tag.
func Encrypt(key, iv, plaintext, aad []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return aesgcm.Seal(nil, iv, plaintext, aad), nil
}

// Decrypt opens an AES-256-GCM ciphertext. It returns ErrDecrypt if the key,
// IV, ciphertext or aad do not match what was sealed; there is no partial
// output.
func Decrypt(key, iv, ciphertext, aad []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aesgcm.Open(nil, iv, ciphertext, aad)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Hash returns the SHA-256 digest of data.
func Hash(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}

// ConstantTimeEqual compares two byte slices in constant time.
func ConstantTimeEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
