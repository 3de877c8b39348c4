package cryptox

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

// DeriveKey stretches a password into a keyLen-byte key with
// PBKDF2-HMAC-SHA256. The same password, salt and iteration count always
// yield the same key.
func DeriveKey(password, salt []byte, iters, keyLen int) []byte {
	return pbkdf2.Key(password, salt, iters, keyLen, sha256.New)
}

// DeriveMessageKey turns an ECDH shared secret into a 32-byte AES key with
// HKDF-SHA256. The per-message IV doubles as the HKDF salt, so each message
// copy gets an independent key even from an identical shared secret.
func DeriveMessageKey(shared, salt, info []byte) ([]byte, error) {
	r := hkdf.New(sha256.New, shared, salt, info)
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}
