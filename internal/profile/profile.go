// Package profile encrypts profile fields at rest under a single static
// server-wide key. It is structurally identical to, but fully independent
// of, the message engine: a profile-key compromise reveals profile fields,
// never message plaintexts.
package profile

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/securechat/securechat/internal/cryptox"
)

// at-rest format: "ivB64:ciphertextB64"
const separator = ":"

var ErrInvalidFormat = errors.New("profile: invalid encrypted field format")

// Cipher encrypts and decrypts individual profile fields.
type Cipher struct {
	key []byte
}

// NewCipher expects a 32-byte key, usually decoded from config.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != cryptox.KeySize {
		return nil, fmt.Errorf("profile: key must be %d bytes, got %d", cryptox.KeySize, len(key))
	}
	return &Cipher{key: key}, nil
}

// Encrypt seals one field. Empty input stays empty so optional fields do
// not produce ciphertext records.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	iv := cryptox.RandBytes(cryptox.IVSize)
	ct, err := cryptox.Encrypt(c.key, iv, []byte(plaintext), nil)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(iv) + separator +
		base64.StdEncoding.EncodeToString(ct), nil
}

// Decrypt opens one field. Corrupt input yields an error, never partial
// plaintext; callers render a placeholder.
func (c *Cipher) Decrypt(encrypted string) (string, error) {
	if encrypted == "" {
		return "", nil
	}
	ivB64, ctB64, ok := strings.Cut(encrypted, separator)
	if !ok {
		return "", ErrInvalidFormat
	}
	iv, err := base64.StdEncoding.DecodeString(ivB64)
	if err != nil {
		return "", ErrInvalidFormat
	}
	ct, err := base64.StdEncoding.DecodeString(ctB64)
	if err != nil {
		return "", ErrInvalidFormat
	}
	pt, err := cryptox.Decrypt(c.key, iv, ct, nil)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}
