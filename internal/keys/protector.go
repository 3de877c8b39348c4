package keys

import (
	"encoding/base64"

	"github.com/securechat/securechat/internal/common"
	"github.com/securechat/securechat/internal/cryptox"
)

// DefaultIterations is the PBKDF2 iteration count for new envelopes.
// Existing blobs carry their own count, so this can be raised without
// breaking stored keys.
const DefaultIterations = 200_000

const kekSaltSize = 16

// ProtectedBlob is a self-contained password envelope around arbitrary
// secret bytes. The same shape wraps both the signing and the exchange
// private key, so a password change only ever re-protects two opaque blobs.
// Fresh salt and IV on every call mean two envelopes of the same secret are
// never byte-comparable.
type ProtectedBlob struct {
	CiphertextB64 string `json:"ciphertext"`
	IVB64         string `json:"iv"`
	SaltB64       string `json:"salt"`
	Iterations    int    `json:"iterations"`
}

// Protect wraps secret under a key derived from password. It never mutates
// or retains its arguments.
func Protect(secret, password []byte) (*ProtectedBlob, error) {
	return ProtectWithIterations(secret, password, DefaultIterations)
}

// ProtectWithIterations is Protect with a caller-chosen PBKDF2 cost.
func ProtectWithIterations(secret, password []byte, iterations int) (*ProtectedBlob, error) {
	salt := cryptox.RandBytes(kekSaltSize)
	kek := cryptox.DeriveKey(password, salt, iterations, cryptox.KeySize)
	defer common.WipeByteArray(kek)

	iv := cryptox.RandBytes(cryptox.IVSize)
	ct, err := cryptox.Encrypt(kek, iv, secret, nil)
	if err != nil {
		return nil, err
	}

	return &ProtectedBlob{
		CiphertextB64: base64.StdEncoding.EncodeToString(ct),
		IVB64:         base64.StdEncoding.EncodeToString(iv),
		SaltB64:       base64.StdEncoding.EncodeToString(salt),
		Iterations:    iterations,
	}, nil
}

// Unprotect re-derives the envelope key from password and the blob's own
// salt and iteration count, then opens the envelope. A wrong password and a
// tampered blob are indistinguishable: both return
// common.ErrAuthenticationFailed, never garbage bytes.
func Unprotect(blob *ProtectedBlob, password []byte) ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(blob.SaltB64)
	if err != nil {
		return nil, common.ErrAuthenticationFailed
	}
	iv, err := base64.StdEncoding.DecodeString(blob.IVB64)
	if err != nil {
		return nil, common.ErrAuthenticationFailed
	}
	ct, err := base64.StdEncoding.DecodeString(blob.CiphertextB64)
	if err != nil {
		return nil, common.ErrAuthenticationFailed
	}

	kek := cryptox.DeriveKey(password, salt, blob.Iterations, cryptox.KeySize)
	defer common.WipeByteArray(kek)

	secret, err := cryptox.Decrypt(kek, iv, ct, nil)
	if err != nil {
		return nil, common.ErrAuthenticationFailed
	}
	return secret, nil
}
