package profile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securechat/securechat/internal/cryptox"
)

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := NewCipher(cryptox.RandBytes(cryptox.KeySize))
	require.NoError(t, err)
	return c
}

func TestNewCipher_RejectsBadKeyLength(t *testing.T) {
	_, err := NewCipher([]byte("short"))
	assert.Error(t, err)
}

func TestCipher_RoundTrip(t *testing.T) {
	c := newTestCipher(t)

	enc, err := c.Encrypt("alice@example.com")
	require.NoError(t, err)
	assert.Contains(t, enc, ":")

	dec, err := c.Decrypt(enc)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", dec)
}

func TestCipher_EmptyFieldStaysEmpty(t *testing.T) {
	c := newTestCipher(t)

	enc, err := c.Encrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", enc)

	dec, err := c.Decrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", dec)
}

func TestCipher_FreshIVPerCall(t *testing.T) {
	c := newTestCipher(t)

	e1, err := c.Encrypt("same value")
	require.NoError(t, err)
	e2, err := c.Encrypt("same value")
	require.NoError(t, err)
	assert.NotEqual(t, e1, e2)
}

func TestCipher_CorruptInput(t *testing.T) {
	c := newTestCipher(t)

	_, err := c.Decrypt("no-separator")
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = c.Decrypt("!!!:!!!")
	assert.ErrorIs(t, err, ErrInvalidFormat)

	enc, err := c.Encrypt("value")
	require.NoError(t, err)
	parts := strings.SplitN(enc, ":", 2)
	tampered := parts[0] + ":" + "AAAA" + parts[1][4:]
	_, err = c.Decrypt(tampered)
	assert.Error(t, err)
}

func TestCipher_WrongKeyFails(t *testing.T) {
	c1 := newTestCipher(t)
	c2 := newTestCipher(t)

	enc, err := c1.Encrypt("value")
	require.NoError(t, err)
	_, err = c2.Decrypt(enc)
	assert.Error(t, err)
}
