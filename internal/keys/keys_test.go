package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securechat/securechat/internal/common"
)

func TestGenerateSigningKeypair_SignVerify(t *testing.T) {
	kp, err := GenerateSigningKeypair()
	require.NoError(t, err)

	digest := []byte("32-byte-digest-like-input-------")
	sig := Sign(kp.Private, digest)
	assert.True(t, Verify(kp.Public, digest, sig))
	assert.False(t, Verify(kp.Public, []byte("other digest"), sig))

	other, err := GenerateSigningKeypair()
	require.NoError(t, err)
	assert.False(t, Verify(other.Public, digest, sig))
}

func TestSigningKey_EncodeDecodeRoundTrip(t *testing.T) {
	kp, err := GenerateSigningKeypair()
	require.NoError(t, err)

	pub, err := DecodeSigningPublic(EncodeSigningPublic(kp.Public))
	require.NoError(t, err)
	priv, err := DecodeSigningPrivate(EncodeSigningPrivate(kp.Private))
	require.NoError(t, err)

	digest := []byte("digest")
	assert.True(t, Verify(pub, digest, Sign(priv, digest)))
}

func TestDecodeSigningKeys_DoNotAliasInput(t *testing.T) {
	kp, err := GenerateSigningKeypair()
	require.NoError(t, err)

	privBytes := EncodeSigningPrivate(kp.Private)
	pubBytes := EncodeSigningPublic(kp.Public)

	priv, err := DecodeSigningPrivate(privBytes)
	require.NoError(t, err)
	pub, err := DecodeSigningPublic(pubBytes)
	require.NoError(t, err)

	// Callers wipe the envelope plaintext after decoding; the keys must
	// keep working afterwards.
	common.WipeByteArray(privBytes)
	common.WipeByteArray(pubBytes)

	assert.NotEqual(t, make([]byte, len(priv)), []byte(priv))
	digest := []byte("digest")
	assert.True(t, Verify(pub, digest, Sign(priv, digest)))
}

func TestDecodeSigningKeys_BadLength(t *testing.T) {
	_, err := DecodeSigningPublic(make([]byte, 31))
	assert.Error(t, err)
	_, err = DecodeSigningPrivate(make([]byte, 10))
	assert.Error(t, err)
}

func TestExchangeKeypair_SharedSecretAgreement(t *testing.T) {
	alice, err := GenerateExchangeKeypair()
	require.NoError(t, err)
	bob, err := GenerateExchangeKeypair()
	require.NoError(t, err)

	s1, err := SharedSecret(alice.Private, bob.Public)
	require.NoError(t, err)
	s2, err := SharedSecret(bob.Private, alice.Public)
	require.NoError(t, err)
	assert.Equal(t, s1, s2)
	assert.Len(t, s1, 32)

	eve, err := GenerateExchangeKeypair()
	require.NoError(t, err)
	s3, err := SharedSecret(eve.Private, bob.Public)
	require.NoError(t, err)
	assert.NotEqual(t, s1, s3)
}

func TestExchangeKey_EncodeDecodeRoundTrip(t *testing.T) {
	kp, err := GenerateExchangeKeypair()
	require.NoError(t, err)

	pub, err := DecodeExchangePublic(EncodeExchangePublic(kp.Public))
	require.NoError(t, err)
	priv, err := DecodeExchangePrivate(EncodeExchangePrivate(kp.Private))
	require.NoError(t, err)

	peer, err := GenerateExchangeKeypair()
	require.NoError(t, err)
	s1, err := SharedSecret(priv, peer.Public)
	require.NoError(t, err)
	s2, err := SharedSecret(peer.Private, pub)
	require.NoError(t, err)
	assert.Equal(t, s1, s2)
}
