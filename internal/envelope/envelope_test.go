package envelope

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, iv, err := GenerateSessionKey()
	require.NoError(t, err)
	require.Len(t, key, KeySize)
	require.Len(t, iv, IVSize)

	plaintext := []byte(`{"Amount":1250,"Description":"invoice 42"}`)
	ciphertext, err := Encrypt(plaintext, key, iv)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	got, err := Decrypt(ciphertext, key, iv)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestDecryptWrongKeyFails(t *testing.T) {
	key, iv, err := GenerateSessionKey()
	require.NoError(t, err)
	otherKey, _, err := GenerateSessionKey()
	require.NoError(t, err)

	ciphertext, err := Encrypt([]byte("secret"), key, iv)
	require.NoError(t, err)

	_, err = Decrypt(ciphertext, otherKey, iv)
	assert.ErrorIs(t, err, ErrCrypto)
}

func TestDecryptTamperedCiphertextFails(t *testing.T) {
	key, iv, err := GenerateSessionKey()
	require.NoError(t, err)

	ciphertext, err := Encrypt([]byte("secret"), key, iv)
	require.NoError(t, err)
	ciphertext[0] ^= 0x01

	_, err = Decrypt(ciphertext, key, iv)
	assert.ErrorIs(t, err, ErrCrypto)
}

func TestWrapUnwrapKey(t *testing.T) {
	recipient := testKey(t)
	key, _, err := GenerateSessionKey()
	require.NoError(t, err)

	wrapped, err := WrapKey(key, &recipient.PublicKey)
	require.NoError(t, err)

	got, err := UnwrapKey(wrapped, recipient)
	require.NoError(t, err)
	assert.Equal(t, key, got)

	other := testKey(t)
	_, err = UnwrapKey(wrapped, other)
	assert.ErrorIs(t, err, ErrCrypto)
}

func TestSignVerify(t *testing.T) {
	signer := testKey(t)
	msg := []byte("payment instruction")

	sig, err := Sign(msg, signer)
	require.NoError(t, err)
	assert.True(t, Verify(msg, sig, &signer.PublicKey))

	t.Run("modified message fails", func(t *testing.T) {
		assert.False(t, Verify([]byte("payment instruction!"), sig, &signer.PublicKey))
	})

	t.Run("modified signature fails", func(t *testing.T) {
		bad := make([]byte, len(sig))
		copy(bad, sig)
		bad[len(bad)-1] ^= 0x01
		assert.False(t, Verify(msg, bad, &signer.PublicKey))
	})

	t.Run("wrong key fails", func(t *testing.T) {
		other := testKey(t)
		assert.False(t, Verify(msg, sig, &other.PublicKey))
	})
}

func TestHashIsStableHex(t *testing.T) {
	h1 := Hash([]byte("abc"))
	h2 := Hash([]byte("abc"))
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
	assert.NotEqual(t, h1, Hash([]byte("abd")))
}

func TestKeyPEMRoundTrip(t *testing.T) {
	key := testKey(t)

	privPEM, err := EncodePrivateKey(key)
	require.NoError(t, err)
	pubPEM, err := EncodePublicKey(&key.PublicKey)
	require.NoError(t, err)

	gotPriv, err := ParsePrivateKey(privPEM)
	require.NoError(t, err)
	assert.True(t, key.Equal(gotPriv))

	gotPub, err := ParsePublicKey(pubPEM)
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(gotPub))
}

func TestParsePublicKeyRejectsGarbage(t *testing.T) {
	_, err := ParsePublicKey([]byte("not a pem block"))
	assert.Error(t, err)
}
