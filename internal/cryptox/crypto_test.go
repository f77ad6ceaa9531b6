package cryptox

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPIN(t *testing.T) {
	// SHA-256("1234")
	want := "03ac674216f3e15c761ee1a5e255f067953623c8b388b4459e13f978d7c846f4"
	require.Equal(t, want, HashPIN("1234"))
}

func TestVerifyPIN(t *testing.T) {
	hash := HashPIN("4321")

	require.True(t, VerifyPIN("4321", hash))
	require.False(t, VerifyPIN("1234", hash))
	require.False(t, VerifyPIN("", hash))
	require.False(t, VerifyPIN("4321", ""))
	require.False(t, VerifyPIN("4321", "not-a-hash"))
}

func TestGeneratePIN(t *testing.T) {
	for range 100 {
		pin, err := GeneratePIN()
		require.NoError(t, err)
		require.Len(t, pin, PINLength)
		require.GreaterOrEqual(t, pin, "1000")
		require.LessOrEqual(t, pin, "9999")
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	env, err := SealPIN("5678", key)
	require.NoError(t, err)
	require.NotEmpty(t, env.EncryptedPIN)
	require.NotEmpty(t, env.IV)
	require.NotEmpty(t, env.AuthTag)

	pin, err := OpenPIN(env, key)
	require.NoError(t, err)
	require.Equal(t, "5678", pin)
}

func TestOpenPINWrongKey(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	env, err := SealPIN("5678", key)
	require.NoError(t, err)

	other := make([]byte, 32)
	_, err = rand.Read(other)
	require.NoError(t, err)

	_, err = OpenPIN(env, other)
	require.Error(t, err)
}

func TestOpenPINTamperedTag(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	env, err := SealPIN("5678", key)
	require.NoError(t, err)

	env.AuthTag = env.IV // valid hex, wrong tag
	_, err = OpenPIN(env, key)
	require.Error(t, err)
}
