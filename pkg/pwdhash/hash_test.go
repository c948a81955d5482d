package pwdhash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPasswordHash(t *testing.T) {
	h1 := HashPassword("hunter2")
	h2 := HashPassword("hunter2")
	require.NotEqual(t, h1, h2, "salts must differ")
	require.True(t, VerifyHash("hunter2", h1))
	require.True(t, VerifyHash("hunter2", h2))
	require.False(t, VerifyHash("hunter3", h1))
	require.False(t, VerifyHash("", h1))
	require.False(t, VerifyHash("hunter2", nil))
	require.False(t, VerifyHash("hunter2", h1[:10]))
}

func TestPasswordHashBase64(t *testing.T) {
	h := HashPasswordBase64("correct horse")
	require.True(t, VerifyHashBase64("correct horse", h))
	require.False(t, VerifyHashBase64("wrong horse", h))
	require.False(t, VerifyHashBase64("correct horse", "not-base64!!!"))
}

func TestSessionTokenHash(t *testing.T) {
	h1 := HashSessionTokenBase64("abc123")
	h2 := HashSessionTokenBase64("abc123")
	require.Equal(t, h1, h2, "token hashing must be deterministic")
	require.NotEqual(t, h1, HashSessionTokenBase64("abc124"))
	// 32 bytes of SHA-256 in unpadded base64
	require.Len(t, h1, 43)
}
