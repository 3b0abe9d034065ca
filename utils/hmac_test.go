package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUploadStringToSign(t *testing.T) {
	got := BuildUploadStringToSign("images", "u1/2024/01/02/x.png", "u1", 1700000000)
	assert.Equal(t, "PUT\n/images/u1/2024/01/02/x.png\nu1\n1700000000", got)
}

func TestComputeHMACSHA256(t *testing.T) {
	// RFC 4231 test case 2
	sig := ComputeHMACSHA256("Jefe", "what do ya want for nothing?")
	assert.Equal(t, "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843", sig)
}

func TestUploadTokenRoundTrip(t *testing.T) {
	now := time.Unix(1700000000, 0)
	token := SignUploadToken("secret", "audio", "u1/a.mp3", "u1", now.Add(2*time.Hour))

	parts := strings.SplitN(token, ".", 2)
	require.Len(t, parts, 2)
	assert.Equal(t, "1700007200", parts[0])
	assert.Len(t, parts[1], 64)

	require.NoError(t, VerifyUploadToken("secret", token, "audio", "u1/a.mp3", "u1", now))
}

func TestVerifyUploadTokenRejects(t *testing.T) {
	now := time.Unix(1700000000, 0)
	token := SignUploadToken("secret", "audio", "u1/a.mp3", "u1", now.Add(time.Minute))

	assert.ErrorIs(t, VerifyUploadToken("other", token, "audio", "u1/a.mp3", "u1", now), ErrInvalidUploadToken)
	assert.ErrorIs(t, VerifyUploadToken("secret", token, "images", "u1/a.mp3", "u1", now), ErrInvalidUploadToken)
	assert.ErrorIs(t, VerifyUploadToken("secret", token, "audio", "u1/b.mp3", "u1", now), ErrInvalidUploadToken)
	assert.ErrorIs(t, VerifyUploadToken("secret", token, "audio", "u1/a.mp3", "u2", now), ErrInvalidUploadToken)
	assert.ErrorIs(t, VerifyUploadToken("secret", "garbage", "audio", "u1/a.mp3", "u1", now), ErrInvalidUploadToken)
	assert.ErrorIs(t, VerifyUploadToken("secret", "abc.def", "audio", "u1/a.mp3", "u1", now), ErrInvalidUploadToken)
	assert.ErrorIs(t, VerifyUploadToken("secret", token, "audio", "u1/a.mp3", "u1", now.Add(2*time.Minute)), ErrUploadTokenExpired)
}

func TestSecureCompare(t *testing.T) {
	assert.True(t, SecureCompare("abc", "abc"))
	assert.False(t, SecureCompare("abc", "abd"))
	assert.False(t, SecureCompare("abc", "ab"))
}
