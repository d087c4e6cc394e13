package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_Argon2RoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.Contains(t, hash, "argon2id$")
	assert.True(t, CheckPassword("correct horse battery staple", hash))
	assert.False(t, CheckPassword("wrong password", hash))
}

func TestHashPasswordBcrypt_RoundTrip(t *testing.T) {
	hash, err := HashPasswordBcrypt("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, CheckPassword("correct horse battery staple", hash))
	assert.False(t, CheckPassword("wrong password", hash))
}

func TestCheckPassword_MalformedArgon2Hash(t *testing.T) {
	assert.False(t, CheckPassword("anything", "argon2id$not-enough-parts"))
}
