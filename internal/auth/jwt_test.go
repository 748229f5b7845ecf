package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestConfigureRejectsWeakSecrets(t *testing.T) {
	assert.ErrorIs(t, Configure("", ""), ErrSecretMissing)
	assert.ErrorIs(t, Configure("short", ""), ErrSecretShort)
	require.NoError(t, Configure(testSecret, ""))
	assert.NoError(t, Ready())
}

func TestAccessAndRefreshTokensAreNotInterchangeable(t *testing.T) {
	require.NoError(t, Configure(testSecret, ""))

	access, err := GenerateToken(7, "sam")
	require.NoError(t, err)
	refresh, err := GenerateRefreshToken(7, "sam", 0)
	require.NoError(t, err)

	claims, err := ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.UserID)
	assert.Equal(t, "sam", claims.Username)

	claims, err = ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, tokenRefresh, claims.TokenType)

	_, err = ValidateToken(refresh)
	assert.Error(t, err)
	_, err = ValidateRefreshToken(access)
	assert.Error(t, err)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NoError(t, CheckPassword(hash, "hunter22"))
	assert.Error(t, CheckPassword(hash, "hunter23"))
}

func TestRefreshDays(t *testing.T) {
	assert.Equal(t, refreshTokenDays, RefreshDays(false))
	assert.Equal(t, rememberRefreshDays, RefreshDays(true))
}
