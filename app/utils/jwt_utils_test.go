package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)

	token, err := m.GenerateToken("user-1")
	require.NoError(t, err)

	claims, err := m.ValidateToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestJWTRejects(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	token, err := m.GenerateToken("user-1")
	require.NoError(t, err)

	_, err = NewJWTManager("other", time.Hour).ValidateToken(token)
	assert.Error(t, err)

	_, err = m.ValidateToken("")
	assert.Error(t, err)

	_, err = m.GenerateToken("")
	assert.Error(t, err)

	expired := &JWTManager{secret: []byte("secret"), ttl: -time.Minute}
	token, err = expired.GenerateToken("user-1")
	require.NoError(t, err)
	_, err = m.ValidateToken(token)
	assert.Error(t, err)
}
