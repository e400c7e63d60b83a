package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/gridgo/internal/config"
	"github.com/udisondev/gridgo/internal/model"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := hashPassword("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, verifyPassword("correct horse battery staple", hash))
	assert.False(t, verifyPassword("wrong password", hash))
}

func TestPasswordTruncationIsConsistent(t *testing.T) {
	long := strings.Repeat("a", 100)
	hash, err := hashPassword(long)
	require.NoError(t, err)

	// Hashing and verification truncate identically, so any password
	// sharing the first 72 bytes verifies.
	assert.True(t, verifyPassword(long, hash))
	assert.True(t, verifyPassword(strings.Repeat("a", 72)+"different tail", hash))
	assert.False(t, verifyPassword(strings.Repeat("b", 100), hash))
}

func TestNewToken(t *testing.T) {
	a, err := newToken()
	require.NoError(t, err)
	b, err := newToken()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestHasDebug(t *testing.T) {
	svc := NewService(nil, config.Server{DebugUser: "admin"})

	assert.True(t, svc.HasDebug(&model.Player{Username: "alice", IsDebug: true}))
	assert.True(t, svc.HasDebug(&model.Player{Username: "Admin"}))
	assert.False(t, svc.HasDebug(&model.Player{Username: "alice"}))

	noDebugUser := NewService(nil, config.Server{})
	assert.False(t, noDebugUser.HasDebug(&model.Player{Username: "admin"}))
}
