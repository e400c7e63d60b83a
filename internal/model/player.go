package model

import (
	"time"

	"github.com/google/uuid"
)

// Player is an authenticated principal. The simulation core only uses the
// ID; everything else belongs to the auth collaborator.
type Player struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	IsDebug      bool
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// Session is an issued auth token for one player.
type Session struct {
	ID        uuid.UUID
	PlayerID  uuid.UUID
	Token     string
	CreatedAt time.Time
	ExpiresAt *time.Time
}

// IsExpired reports whether the session token has expired.
// A session without an expiry never expires.
func (s *Session) IsExpired() bool {
	if s.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*s.ExpiresAt)
}
