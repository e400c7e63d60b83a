// Package auth owns player accounts and session tokens. The simulation
// core never touches it: the handshake hands the core a player id and
// everything else stays here.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/udisondev/gridgo/internal/config"
	"github.com/udisondev/gridgo/internal/db"
	"github.com/udisondev/gridgo/internal/model"
)

var (
	// ErrInvalidCredentials is returned for a wrong username or password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionExpired is returned for a known but expired token.
	ErrSessionExpired = errors.New("session expired")
)

// bcrypt silently ignores input past 72 bytes; truncate explicitly so
// hashing and verification agree.
const bcryptMaxLen = 72

// Service implements registration, login and token authentication.
type Service struct {
	accounts *db.AccountRepository
	cfg      config.Server
}

// NewService creates an auth service.
func NewService(accounts *db.AccountRepository, cfg config.Server) *Service {
	return &Service{accounts: accounts, cfg: cfg}
}

// Register creates a new player account. A taken username surfaces as
// db.ErrConflict.
func (s *Service) Register(ctx context.Context, username, password string) (*model.Player, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(username) > 50 {
		return nil, fmt.Errorf("username must be 1..50 characters")
	}
	if len(password) < s.cfg.MinPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", s.cfg.MinPasswordLength)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	isDebug := s.cfg.DebugUser != "" && strings.EqualFold(username, s.cfg.DebugUser)
	player, err := s.accounts.CreatePlayer(ctx, username, hash, isDebug)
	if err != nil {
		return nil, err
	}
	return player, nil
}

// Login verifies credentials and issues a fresh session token.
func (s *Service) Login(ctx context.Context, username, password string) (*model.Session, *model.Player, error) {
	player, err := s.accounts.GetPlayerByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if !verifyPassword(password, player.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	token, err := newToken()
	if err != nil {
		return nil, nil, err
	}
	session, err := s.accounts.CreateSession(ctx, player.ID, token, s.cfg.SessionTimeout())
	if err != nil {
		return nil, nil, err
	}

	if err := s.accounts.UpdateLastLogin(ctx, player.ID); err != nil {
		return nil, nil, err
	}
	return session, player, nil
}

// Authenticate resolves a token to its player. Unknown tokens map to
// ErrInvalidCredentials, expired ones to ErrSessionExpired.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.Player, error) {
	if token == "" {
		return nil, ErrInvalidCredentials
	}

	session, err := s.accounts.GetSessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if session.IsExpired() {
		return nil, ErrSessionExpired
	}

	return s.accounts.GetPlayer(ctx, session.PlayerID)
}

// Logout invalidates a session token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.accounts.DeleteSession(ctx, token)
}

// HasDebug reports whether the player may use the debug/admin surface.
func (s *Service) HasDebug(player *model.Player) bool {
	if player.IsDebug {
		return true
	}
	return s.cfg.DebugUser != "" && strings.EqualFold(player.Username, s.cfg.DebugUser)
}

func hashPassword(password string) (string, error) {
	b := []byte(password)
	if len(b) > bcryptMaxLen {
		b = b[:bcryptMaxLen]
	}
	hash, err := bcrypt.GenerateFromPassword(b, bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func verifyPassword(password, hash string) bool {
	b := []byte(password)
	if len(b) > bcryptMaxLen {
		b = b[:bcryptMaxLen]
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), b) == nil
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
