package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/gridgo/internal/model"
)

// AccountRepository stores players and their auth sessions. This is the
// external collaborator surface of the core: the simulation only ever
// sees player ids.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new account repository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// CreatePlayer inserts a new player. A duplicate username returns
// ErrConflict. Usernames are case-insensitive.
func (r *AccountRepository) CreatePlayer(ctx context.Context, username, passwordHash string, isDebug bool) (*model.Player, error) {
	username = strings.ToLower(username)
	id := uuid.New()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO players (id, username, password_hash, is_debug)
		 VALUES ($1, $2, $3, $4)`,
		id, username, passwordHash, isDebug)
	if err != nil {
		return nil, classify(fmt.Errorf("creating player %q: %w", username, err))
	}
	return r.GetPlayer(ctx, id)
}

// GetPlayer loads a player by id.
func (r *AccountRepository) GetPlayer(ctx context.Context, id uuid.UUID) (*model.Player, error) {
	return scanPlayer(r.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, is_debug, created_at, last_login
		 FROM players WHERE id = $1`, id))
}

// GetPlayerByUsername loads a player by username.
func (r *AccountRepository) GetPlayerByUsername(ctx context.Context, username string) (*model.Player, error) {
	return scanPlayer(r.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, is_debug, created_at, last_login
		 FROM players WHERE username = $1`, strings.ToLower(username)))
}

// UpdateLastLogin stamps a successful login.
func (r *AccountRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE players SET last_login = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("updating last login for player %s: %w", id, err)
	}
	return nil
}

// CreateSession stores a freshly issued token. A zero ttl means the
// session never expires.
func (r *AccountRepository) CreateSession(ctx context.Context, playerID uuid.UUID, token string, ttl time.Duration) (*model.Session, error) {
	id := uuid.New()
	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expiresAt = &t
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (id, player_id, token, expires_at)
		 VALUES ($1, $2, $3, $4)`,
		id, playerID, token, expiresAt)
	if err != nil {
		return nil, classify(fmt.Errorf("creating session for player %s: %w", playerID, err))
	}
	return &model.Session{ID: id, PlayerID: playerID, Token: token, CreatedAt: time.Now(), ExpiresAt: expiresAt}, nil
}

// GetSessionByToken looks a session up by token value.
func (r *AccountRepository) GetSessionByToken(ctx context.Context, token string) (*model.Session, error) {
	var s model.Session
	err := r.pool.QueryRow(ctx,
		`SELECT id, player_id, token, created_at, expires_at
		 FROM sessions WHERE token = $1`, token).
		Scan(&s.ID, &s.PlayerID, &s.Token, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		return nil, classify(fmt.Errorf("querying session by token: %w", err))
	}
	return &s, nil
}

// DeleteSession invalidates a token (logout).
func (r *AccountRepository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func scanPlayer(row interface{ Scan(dest ...any) error }) (*model.Player, error) {
	var p model.Player
	err := row.Scan(&p.ID, &p.Username, &p.PasswordHash, &p.IsDebug, &p.CreatedAt, &p.LastLogin)
	if err != nil {
		return nil, classify(fmt.Errorf("scanning player: %w", err))
	}
	return &p, nil
}
