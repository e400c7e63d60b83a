package gameserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/udisondev/gridgo/internal/auth"
	"github.com/udisondev/gridgo/internal/db"
	"github.com/udisondev/gridgo/internal/model"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type playerResponse struct {
	ID        uuid.UUID  `json:"id"`
	Username  string     `json:"username"`
	IsDebug   bool       `json:"is_debug"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

type tokenResponse struct {
	Token    string    `json:"token"`
	PlayerID uuid.UUID `json:"player_id"`
}

func toPlayerResponse(p *model.Player) playerResponse {
	return playerResponse{
		ID:        p.ID,
		Username:  p.Username,
		IsDebug:   p.IsDebug,
		CreatedAt: p.CreatedAt,
		LastLogin: p.LastLogin,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	player, err := s.auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, db.ErrConflict) {
			writeError(w, http.StatusConflict, "username already taken")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	slog.Info("player registered", "player", player.ID, "username", player.Username)
	writeJSON(w, http.StatusCreated, toPlayerResponse(player))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, player, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		slog.Error("login failed", "username", req.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: session.Token, PlayerID: player.ID})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, _ *model.Player) {
	if err := s.auth.Logout(r.Context(), bearerToken(r)); err != nil {
		slog.Error("logout failed", "error", err)
		writeError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request, player *model.Player) {
	writeJSON(w, http.StatusOK, toPlayerResponse(player))
}
