// Package gameserver owns the network boundary: websocket ingress, the
// subscription registry and the HTTP auth/admin surface.
package gameserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/udisondev/gridgo/internal/auth"
	"github.com/udisondev/gridgo/internal/config"
	"github.com/udisondev/gridgo/internal/db"
	"github.com/udisondev/gridgo/internal/model"
	"github.com/udisondev/gridgo/internal/tick"
)

// Server hosts the push channel and the HTTP API around the simulation
// core.
type Server struct {
	cfg      config.Server
	manager  *ClientManager
	queue    *tick.IntentQueue
	engine   *tick.Engine
	gateway  *db.Gateway
	zones    *db.ZoneRepository
	entities *db.EntityRepository
	auth     *auth.Service

	upgrader websocket.Upgrader

	// rootCtx outlives individual requests; websocket read loops and
	// their DB lookups hang off it so they end with the server, not
	// with the upgrade request.
	rootCtx context.Context
}

// NewServer wires the network surface around the core components.
func NewServer(cfg config.Server, manager *ClientManager, queue *tick.IntentQueue, engine *tick.Engine, gateway *db.Gateway, zones *db.ZoneRepository, entities *db.EntityRepository, authSvc *auth.Service) *Server {
	return &Server{
		cfg:      cfg,
		manager:  manager,
		queue:    queue,
		engine:   engine,
		gateway:  gateway,
		zones:    zones,
		entities: entities,
		auth:     authSvc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		rootCtx: context.Background(),
	}
}

// Routes builds the HTTP router.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/ws", s.handleWS)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", s.withPlayer(s.handleLogout)).Methods(http.MethodPost)
	api.HandleFunc("/auth/me", s.withPlayer(s.handleMe)).Methods(http.MethodGet)

	api.HandleFunc("/zones", s.withPlayer(s.handleListZones)).Methods(http.MethodGet)
	api.HandleFunc("/zones", s.withDebug(s.handleCreateZone)).Methods(http.MethodPost)
	api.HandleFunc("/zones/{id}", s.withPlayer(s.handleGetZone)).Methods(http.MethodGet)
	api.HandleFunc("/zones/{id}", s.withDebug(s.handleDeleteZone)).Methods(http.MethodDelete)

	debug := api.PathPrefix("/debug").Subrouter()
	debug.HandleFunc("/tick", s.withDebug(s.handleTickStatus)).Methods(http.MethodGet)
	debug.HandleFunc("/tick/stats", s.withDebug(s.handleTickStats)).Methods(http.MethodGet)
	debug.HandleFunc("/tick/pause", s.withDebug(s.handleTickPause)).Methods(http.MethodPost)
	debug.HandleFunc("/tick/resume", s.withDebug(s.handleTickResume)).Methods(http.MethodPost)
	debug.HandleFunc("/tick/step", s.withDebug(s.handleTickStep)).Methods(http.MethodPost)
	debug.HandleFunc("/zones/{id}/state", s.withDebug(s.handleZoneState)).Methods(http.MethodGet)
	debug.HandleFunc("/zones/{id}/entities", s.withDebug(s.handleZoneEntities)).Methods(http.MethodGet)
	debug.HandleFunc("/connections", s.withDebug(s.handleConnections)).Methods(http.MethodGet)
	debug.HandleFunc("/entities", s.withDebug(s.handleCreateEntity)).Methods(http.MethodPost)
	debug.HandleFunc("/entities/{id}", s.withDebug(s.handleGetEntity)).Methods(http.MethodGet)
	debug.HandleFunc("/entities/{id}", s.withDebug(s.handleUpdateEntity)).Methods(http.MethodPatch)
	debug.HandleFunc("/entities/{id}", s.withDebug(s.handleDeleteEntity)).Methods(http.MethodDelete)

	return r
}

// Start serves HTTP until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.rootCtx = ctx

	httpServer := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	slog.Info("game server listening", "addr", s.cfg.Addr())
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleWS authenticates the handshake, registers the connection and
// runs the read loop until the client goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	player, err := s.auth.Authenticate(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "player", player.ID, "error", err)
		return
	}

	client := newClient(conn, player.ID, player.Username, s.cfg.SendQueueSize, s.cfg.WriteTimeout())
	client.connID = s.manager.Register(player.ID, client)
	go client.writePump()

	slog.Info("player connected", "player", player.ID, "username", player.Username, "conn", client.connID)
	s.handleClient(s.rootCtx, client)
}

// handleHealth reports liveness and tick engine status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"tick_state":  s.engine.StateName(),
		"tick_number": s.engine.TickNumber(),
		"connections": s.manager.Count(),
	})
}

// withPlayer authenticates the request and passes the player through.
func (s *Server) withPlayer(next func(http.ResponseWriter, *http.Request, *model.Player)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		player, err := s.auth.Authenticate(r.Context(), bearerToken(r))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next(w, r, player)
	}
}

// withDebug additionally requires the debug role.
func (s *Server) withDebug(next func(http.ResponseWriter, *http.Request, *model.Player)) http.HandlerFunc {
	return s.withPlayer(func(w http.ResponseWriter, r *http.Request, player *model.Player) {
		if !s.auth.HasDebug(player) {
			writeError(w, http.StatusForbidden, "debug access required")
			return
		}
		next(w, r, player)
	})
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return r.URL.Query().Get("token")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"detail": message})
}
