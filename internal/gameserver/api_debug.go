package gameserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/udisondev/gridgo/internal/db"
	"github.com/udisondev/gridgo/internal/model"
)

type entityResponse struct {
	ID       uuid.UUID       `json:"id"`
	ZoneID   uuid.UUID       `json:"zone_id"`
	X        int             `json:"x"`
	Y        int             `json:"y"`
	Width    int             `json:"width"`
	Height   int             `json:"height"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

func toEntityResponse(e *model.Entity) entityResponse {
	return entityResponse{
		ID:       e.ID,
		ZoneID:   e.ZoneID,
		X:        e.X,
		Y:        e.Y,
		Width:    e.Width,
		Height:   e.Height,
		Metadata: e.Metadata,
	}
}

type entityCreateRequest struct {
	ZoneID   uuid.UUID       `json:"zone_id"`
	X        int             `json:"x"`
	Y        int             `json:"y"`
	Width    *int            `json:"width,omitempty"`
	Height   *int            `json:"height,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

type entityUpdateRequest struct {
	X        *int            `json:"x,omitempty"`
	Y        *int            `json:"y,omitempty"`
	Width    *int            `json:"width,omitempty"`
	Height   *int            `json:"height,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

func (s *Server) handleTickStatus(w http.ResponseWriter, _ *http.Request, _ *model.Player) {
	writeJSON(w, http.StatusOK, map[string]any{
		"tick_number":      s.engine.TickNumber(),
		"state":            s.engine.StateName(),
		"tick_interval_ms": s.engine.Interval().Milliseconds(),
	})
}

func (s *Server) handleTickStats(w http.ResponseWriter, _ *http.Request, _ *model.Player) {
	stats := s.engine.RecentStats()
	out := make([]map[string]any, 0, len(stats))
	for _, st := range stats {
		out = append(out, map[string]any{
			"tick_number":       st.TickNumber,
			"duration_ms":       float64(st.Duration.Microseconds()) / 1000,
			"zones_processed":   st.ZonesProcessed,
			"zone_errors":       st.ZoneErrors,
			"intents_processed": st.IntentsProcessed,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": out})
}

func (s *Server) handleTickPause(w http.ResponseWriter, _ *http.Request, _ *model.Player) {
	s.engine.Pause()
	writeJSON(w, http.StatusOK, map[string]string{"state": s.engine.StateName()})
}

func (s *Server) handleTickResume(w http.ResponseWriter, _ *http.Request, _ *model.Player) {
	s.engine.Resume()
	writeJSON(w, http.StatusOK, map[string]string{"state": s.engine.StateName()})
}

func (s *Server) handleTickStep(w http.ResponseWriter, _ *http.Request, _ *model.Player) {
	s.engine.Step()
	writeJSON(w, http.StatusOK, map[string]any{"state": s.engine.StateName(), "tick_number": s.engine.TickNumber()})
}

// handleZoneState inspects a zone through the same per-zone
// transactional read path the tick pipeline uses.
func (s *Server) handleZoneState(w http.ResponseWriter, r *http.Request, _ *model.Player) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid zone id")
		return
	}

	var (
		zone     *model.Zone
		entities []model.Entity
	)
	err := s.gateway.WithZoneTx(r.Context(), func(tx *db.ZoneTx) error {
		var err error
		if zone, err = tx.Zone(r.Context(), id); err != nil {
			return err
		}
		entities, err = tx.Entities(r.Context(), id)
		return err
	})
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "zone not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "inspecting zone failed")
		return
	}

	out := make([]entityResponse, 0, len(entities))
	for i := range entities {
		out = append(out, toEntityResponse(&entities[i]))
	}
	resp := toZoneResponse(zone)
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       resp.ID,
		"name":     resp.Name,
		"width":    resp.Width,
		"height":   resp.Height,
		"metadata": resp.Metadata,
		"entities": out,
	})
}

func (s *Server) handleConnections(w http.ResponseWriter, _ *http.Request, _ *model.Player) {
	infos := s.manager.Snapshot()
	out := make([]map[string]any, 0, len(infos))
	for _, info := range infos {
		entry := map[string]any{
			"player_id":     info.PlayerID,
			"connection_id": info.ConnID,
		}
		if info.ZoneID != nil {
			entry["zone_id"] = *info.ZoneID
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{"connections": out})
}

// handleZoneEntities lists a zone's entities, optionally restricted to
// those overlapping the rectangle spanned by the x1/y1/x2/y2 query
// corners. Without x2 and y2 the whole zone is returned.
func (s *Server) handleZoneEntities(w http.ResponseWriter, r *http.Request, _ *model.Player) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid zone id")
		return
	}

	if _, err := s.zones.Get(r.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "zone not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "loading zone failed")
		return
	}

	entities, err := s.gateway.ZoneEntities(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing entities failed")
		return
	}

	x1, _, err := queryInt(r, "x1")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	y1, _, err := queryInt(r, "y1")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	x2, hasX2, err := queryInt(r, "x2")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	y2, hasY2, err := queryInt(r, "y2")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if hasX2 && hasY2 {
		entities = entitiesInArea(entities, x1, y1, x2, y2)
	}

	out := make([]entityResponse, 0, len(entities))
	for i := range entities {
		out = append(out, toEntityResponse(&entities[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"entities": out})
}

// handleGetEntity inspects a single entity's state.
func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request, _ *model.Player) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid entity id")
		return
	}
	entity, err := s.entities.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "entity not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "loading entity failed")
		return
	}
	writeJSON(w, http.StatusOK, toEntityResponse(entity))
}

// entitiesInArea keeps the entities overlapping the rectangle between
// the corners (x1, y1) and (x2, y2).
func entitiesInArea(entities []model.Entity, x1, y1, x2, y2 int) []model.Entity {
	out := make([]model.Entity, 0, len(entities))
	for i := range entities {
		if entities[i].Overlaps(x1, y1, x2-x1, y2-y1) {
			out = append(out, entities[i])
		}
	}
	return out
}

func queryInt(r *http.Request, name string) (int, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("query parameter %s must be an integer", name)
	}
	return v, true, nil
}

func (s *Server) handleCreateEntity(w http.ResponseWriter, r *http.Request, _ *model.Player) {
	var req entityCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	zone, err := s.zones.Get(r.Context(), req.ZoneID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "zone not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "loading zone failed")
		return
	}

	width, height := 1, 1
	if req.Width != nil {
		width = *req.Width
	}
	if req.Height != nil {
		height = *req.Height
	}
	if width < 0 || height < 0 {
		writeError(w, http.StatusBadRequest, "width and height must not be negative")
		return
	}

	entity, err := s.entities.Create(r.Context(), zone, req.X, req.Y, width, height, req.Metadata)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toEntityResponse(entity))
}

func (s *Server) handleUpdateEntity(w http.ResponseWriter, r *http.Request, _ *model.Player) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid entity id")
		return
	}

	var req entityUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	current, err := s.entities.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "entity not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "loading entity failed")
		return
	}

	zone, err := s.zones.Get(r.Context(), current.ZoneID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "loading zone failed")
		return
	}

	entity, err := s.entities.Update(r.Context(), zone, id, req.X, req.Y, req.Width, req.Height, req.Metadata)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toEntityResponse(entity))
}

func (s *Server) handleDeleteEntity(w http.ResponseWriter, r *http.Request, _ *model.Player) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid entity id")
		return
	}
	if err := s.entities.Delete(r.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "entity not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "deleting entity failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
