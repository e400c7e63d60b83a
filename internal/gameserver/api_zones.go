package gameserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/udisondev/gridgo/internal/db"
	"github.com/udisondev/gridgo/internal/model"
)

type zoneCreateRequest struct {
	Name     string          `json:"name"`
	Width    int             `json:"width"`
	Height   int             `json:"height"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

type zoneResponse struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Width    int             `json:"width"`
	Height   int             `json:"height"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

func toZoneResponse(z *model.Zone) zoneResponse {
	return zoneResponse{ID: z.ID, Name: z.Name, Width: z.Width, Height: z.Height, Metadata: z.Metadata}
}

func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	return id, err == nil
}

func (s *Server) handleListZones(w http.ResponseWriter, r *http.Request, _ *model.Player) {
	zones, err := s.zones.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing zones failed")
		return
	}
	out := make([]zoneResponse, 0, len(zones))
	for i := range zones {
		out = append(out, toZoneResponse(&zones[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"zones": out})
}

func (s *Server) handleGetZone(w http.ResponseWriter, r *http.Request, _ *model.Player) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid zone id")
		return
	}
	zone, err := s.zones.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "zone not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "loading zone failed")
		return
	}
	writeJSON(w, http.StatusOK, toZoneResponse(zone))
}

func (s *Server) handleCreateZone(w http.ResponseWriter, r *http.Request, _ *model.Player) {
	var req zoneCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || len(req.Name) > 100 {
		writeError(w, http.StatusBadRequest, "name must be 1..100 characters")
		return
	}
	if req.Width <= 0 || req.Height <= 0 {
		writeError(w, http.StatusBadRequest, "width and height must be positive")
		return
	}

	zone, err := s.zones.Create(r.Context(), req.Name, req.Width, req.Height, req.Metadata)
	if err != nil {
		if errors.Is(err, db.ErrConflict) {
			writeError(w, http.StatusConflict, "zone name already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "creating zone failed")
		return
	}
	writeJSON(w, http.StatusCreated, toZoneResponse(zone))
}

func (s *Server) handleDeleteZone(w http.ResponseWriter, r *http.Request, _ *model.Player) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid zone id")
		return
	}
	if err := s.zones.Delete(r.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "zone not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "deleting zone failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
