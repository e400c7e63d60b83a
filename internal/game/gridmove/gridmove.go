// Package gridmove is the reference game module: players move, create and
// delete entities on the grid via intents. It doubles as the executable
// documentation of the module contract and as the module the test suite
// drives the framework with.
package gridmove

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/udisondev/gridgo/internal/game"
	"github.com/udisondev/gridgo/internal/model"
)

func init() {
	game.Register("gridmove", func() game.Module { return New() })
}

// Module implements game.Module with basic movement rules.
//
// Supported intents:
//
//	{"action": "move", "entity_id": "...", "dx": 1, "dy": 0}
//	{"action": "create_entity", "x": 0, "y": 0, "width": 1, "height": 1, "metadata": {...}}
//	{"action": "delete_entity", "entity_id": "..."}
//
// When ViewRadius is positive, GetPlayerState redacts entities further
// than ViewRadius (Chebyshev distance) from the player's own entity; the
// player's entity is the one whose metadata carries a matching
// "player_id". With ViewRadius zero the filter is the identity.
type Module struct {
	framework game.Framework

	// ViewRadius enables fog of war when positive.
	ViewRadius int
}

// New returns a module with fog of war disabled.
func New() *Module {
	return &Module{}
}

type intentBody struct {
	Action   string          `json:"action"`
	EntityID string          `json:"entity_id"`
	DX       *int            `json:"dx"`
	DY       *int            `json:"dy"`
	X        *int            `json:"x"`
	Y        *int            `json:"y"`
	Width    *int            `json:"width"`
	Height   *int            `json:"height"`
	Metadata json.RawMessage `json:"metadata"`
}

// OnInit stores the framework handle.
func (m *Module) OnInit(framework game.Framework) error {
	m.framework = framework
	slog.Info("gridmove module initialized", "view_radius", m.ViewRadius)
	return nil
}

// OnTick applies movement, creation and deletion intents in order.
// Malformed intents are skipped; one player's bad intent never aborts
// the zone.
func (m *Module) OnTick(_ context.Context, zoneID uuid.UUID, entities []model.Entity, intents []model.Intent, _ uint64) (*game.TickResult, error) {
	result := &game.TickResult{}

	byID := make(map[uuid.UUID]*model.Entity, len(entities))
	for i := range entities {
		byID[entities[i].ID] = &entities[i]
	}

	for _, intent := range intents {
		var body intentBody
		if err := json.Unmarshal(intent.Data, &body); err != nil {
			slog.Debug("skipping malformed intent", "player", intent.PlayerID, "zone", zoneID, "error", err)
			continue
		}

		switch body.Action {
		case "move":
			if update, ok := m.handleMove(body, byID); ok {
				result.Updates = append(result.Updates, update)
			}
		case "create_entity":
			if create, ok := m.handleCreate(body); ok {
				result.Creates = append(result.Creates, create)
			}
		case "delete_entity":
			if id, ok := parseEntityID(body.EntityID, byID); ok {
				result.Deletes = append(result.Deletes, id)
			}
		default:
			slog.Debug("unknown intent action", "action", body.Action, "player", intent.PlayerID)
		}
	}

	if len(result.Creates) > 0 {
		result.Extras = map[string]any{
			"events": []map[string]any{
				{"type": "entities_created", "count": len(result.Creates)},
			},
		}
	}
	return result, nil
}

func (m *Module) handleMove(body intentBody, byID map[uuid.UUID]*model.Entity) (game.EntityUpdate, bool) {
	id, ok := parseEntityID(body.EntityID, byID)
	if !ok || body.DX == nil || body.DY == nil {
		return game.EntityUpdate{}, false
	}

	entity := byID[id]
	newX := entity.X + *body.DX
	newY := entity.Y + *body.DY
	if newX < 0 || newY < 0 {
		return game.EntityUpdate{}, false
	}

	// Keep the in-memory copy current so later intents in the same tick
	// move from the already-moved position.
	entity.X = newX
	entity.Y = newY

	return game.EntityUpdate{ID: id, X: &newX, Y: &newY}, true
}

func (m *Module) handleCreate(body intentBody) (game.EntityCreate, bool) {
	x, y := 0, 0
	width, height := 1, 1
	if body.X != nil {
		x = *body.X
	}
	if body.Y != nil {
		y = *body.Y
	}
	if body.Width != nil {
		width = *body.Width
	}
	if body.Height != nil {
		height = *body.Height
	}
	if x < 0 || y < 0 || width < 0 || height < 0 {
		return game.EntityCreate{}, false
	}
	return game.EntityCreate{X: x, Y: y, Width: width, Height: height, Metadata: body.Metadata}, true
}

func parseEntityID(raw string, byID map[uuid.UUID]*model.Entity) (uuid.UUID, bool) {
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	if _, ok := byID[id]; !ok {
		return uuid.Nil, false
	}
	return id, true
}

// GetPlayerState applies fog of war when ViewRadius is positive,
// otherwise passes the base state through with the viewer stamped in.
func (m *Module) GetPlayerState(zoneID, playerID uuid.UUID, base *game.BaseState) (any, error) {
	filtered := &game.BaseState{
		ZoneID:     base.ZoneID,
		TickNumber: base.TickNumber,
		Entities:   base.Entities,
		Extras:     make(map[string]any, len(base.Extras)+1),
	}
	for k, v := range base.Extras {
		filtered.Extras[k] = v
	}
	filtered.Extras["viewer_id"] = playerID

	if m.ViewRadius <= 0 {
		return filtered, nil
	}

	own, ok := ownEntity(playerID, base.Entities)
	if !ok {
		// Player has no entity in the zone: they see nothing.
		filtered.Entities = nil
		return filtered, nil
	}

	visible := make([]game.EntityView, 0, len(base.Entities))
	for _, e := range base.Entities {
		if chebyshev(e.X-own.X, e.Y-own.Y) <= m.ViewRadius {
			visible = append(visible, e)
		}
	}
	filtered.Entities = visible
	return filtered, nil
}

func ownEntity(playerID uuid.UUID, entities []game.EntityView) (game.EntityView, bool) {
	for _, e := range entities {
		if len(e.Metadata) == 0 {
			continue
		}
		var meta struct {
			PlayerID string `json:"player_id"`
		}
		if err := json.Unmarshal(e.Metadata, &meta); err != nil {
			continue
		}
		if meta.PlayerID == playerID.String() {
			return e, true
		}
	}
	return game.EntityView{}, false
}

func chebyshev(dx, dy int) int {
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}
