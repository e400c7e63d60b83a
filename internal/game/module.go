// Package game defines the contract between the framework and pluggable
// game-logic modules. The framework owns zones, entities and their
// persistence; a module owns the rules: it turns intents into entity
// deltas each tick and decides what every player is allowed to see.
package game

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/udisondev/gridgo/internal/model"
)

// Framework is the capability set handed to a module in OnInit.
// It allows read-only access to zones and their entities outside of a tick.
type Framework interface {
	Zone(ctx context.Context, id uuid.UUID) (*model.Zone, error)
	ZoneEntities(ctx context.Context, zoneID uuid.UUID) ([]model.Entity, error)
}

// Module is implemented by game-logic modules. Exactly one module is
// loaded per process, resolved by name from the registry at startup.
//
// OnTick is never invoked concurrently for the same zone. GetPlayerState
// may be invoked concurrently for different subscribers of the same tick
// and must be safe for concurrent use; it must not mutate simulation
// state.
type Module interface {
	// OnInit is called once after the module is constructed.
	OnInit(framework Framework) error

	// OnTick resolves one zone for one tick: it receives the zone's
	// current entities and the intents drained for this tick, and returns
	// the deltas to apply. Entity authority stays with the framework;
	// Extras must not carry an entity snapshot.
	OnTick(ctx context.Context, zoneID uuid.UUID, entities []model.Entity, intents []model.Intent, tickNumber uint64) (*TickResult, error)

	// GetPlayerState is the fog-of-war hook: it filters the framework's
	// base state for one subscriber. The returned value is marshalled
	// into the tick envelope as-is.
	GetPlayerState(zoneID, playerID uuid.UUID, base *BaseState) (any, error)
}

// EntityCreate describes a new entity to create in the processed zone.
type EntityCreate struct {
	X        int
	Y        int
	Width    int
	Height   int
	Metadata json.RawMessage
}

// EntityUpdate describes changes to an existing entity.
// Nil fields are left untouched.
type EntityUpdate struct {
	ID       uuid.UUID
	X        *int
	Y        *int
	Width    *int
	Height   *int
	Metadata json.RawMessage
}

// TickResult is a module's answer for one (zone, tick): entity deltas
// plus an opaque extras payload merged into the broadcast base state.
type TickResult struct {
	Creates []EntityCreate
	Updates []EntityUpdate
	Deletes []uuid.UUID
	Extras  map[string]any
}

// EntityView is the wire shape of one entity inside a base state.
type EntityView struct {
	ID       uuid.UUID       `json:"id"`
	X        int             `json:"x"`
	Y        int             `json:"y"`
	Width    int             `json:"width"`
	Height   int             `json:"height"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// ViewOf converts persisted entities into their wire shape.
func ViewOf(entities []model.Entity) []EntityView {
	views := make([]EntityView, 0, len(entities))
	for _, e := range entities {
		views = append(views, EntityView{
			ID:       e.ID,
			X:        e.X,
			Y:        e.Y,
			Width:    e.Width,
			Height:   e.Height,
			Metadata: e.Metadata,
		})
	}
	return views
}

// BaseState is the framework-composed per-zone per-tick state fed to
// GetPlayerState: the authoritative post-apply entity snapshot plus the
// module's extras. It marshals with the extras merged into the top-level
// object, mirroring the push-channel contract.
type BaseState struct {
	ZoneID     uuid.UUID
	TickNumber uint64
	Entities   []EntityView
	Extras     map[string]any
}

// MarshalJSON flattens Extras into the state object. Reserved keys
// (zone_id, tick_number, entities) always win over extras.
func (b *BaseState) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(b.Extras)+3)
	for k, v := range b.Extras {
		out[k] = v
	}
	out["zone_id"] = b.ZoneID
	out["tick_number"] = b.TickNumber
	entities := b.Entities
	if entities == nil {
		entities = []EntityView{}
	}
	out["entities"] = entities
	return json.Marshal(out)
}
