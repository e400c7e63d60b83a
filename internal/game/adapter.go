package game

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/udisondev/gridgo/internal/model"
)

// Adapter is the only component that calls into a game module. It turns
// module panics into errors so that a broken module aborts a single zone
// tick or a single subscriber emission instead of the process.
type Adapter struct {
	module Module
}

// NewAdapter wraps a module and runs its OnInit with the framework handle.
func NewAdapter(module Module, framework Framework) (*Adapter, error) {
	if err := module.OnInit(framework); err != nil {
		return nil, fmt.Errorf("initializing game module: %w", err)
	}
	return &Adapter{module: module}, nil
}

// OnTick invokes the module's tick resolution. A panic or error aborts
// this zone's tick only; the caller rolls the zone back.
func (a *Adapter) OnTick(ctx context.Context, zoneID uuid.UUID, entities []model.Entity, intents []model.Intent, tickNumber uint64) (result *TickResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("game module panic in OnTick for zone %s: %v", zoneID, r)
		}
	}()

	result, err = a.module.OnTick(ctx, zoneID, entities, intents, tickNumber)
	if err != nil {
		return nil, fmt.Errorf("game module OnTick for zone %s: %w", zoneID, err)
	}
	if result == nil {
		result = &TickResult{}
	}
	return result, nil
}

// PlayerState invokes the fog-of-war filter for one subscriber. A panic
// or error skips that subscriber's emission only.
func (a *Adapter) PlayerState(zoneID, playerID uuid.UUID, base *BaseState) (state any, err error) {
	defer func() {
		if r := recover(); r != nil {
			state = nil
			err = fmt.Errorf("game module panic in GetPlayerState for player %s: %v", playerID, r)
		}
	}()

	state, err = a.module.GetPlayerState(zoneID, playerID, base)
	if err != nil {
		return nil, fmt.Errorf("game module GetPlayerState for player %s: %w", playerID, err)
	}
	return state, nil
}
