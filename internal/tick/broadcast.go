package tick

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/udisondev/gridgo/internal/game"
	"github.com/udisondev/gridgo/internal/model"
	"github.com/udisondev/gridgo/internal/protocol"
)

// broadcast composes the base state for a committed zone tick and emits
// one filtered tick message per subscriber. The filter is always
// invoked: no client ever sees the raw base state unless the module's
// filter chose to return it. Failures are isolated per subscriber.
func (e *Engine) broadcast(zoneID uuid.UUID, tick uint64, snapshot []model.Entity, extras map[string]any) {
	subscribers := e.subs.SubscribersOf(zoneID)
	if len(subscribers) == 0 {
		return
	}

	base := &game.BaseState{
		ZoneID:     zoneID,
		TickNumber: tick,
		Entities:   game.ViewOf(snapshot),
		Extras:     extras,
	}

	for _, sub := range subscribers {
		state, err := e.adapter.PlayerState(zoneID, sub.PlayerID, base)
		if err != nil {
			slog.Warn("player state filter failed, skipping emission",
				"zone", zoneID, "player", sub.PlayerID, "tick", tick, "error", err)
			if e.noteFilterFailure(sub.ConnID) {
				slog.Warn("disconnecting subscriber after repeated filter failures",
					"player", sub.PlayerID, "conn", sub.ConnID)
				e.subs.Disconnect(sub.PlayerID, sub.ConnID)
			}
			continue
		}
		if err := sub.Sink.Send(protocol.NewTick(tick, state)); err != nil {
			slog.Warn("tick emission failed, scheduling disconnect",
				"zone", zoneID, "player", sub.PlayerID, "conn", sub.ConnID, "error", err)
			e.subs.Disconnect(sub.PlayerID, sub.ConnID)
			// The connection is gone; drop its failure count with it.
			e.clearFilterFailures(sub.ConnID)
			continue
		}
		e.clearFilterFailures(sub.ConnID)
	}
}

// noteFilterFailure counts a consecutive GetPlayerState failure and
// reports whether the subscriber crossed the disconnect threshold.
func (e *Engine) noteFilterFailure(connID uint64) bool {
	e.failuresMu.Lock()
	defer e.failuresMu.Unlock()
	e.filterFailures[connID]++
	if e.filterFailures[connID] >= maxFilterFailures {
		delete(e.filterFailures, connID)
		return true
	}
	return false
}

func (e *Engine) clearFilterFailures(connID uint64) {
	e.failuresMu.Lock()
	delete(e.filterFailures, connID)
	e.failuresMu.Unlock()
}
