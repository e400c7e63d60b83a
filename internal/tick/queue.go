package tick

import (
	"sync"

	"github.com/google/uuid"

	"github.com/udisondev/gridgo/internal/model"
)

// IntentQueue buffers intents per zone between ticks. Enqueue is safe
// from any number of ingress goroutines; Drain is called by the engine
// at most once per zone per tick. A per-zone mutex makes enqueue and
// drain mutually exclusive, so an intent either makes this tick's drain
// or is preserved intact for the next one.
type IntentQueue struct {
	mu    sync.Mutex
	zones map[uuid.UUID]*zoneQueue
}

type zoneQueue struct {
	mu      sync.Mutex
	intents []model.Intent
}

// NewIntentQueue creates an empty queue.
func NewIntentQueue() *IntentQueue {
	return &IntentQueue{zones: make(map[uuid.UUID]*zoneQueue)}
}

func (q *IntentQueue) zone(zoneID uuid.UUID) *zoneQueue {
	q.mu.Lock()
	defer q.mu.Unlock()
	zq, ok := q.zones[zoneID]
	if !ok {
		zq = &zoneQueue{}
		q.zones[zoneID] = zq
	}
	return zq
}

// Enqueue appends an intent to its zone's buffer. When Enqueue returns,
// the intent is durably placed: the ingress handler must not acknowledge
// the client before this point.
func (q *IntentQueue) Enqueue(intent model.Intent) {
	zq := q.zone(intent.ZoneID)
	zq.mu.Lock()
	zq.intents = append(zq.intents, intent)
	zq.mu.Unlock()
}

// Drain removes and returns all intents enqueued for the zone strictly
// before this call, in enqueue order.
func (q *IntentQueue) Drain(zoneID uuid.UUID) []model.Intent {
	q.mu.Lock()
	zq, ok := q.zones[zoneID]
	q.mu.Unlock()
	if !ok {
		return nil
	}

	zq.mu.Lock()
	intents := zq.intents
	zq.intents = nil
	zq.mu.Unlock()
	return intents
}

// ZonesWithPending returns the ids of all zones that currently have
// buffered intents. Feeds the engine's active zone set.
func (q *IntentQueue) ZonesWithPending() []uuid.UUID {
	q.mu.Lock()
	defer q.mu.Unlock()

	var ids []uuid.UUID
	for id, zq := range q.zones {
		zq.mu.Lock()
		pending := len(zq.intents) > 0
		zq.mu.Unlock()
		if pending {
			ids = append(ids, id)
		}
	}
	return ids
}
