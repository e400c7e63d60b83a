// Package tick drives the simulation: a fixed-cadence engine that drains
// intents, runs the game module per zone under failure isolation and
// broadcasts filtered snapshots to subscribers.
package tick

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/gridgo/internal/game"
	"github.com/udisondev/gridgo/internal/model"
)

// Engine states.
const (
	StateRunning int32 = iota
	StatePaused
	StateStopping
)

// ZoneTx is one scoped transactional session over a single zone.
// Implemented by db.ZoneTx; tests use in-memory fakes.
type ZoneTx interface {
	Zone(ctx context.Context, id uuid.UUID) (*model.Zone, error)
	Entities(ctx context.Context, zoneID uuid.UUID) ([]model.Entity, error)
	ApplyDeltas(ctx context.Context, zone *model.Zone, result *game.TickResult) error
}

// Store opens scoped transactional sessions. A scope commits iff fn
// returns nil; a failing scope rolls back without touching sibling
// scopes.
type Store interface {
	WithZoneTx(ctx context.Context, fn func(tx ZoneTx) error) error
}

// Sink is one subscriber's outbound channel. Send must be bounded: a
// slow client returns an error instead of blocking the fanout.
type Sink interface {
	Send(message any) error
}

// Subscriber identifies one connection subscribed to a zone.
type Subscriber struct {
	PlayerID uuid.UUID
	ConnID   uint64
	Sink     Sink
}

// Subscribers is the engine's view of the subscription registry.
type Subscribers interface {
	// SubscribedZoneIDs returns all zones with at least one subscriber.
	SubscribedZoneIDs() []uuid.UUID
	// SubscribersOf returns a snapshot of a zone's subscribers.
	SubscribersOf(zoneID uuid.UUID) []Subscriber
	// Disconnect removes a connection iff the stored connection id still
	// matches. Reports whether a connection was removed.
	Disconnect(playerID uuid.UUID, connID uint64) bool
}

// Stats describes one completed tick.
type Stats struct {
	TickNumber       uint64
	Duration         time.Duration
	ZonesProcessed   int
	ZoneErrors       int
	IntentsProcessed int
}

const maxStatsHistory = 100

// consecutive GetPlayerState failures after which a subscriber is
// scheduled for disconnect.
const maxFilterFailures = 3

// Engine is the fixed-cadence tick driver.
type Engine struct {
	interval    time.Duration
	parallelism int

	store   Store
	queue   *IntentQueue
	subs    Subscribers
	adapter *game.Adapter

	tickNumber atomic.Uint64
	state      atomic.Int32
	stepCh     chan struct{}
	stopCh     chan struct{}

	statsMu sync.Mutex
	recent  []Stats

	failuresMu     sync.Mutex
	filterFailures map[uint64]int
}

// NewEngine creates a tick engine. parallelism caps how many zone
// pipelines run concurrently within one tick.
func NewEngine(interval time.Duration, parallelism int, store Store, queue *IntentQueue, subs Subscribers, adapter *game.Adapter) *Engine {
	if parallelism <= 0 {
		parallelism = 1
	}
	return &Engine{
		interval:       interval,
		parallelism:    parallelism,
		store:          store,
		queue:          queue,
		subs:           subs,
		adapter:        adapter,
		stepCh:         make(chan struct{}, 1),
		stopCh:         make(chan struct{}),
		filterFailures: make(map[uint64]int),
	}
}

// TickNumber returns the number of the last completed tick.
func (e *Engine) TickNumber() uint64 {
	return e.tickNumber.Load()
}

// State returns the current engine state.
func (e *Engine) State() int32 {
	return e.state.Load()
}

// StateName returns the state as a string for the admin surface.
func (e *Engine) StateName() string {
	switch e.state.Load() {
	case StatePaused:
		return "PAUSED"
	case StateStopping:
		return "STOPPING"
	default:
		return "RUNNING"
	}
}

// Interval returns the configured tick interval.
func (e *Engine) Interval() time.Duration {
	return e.interval
}

// Pause suspends pipeline execution. The cadence loop keeps running so
// timing accounting stays intact.
func (e *Engine) Pause() {
	if e.state.CompareAndSwap(StateRunning, StatePaused) {
		slog.Info("tick engine paused", "tick", e.tickNumber.Load())
	}
}

// Resume continues pipeline execution after a pause. Intents that
// accumulated while paused are drained in a single batch on the next
// tick.
func (e *Engine) Resume() {
	if e.state.CompareAndSwap(StatePaused, StateRunning) {
		slog.Info("tick engine resumed", "tick", e.tickNumber.Load())
	}
}

// Step schedules exactly one pipeline execution while paused.
func (e *Engine) Step() {
	if e.state.Load() != StatePaused {
		return
	}
	select {
	case e.stepCh <- struct{}{}:
	default:
		// A step is already pending.
	}
}

// Stop asks the engine to shut down at the next tick boundary.
func (e *Engine) Stop() {
	if e.state.Swap(StateStopping) != StateStopping {
		close(e.stopCh)
	}
}

// Start runs the cadence loop until the context is cancelled or Stop is
// called. An in-flight tick finishes (or rolls back its zones) before
// Start returns. The loop runs even when the active zone set is empty.
func (e *Engine) Start(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	slog.Info("tick engine started", "interval", e.interval, "parallelism", e.parallelism)

	for {
		select {
		case <-ctx.Done():
			e.state.Store(StateStopping)
			slog.Info("tick engine stopping", "tick", e.tickNumber.Load())
			return ctx.Err()

		case <-e.stopCh:
			slog.Info("tick engine stopped", "tick", e.tickNumber.Load())
			return nil

		case <-e.stepCh:
			if e.state.Load() == StatePaused {
				e.runTick(ctx)
			}

		case <-ticker.C:
			if e.state.Load() != StateRunning {
				continue
			}
			e.runTick(ctx)
		}
	}
}

// runTick executes one tick pipeline over the active zone set. The
// ticker does not buffer missed ticks, so an overrun slips to the next
// cadence boundary instead of bursting.
func (e *Engine) runTick(ctx context.Context) {
	start := time.Now()
	tick := e.tickNumber.Add(1)

	active := e.activeZones()
	observeActiveZones(len(active))

	var (
		mu      sync.Mutex
		errs    int
		intents int
	)

	g := new(errgroup.Group)
	g.SetLimit(e.parallelism)
	for _, zoneID := range active {
		zoneID := zoneID
		g.Go(func() error {
			n, err := e.processZone(ctx, zoneID, tick)
			mu.Lock()
			intents += n
			if err != nil {
				errs++
			}
			mu.Unlock()
			if err != nil {
				// The zone rolled back; siblings are unaffected and the
				// zone is considered again on the next tick.
				slog.Error("zone tick failed", "zone", zoneID, "tick", tick, "error", err)
			}
			return nil
		})
	}
	g.Wait()

	duration := time.Since(start)
	observeTick(duration, errs)
	if duration > e.interval {
		observeSlip()
		slog.Warn("tick overran interval",
			"tick", tick,
			"duration", duration,
			"interval", e.interval)
	}

	e.recordStats(Stats{
		TickNumber:       tick,
		Duration:         duration,
		ZonesProcessed:   len(active),
		ZoneErrors:       errs,
		IntentsProcessed: intents,
	})
}

// activeZones computes subscribed zones ∪ zones with queued intents.
// Zones with neither are skipped entirely, keeping per-tick work
// proportional to the active world, not the whole world.
func (e *Engine) activeZones() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var active []uuid.UUID
	for _, id := range e.subs.SubscribedZoneIDs() {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			active = append(active, id)
		}
	}
	for _, id := range e.queue.ZonesWithPending() {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			active = append(active, id)
		}
	}
	return active
}

// processZone runs one zone's pipeline: load, drain, resolve, apply,
// snapshot, commit, broadcast. Any failure before commit rolls back the
// zone and leaves every other zone untouched. Returns the number of
// intents drained.
func (e *Engine) processZone(ctx context.Context, zoneID uuid.UUID, tick uint64) (int, error) {
	var (
		snapshot []model.Entity
		extras   map[string]any
		drained  int
	)

	err := e.store.WithZoneTx(ctx, func(tx ZoneTx) error {
		zone, err := tx.Zone(ctx, zoneID)
		if err != nil {
			return fmt.Errorf("loading zone: %w", err)
		}

		entities, err := tx.Entities(ctx, zoneID)
		if err != nil {
			return fmt.Errorf("loading entities: %w", err)
		}

		intents := e.queue.Drain(zoneID)
		drained = len(intents)

		result, err := e.adapter.OnTick(ctx, zoneID, entities, intents, tick)
		if err != nil {
			return err
		}

		if err := tx.ApplyDeltas(ctx, zone, result); err != nil {
			return fmt.Errorf("applying deltas: %w", err)
		}

		// Re-read inside the same transaction: the snapshot reflects
		// this tick's creates and deletes, with no one-tick lag.
		snapshot, err = tx.Entities(ctx, zoneID)
		if err != nil {
			return fmt.Errorf("building post-apply snapshot: %w", err)
		}

		extras = result.Extras
		return nil
	})
	if err != nil {
		return drained, err
	}

	e.broadcast(zoneID, tick, snapshot, extras)
	return drained, nil
}

func (e *Engine) recordStats(s Stats) {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	e.recent = append(e.recent, s)
	if len(e.recent) > maxStatsHistory {
		e.recent = e.recent[1:]
	}
}

// RecentStats returns a copy of the last recorded tick statistics.
func (e *Engine) RecentStats() []Stats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	out := make([]Stats, len(e.recent))
	copy(out, e.recent)
	return out
}
