package gameserver

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/udisondev/gridgo/internal/tick"
)

// ErrStaleConnection is returned when an operation carries a connection
// id that no longer matches the player's registered connection. Stale
// handlers get a no-op, never a side effect on the newer session.
var ErrStaleConnection = errors.New("stale connection id")

// ClientSink is the outbound side of one connection as the registry
// sees it: a bounded send plus a best-effort close.
type ClientSink interface {
	tick.Sink
	Close()
}

// connection is the registry's record of one live connection.
type connection struct {
	playerID uuid.UUID
	connID   uint64
	zoneID   *uuid.UUID
	sink     ClientSink
}

// ConnectionInfo is a read-only snapshot of one connection for the
// admin surface.
type ConnectionInfo struct {
	PlayerID uuid.UUID
	ConnID   uint64
	ZoneID   *uuid.UUID
}

// ClientManager is the subscription registry: players to connections,
// connections to zones, zones to subscribers. All mutations are
// serialized under one mutex; reads hand out snapshots. Every
// connection-scoped mutation is gated on the connection id, which makes
// disconnect idempotent and keeps stale handlers away from newer
// sessions.
type ClientManager struct {
	mu         sync.Mutex
	nextConnID uint64
	byPlayer   map[uuid.UUID]*connection
	byZone     map[uuid.UUID]map[uint64]*connection
}

// NewClientManager creates an empty registry.
func NewClientManager() *ClientManager {
	return &ClientManager{
		byPlayer: make(map[uuid.UUID]*connection),
		byZone:   make(map[uuid.UUID]map[uint64]*connection),
	}
}

// Register installs a new connection for a player and returns its fresh
// process-unique connection id. A prior connection of the same player is
// atomically unregistered and its sink closed best-effort: the newer
// connection always supersedes.
func (cm *ClientManager) Register(playerID uuid.UUID, sink ClientSink) uint64 {
	cm.mu.Lock()
	prior := cm.byPlayer[playerID]
	if prior != nil {
		cm.removeLocked(prior)
	}
	cm.nextConnID++
	conn := &connection{playerID: playerID, connID: cm.nextConnID, sink: sink}
	cm.byPlayer[playerID] = conn
	connID := conn.connID
	liveConnections.Set(float64(len(cm.byPlayer)))
	cm.mu.Unlock()

	if prior != nil {
		slog.Info("superseding prior connection", "player", playerID, "prior_conn", prior.connID, "new_conn", connID)
		prior.sink.Close()
	}
	return connID
}

// Subscribe moves the connection into the target zone, leaving any prior
// zone. Valid only while the stored connection id matches.
func (cm *ClientManager) Subscribe(playerID uuid.UUID, connID uint64, zoneID uuid.UUID) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	conn := cm.byPlayer[playerID]
	if conn == nil || conn.connID != connID {
		return ErrStaleConnection
	}

	cm.unsubscribeLocked(conn)
	conn.zoneID = &zoneID
	zone, ok := cm.byZone[zoneID]
	if !ok {
		zone = make(map[uint64]*connection)
		cm.byZone[zoneID] = zone
	}
	zone[connID] = conn
	return nil
}

// SubscribedZone returns the zone the connection is currently bound to.
func (cm *ClientManager) SubscribedZone(playerID uuid.UUID, connID uint64) (uuid.UUID, bool) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	conn := cm.byPlayer[playerID]
	if conn == nil || conn.connID != connID || conn.zoneID == nil {
		return uuid.Nil, false
	}
	return *conn.zoneID, true
}

// Disconnect removes the connection iff the stored connection id still
// matches; otherwise it is a no-op. Safe to call any number of times.
func (cm *ClientManager) Disconnect(playerID uuid.UUID, connID uint64) bool {
	cm.mu.Lock()
	conn := cm.byPlayer[playerID]
	if conn == nil || conn.connID != connID {
		cm.mu.Unlock()
		return false
	}
	cm.removeLocked(conn)
	liveConnections.Set(float64(len(cm.byPlayer)))
	cm.mu.Unlock()

	conn.sink.Close()
	slog.Info("connection disconnected", "player", playerID, "conn", connID)
	return true
}

// SubscribedZoneIDs returns a snapshot of all zones that currently have
// at least one subscriber.
func (cm *ClientManager) SubscribedZoneIDs() []uuid.UUID {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(cm.byZone))
	for id, conns := range cm.byZone {
		if len(conns) > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// SubscribersOf returns a snapshot of a zone's subscribers for fanout.
func (cm *ClientManager) SubscribersOf(zoneID uuid.UUID) []tick.Subscriber {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	conns := cm.byZone[zoneID]
	subs := make([]tick.Subscriber, 0, len(conns))
	for _, conn := range conns {
		subs = append(subs, tick.Subscriber{
			PlayerID: conn.playerID,
			ConnID:   conn.connID,
			Sink:     conn.sink,
		})
	}
	return subs
}

// Snapshot returns all current connections for the admin surface.
func (cm *ClientManager) Snapshot() []ConnectionInfo {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	infos := make([]ConnectionInfo, 0, len(cm.byPlayer))
	for _, conn := range cm.byPlayer {
		info := ConnectionInfo{PlayerID: conn.playerID, ConnID: conn.connID}
		if conn.zoneID != nil {
			z := *conn.zoneID
			info.ZoneID = &z
		}
		infos = append(infos, info)
	}
	return infos
}

// Count returns the number of live connections.
func (cm *ClientManager) Count() int {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return len(cm.byPlayer)
}

// removeLocked unbinds a connection from both indexes. Caller holds mu.
func (cm *ClientManager) removeLocked(conn *connection) {
	cm.unsubscribeLocked(conn)
	delete(cm.byPlayer, conn.playerID)
}

// unsubscribeLocked removes the connection from its zone, dropping the
// zone's subscriber set when it empties. Caller holds mu.
func (cm *ClientManager) unsubscribeLocked(conn *connection) {
	if conn.zoneID == nil {
		return
	}
	zone := cm.byZone[*conn.zoneID]
	delete(zone, conn.connID)
	if len(zone) == 0 {
		delete(cm.byZone, *conn.zoneID)
	}
	conn.zoneID = nil
}
