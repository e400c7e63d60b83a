package gameserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/udisondev/gridgo/internal/db"
	"github.com/udisondev/gridgo/internal/model"
	"github.com/udisondev/gridgo/internal/protocol"
)

// handleClient is the per-connection read loop. It owns the disconnect
// path: inner handlers only report errors upward, and the deferred
// Disconnect runs exactly once with this handler's own connection id, so
// a stale handler can never tear down a newer session.
func (s *Server) handleClient(ctx context.Context, c *Client) {
	defer func() {
		s.manager.Disconnect(c.playerID, c.connID)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("connection read failed", "player", c.playerID, "conn", c.connID, "error", err)
			}
			return
		}

		var msg protocol.ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			// Unparseable payload is a protocol violation: close, don't chat.
			slog.Warn("invalid message payload, closing", "player", c.playerID, "conn", c.connID)
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInvalidFramePayloadData, "invalid payload"),
				time.Now().Add(c.writeTimeout))
			return
		}

		switch msg.Type {
		case protocol.TypeSubscribe:
			s.handleSubscribe(ctx, c, msg)
		case protocol.TypeIntent:
			s.handleIntent(c, msg)
		case "":
			c.Send(protocol.NewError("missing message type"))
		default:
			c.Send(protocol.NewError("unknown message type: " + msg.Type))
		}
	}
}

// handleSubscribe validates the target zone and moves the connection
// into it.
func (s *Server) handleSubscribe(ctx context.Context, c *Client, msg protocol.ClientMessage) {
	if msg.ZoneID == "" {
		c.Send(protocol.NewError("missing zone_id"))
		return
	}
	zoneID, err := uuid.Parse(msg.ZoneID)
	if err != nil {
		c.Send(protocol.NewError("invalid zone_id format"))
		return
	}

	if _, err := s.zones.Get(ctx, zoneID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.Send(protocol.NewError("zone not found"))
			return
		}
		slog.Error("zone lookup failed", "zone", zoneID, "error", err)
		c.Send(protocol.NewError("failed to subscribe to zone"))
		return
	}

	if err := s.manager.Subscribe(c.playerID, c.connID, zoneID); err != nil {
		c.Send(protocol.NewError("failed to subscribe to zone"))
		return
	}

	c.Send(protocol.NewSubscribed(zoneID.String()))
	slog.Info("player subscribed", "player", c.playerID, "conn", c.connID, "zone", zoneID)
}

// handleIntent buffers an intent for the player's subscribed zone. The
// acknowledgement is sent only after Enqueue returns, i.e. after the
// intent is durably placed in the queue.
func (s *Server) handleIntent(c *Client, msg protocol.ClientMessage) {
	zoneID, ok := s.manager.SubscribedZone(c.playerID, c.connID)
	if !ok {
		c.Send(protocol.NewError("must subscribe to a zone first"))
		return
	}
	if len(msg.Data) == 0 {
		c.Send(protocol.NewError("missing intent data"))
		return
	}

	s.queue.Enqueue(model.Intent{
		PlayerID:   c.playerID,
		ConnID:     c.connID,
		ZoneID:     zoneID,
		Data:       msg.Data,
		EnqueuedAt: time.Now(),
	})
	intentsReceived.Inc()

	c.Send(protocol.NewIntentReceived())
}
