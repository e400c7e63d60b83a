package gameserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second // must be < pongWait
	maxMsgSize = 64 * 1024
)

var errClientClosed = errors.New("client closed")

// Client is one authenticated websocket connection. All writes go
// through the buffered send channel and a single writePump goroutine, so
// tick fanout, acknowledgements and pings never race on the socket. A
// full channel or an expired deadline fails the send instead of blocking
// the caller.
type Client struct {
	conn     *websocket.Conn
	playerID uuid.UUID
	username string
	connID   uint64

	sendCh    chan []byte
	closeCh   chan struct{}
	closeOnce sync.Once

	writeTimeout time.Duration
}

// newClient wraps an upgraded websocket connection. The connection id is
// assigned by the registry in Register and attached afterwards.
func newClient(conn *websocket.Conn, playerID uuid.UUID, username string, queueSize int, writeTimeout time.Duration) *Client {
	return &Client{
		conn:         conn,
		playerID:     playerID,
		username:     username,
		sendCh:       make(chan []byte, queueSize),
		closeCh:      make(chan struct{}),
		writeTimeout: writeTimeout,
	}
}

// Send marshals a message and queues it for the write pump. The attempt
// is bounded by the write timeout; a slow or closed client returns an
// error so one subscriber can never stall the fanout.
func (c *Client) Send(message any) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshaling message for player %s: %w", c.playerID, err)
	}

	select {
	case <-c.closeCh:
		return errClientClosed
	default:
	}

	timer := time.NewTimer(c.writeTimeout)
	defer timer.Stop()
	select {
	case c.sendCh <- data:
		return nil
	case <-c.closeCh:
		return errClientClosed
	case <-timer.C:
		return fmt.Errorf("send to player %s timed out after %s", c.playerID, c.writeTimeout)
	}
}

// Close shuts the client down. Idempotent; the write pump notices and
// closes the underlying socket.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closeCh)
	})
}

// writePump drains the send channel onto the socket and keeps the
// connection alive with pings. It owns all writes to the socket.
func (c *Client) writePump() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Debug("write failed", "player", c.playerID, "error", err)
				c.Close()
				return
			}

		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}

		case <-c.closeCh:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
