package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"delivery-tracking-service/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// connIDCounter hands out unique subscriber connection IDs.
var connIDCounter atomic.Uint64

// trackerConn adapts one gorilla websocket connection to the broadcaster's
// LocationConn port. Writes go through a buffered channel drained by a
// single writer goroutine, so pushes from the broadcaster never interleave.
type trackerConn struct {
	id   string
	conn *websocket.Conn
	send chan ServerMessage
	done chan struct{}
}

func newTrackerConn(conn *websocket.Conn) *trackerConn {
	return &trackerConn{
		id:   fmt.Sprintf("sub-%d", connIDCounter.Add(1)),
		conn: conn,
		send: make(chan ServerMessage, sendBuffer),
		done: make(chan struct{}),
	}
}

func (c *trackerConn) ID() string { return c.id }

// PushLocation queues a location update for the writer goroutine. A full
// buffer or a closed connection reports the subscriber dead; the broadcaster
// evicts it and the client has to re-subscribe.
func (c *trackerConn) PushLocation(update domain.DriverLocationUpdate) error {
	msg := ServerMessage{
		Type:           TypeLocationUpdate,
		TrackingNumber: update.TrackingNumber,
		Location: &LocationPayload{
			TrackingNumber: update.TrackingNumber,
			DriverID:       update.DriverID,
			Lat:            update.Location.Lat,
			Lon:            update.Location.Lon,
			Timestamp:      update.Timestamp,
		},
	}

	select {
	case <-c.done:
		return errors.New("connection closed")
	case c.send <- msg:
		return nil
	default:
		return errors.New("send buffer full")
	}
}

// enqueue is like PushLocation for control messages; drops are harmless.
func (c *trackerConn) enqueue(msg ServerMessage) {
	select {
	case <-c.done:
	case c.send <- msg:
	default:
	}
}

// writePump drains the send channel onto the wire and keeps the connection
// alive with pings.
func (c *trackerConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			payload, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *trackerConn) close() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}
