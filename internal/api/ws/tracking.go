package ws

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"delivery-tracking-service/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The tracking channel is a public read-mostly stream; cross-origin
	// browser clients are expected.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// TrackingHandler upgrades subscriber connections and relays their
// subscribe/unsubscribe messages to the broadcaster. One goroutine reads
// control messages; a second one writes pushes. Teardown is detected by the
// read loop and removes the connection from every subscription.
type TrackingHandler struct {
	Broadcaster *services.Broadcaster
}

func (h *TrackingHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	tc := newTrackerConn(conn)
	go tc.writePump()
	h.readPump(tc)
}

func (h *TrackingHandler) readPump(tc *trackerConn) {
	defer func() {
		h.Broadcaster.Disconnect(tc.ID())
		tc.close()
		_ = tc.conn.Close()
	}()

	tc.conn.SetReadLimit(maxMessageSize)
	_ = tc.conn.SetReadDeadline(time.Now().Add(pongWait))
	tc.conn.SetPongHandler(func(string) error {
		return tc.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMessage
		if err := tc.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("tracking connection closed unexpectedly: conn=%s err=%v", tc.ID(), err)
			}
			return
		}

		if msg.TrackingNumber == "" {
			tc.enqueue(ServerMessage{Type: TypeError, Error: "tracking_number is required"})
			continue
		}

		switch msg.Type {
		case TypeSubscribe:
			h.Broadcaster.Subscribe(tc, msg.TrackingNumber)
			tc.enqueue(ServerMessage{Type: TypeSubscribed, TrackingNumber: msg.TrackingNumber})
		case TypeUnsubscribe:
			h.Broadcaster.Unsubscribe(tc.ID(), msg.TrackingNumber)
			tc.enqueue(ServerMessage{Type: TypeUnsubscribed, TrackingNumber: msg.TrackingNumber})
		default:
			tc.enqueue(ServerMessage{Type: TypeError, Error: "unknown message type"})
		}
	}
}
