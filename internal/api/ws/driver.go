package ws

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/internal/services"
)

// DriverHandler upgrades driver connections and feeds their GPS ticks into
// the broadcaster. Each accepted tick may also progress the order status by
// proximity to the destination. Stale ticks are acked as "ignored" so the
// driver client can resynchronize without treating the drop as a failure.
type DriverHandler struct {
	Broadcaster *services.Broadcaster
	Orders      *services.OrderService
}

func (h *DriverHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg DriverMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("driver connection closed unexpectedly: err=%v", err)
			}
			return
		}

		if msg.DriverID == "" || msg.TrackingNumber == "" {
			h.reply(conn, ServerMessage{Type: TypeError, Error: "driver_id and tracking_number are required"})
			continue
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = time.Now().UTC()
		}

		update := domain.DriverLocationUpdate{
			DriverID:       msg.DriverID,
			TrackingNumber: msg.TrackingNumber,
			Location:       domain.Coordinate{Lat: msg.Lat, Lon: msg.Lon},
			Timestamp:      msg.Timestamp,
		}

		if err := h.Broadcaster.PublishLocation(update); err != nil {
			if errors.Is(err, domain.ErrStaleUpdate) {
				log.Printf("stale driver update dropped: driver=%s tracking=%s", msg.DriverID, msg.TrackingNumber)
				h.reply(conn, ServerMessage{Type: TypeAck, TrackingNumber: msg.TrackingNumber, Result: "ignored"})
				continue
			}
			log.Printf("publish location failed: %v", err)
			h.reply(conn, ServerMessage{Type: TypeError, Error: "publish failed"})
			continue
		}

		if h.Orders != nil {
			if status, changed, err := h.Orders.ProgressByProximity(r.Context(), msg.TrackingNumber, update.Location); err != nil {
				if !errors.Is(err, domain.ErrNotFound) {
					log.Printf("proximity progression failed: tracking=%s err=%v", msg.TrackingNumber, err)
				}
			} else if changed {
				log.Printf("order progressed by proximity: tracking=%s status=%s", msg.TrackingNumber, status)
			}
		}

		h.reply(conn, ServerMessage{Type: TypeAck, TrackingNumber: msg.TrackingNumber, Result: "accepted"})
	}
}

func (h *DriverHandler) reply(conn *websocket.Conn, msg ServerMessage) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("driver reply failed: %v", err)
	}
}
