package ws

import "time"

// Client → server messages on the tracking channel.
const (
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
)

// Server → client messages.
const (
	TypeSubscribed     = "subscribed"
	TypeUnsubscribed   = "unsubscribed"
	TypeLocationUpdate = "location_update"
	TypeAck            = "ack"
	TypeError          = "error"
)

// ClientMessage is what tracking subscribers send.
type ClientMessage struct {
	Type           string `json:"type"`
	TrackingNumber string `json:"tracking_number"`
}

// LocationPayload is the body of a location_update event.
type LocationPayload struct {
	TrackingNumber string    `json:"tracking_number"`
	DriverID       string    `json:"driver_id"`
	Lat            float64   `json:"lat"`
	Lon            float64   `json:"lon"`
	Timestamp      time.Time `json:"timestamp"`
}

// ServerMessage is the envelope for everything the server pushes.
type ServerMessage struct {
	Type           string           `json:"type"`
	TrackingNumber string           `json:"tracking_number,omitempty"`
	Location       *LocationPayload `json:"location,omitempty"`
	Result         string           `json:"result,omitempty"`
	Error          string           `json:"error,omitempty"`
}

// DriverMessage is one GPS tick sent on the driver publish channel.
type DriverMessage struct {
	Type           string    `json:"type"`
	DriverID       string    `json:"driver_id"`
	TrackingNumber string    `json:"tracking_number"`
	Lat            float64   `json:"lat"`
	Lon            float64   `json:"lon"`
	Timestamp      time.Time `json:"timestamp"`
}
