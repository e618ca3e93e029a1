package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/internal/services"
)

type locationMessage struct {
	DriverID       string    `json:"driver_id"`
	TrackingNumber string    `json:"tracking_number"`
	Lat            float64   `json:"lat"`
	Lon            float64   `json:"lon"`
	Timestamp      time.Time `json:"timestamp"`
}

// LocationConsumer drains the driver-location queue into the broadcaster.
// It lets fleet gateways publish GPS ticks through the broker instead of
// holding a websocket to this service; subscribers see no difference.
type LocationConsumer struct {
	client      *Client
	broadcaster *services.Broadcaster
}

func NewLocationConsumer(client *Client, broadcaster *services.Broadcaster) (*LocationConsumer, error) {
	if client == nil {
		return nil, errors.New("location consumer: client is nil")
	}
	if broadcaster == nil {
		return nil, errors.New("location consumer: broadcaster is nil")
	}
	return &LocationConsumer{client: client, broadcaster: broadcaster}, nil
}

// Run consumes until the context is canceled or the channel closes.
// Malformed and stale messages are acked and dropped: redelivery cannot make
// them valid.
func (c *LocationConsumer) Run(ctx context.Context) error {
	deliveries, err := c.client.Channel().Consume(LocationQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", LocationQueue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("location consumer: channel closed")
			}

			var msg locationMessage
			if err := json.Unmarshal(delivery.Body, &msg); err != nil {
				log.Printf("location consumer: malformed message dropped: err=%v", err)
				_ = delivery.Ack(false)
				continue
			}

			update := domain.DriverLocationUpdate{
				DriverID:       msg.DriverID,
				TrackingNumber: msg.TrackingNumber,
				Location:       domain.Coordinate{Lat: msg.Lat, Lon: msg.Lon},
				Timestamp:      msg.Timestamp,
			}

			if err := c.broadcaster.PublishLocation(update); err != nil {
				if errors.Is(err, domain.ErrStaleUpdate) {
					log.Printf("location consumer: stale update dropped: driver=%s tracking=%s", msg.DriverID, msg.TrackingNumber)
				} else {
					log.Printf("location consumer: publish failed: err=%v", err)
				}
			}
			_ = delivery.Ack(false)
		}
	}
}
