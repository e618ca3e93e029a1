package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"delivery-tracking-service/internal/services"
)

// StatusPublisher emits order status transitions to the events exchange so
// downstream consumers (notifications, analytics) can react without polling.
type StatusPublisher struct {
	client *Client
}

func NewStatusPublisher(client *Client) (*StatusPublisher, error) {
	if client == nil {
		return nil, errors.New("status publisher: client is nil")
	}
	return &StatusPublisher{client: client}, nil
}

func (p *StatusPublisher) PublishStatus(ctx context.Context, event services.StatusEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("publish status: encode event: %w", err)
	}

	routingKey := "order.status." + string(event.Status)
	err = p.client.Channel().PublishWithContext(ctx, EventsExchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("publish status %s: %w", event.TrackingNumber, err)
	}
	return nil
}
