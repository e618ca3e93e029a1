package ports

import (
	"context"
	"time"

	"delivery-tracking-service/internal/domain"
)

// Port: durable storage for order status history and route metadata.
//
// AppendStatus must update history and current status atomically and return
// domain.ErrUnknownOrder for tracking numbers that were never created.
// GetOrder returns domain.ErrNotFound for absent orders.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, trackingNumber string) (*domain.Order, error)
	AppendStatus(ctx context.Context, trackingNumber string, status domain.OrderStatus, message string, at time.Time) error
	// AttachRoute stores route metadata against the order; idempotent overwrite.
	AttachRoute(ctx context.Context, trackingNumber string, route *domain.RouteResult) error
}
