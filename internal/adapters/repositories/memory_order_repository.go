package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"delivery-tracking-service/internal/domain"
)

// MemoryOrderRepository keeps orders in process memory. Used in tests and
// for running the server without a database. Orders are deep-copied on the
// way in and out so callers never share mutable history slices.
type MemoryOrderRepository struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: make(map[string]*domain.Order)}
}

func (r *MemoryOrderRepository) CreateOrder(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.TrackingNumber]; exists {
		return fmt.Errorf("create order %s: %w", order.TrackingNumber, domain.ErrDuplicateOrder)
	}
	r.orders[order.TrackingNumber] = copyOrder(order)
	return nil
}

func (r *MemoryOrderRepository) GetOrder(_ context.Context, trackingNumber string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[trackingNumber]
	if !ok {
		return nil, fmt.Errorf("get order %s: %w", trackingNumber, domain.ErrNotFound)
	}
	return copyOrder(order), nil
}

func (r *MemoryOrderRepository) AppendStatus(_ context.Context, trackingNumber string, status domain.OrderStatus, message string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[trackingNumber]
	if !ok {
		return fmt.Errorf("append status %s: %w", trackingNumber, domain.ErrUnknownOrder)
	}
	order.Append(status, message, at)
	return nil
}

func (r *MemoryOrderRepository) AttachRoute(_ context.Context, trackingNumber string, route *domain.RouteResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[trackingNumber]
	if !ok {
		return fmt.Errorf("attach route %s: %w", trackingNumber, domain.ErrUnknownOrder)
	}
	cp := *route
	order.Route = &cp
	return nil
}

func copyOrder(order *domain.Order) *domain.Order {
	cp := *order
	cp.History = append([]domain.StatusEntry(nil), order.History...)
	if order.Route != nil {
		route := *order.Route
		cp.Route = &route
	}
	return &cp
}
