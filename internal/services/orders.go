package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/internal/platform/obs"
	"delivery-tracking-service/internal/ports"
)

// StatusEvent is published after a status transition is persisted.
type StatusEvent struct {
	TrackingNumber string             `json:"tracking_number"`
	Status         domain.OrderStatus `json:"status"`
	Message        string             `json:"message"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

// StatusPublisher forwards status transitions to interested consumers
// (message broker, notification pipeline). Best-effort: publish failures are
// logged, never surfaced to the caller.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, event StatusEvent) error
}

// ProximityThresholds drive automatic status progression from driver
// locations: distances to the order destination in kilometers.
type ProximityThresholds struct {
	// InTransitKm promotes a routed order once the driver is this close.
	InTransitKm float64
	// DeliveredKm completes an in-transit order once the driver is this close.
	DeliveredKm float64
}

func DefaultProximityThresholds() ProximityThresholds {
	return ProximityThresholds{InTransitKm: 5, DeliveredKm: 0.1}
}

// OrderService owns order lifecycle operations over the repository port.
type OrderService struct {
	repo      ports.OrderRepository
	events    StatusPublisher
	proximity ProximityThresholds
	now       func() time.Time
}

func NewOrderService(repo ports.OrderRepository, events StatusPublisher, proximity ProximityThresholds) *OrderService {
	if proximity.InTransitKm <= 0 {
		proximity = DefaultProximityThresholds()
	}
	return &OrderService{
		repo:      repo,
		events:    events,
		proximity: proximity,
		now:       time.Now,
	}
}

// CreateOrder registers a new pending order and returns it with a freshly
// generated tracking number.
func (s *OrderService) CreateOrder(ctx context.Context, city string, weightKg float64, destination domain.Coordinate) (_ *domain.Order, err error) {
	defer obs.Time(ctx, "orders.Create")(&err)

	c, ok := domain.LookupCity(city)
	if !ok {
		return nil, fmt.Errorf("create order: city %q: %w", city, domain.ErrUnknownCity)
	}
	if !destination.Valid() || !c.Bounds.Contains(destination) {
		return nil, fmt.Errorf("create order: destination outside %s: %w", c.Name, domain.ErrOutOfBounds)
	}

	order := domain.NewOrder(domain.NewTrackingNumber(), c.Name, domain.ClassifyWeight(weightKg), destination, s.now().UTC())
	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return order, nil
}

// AppendStatus appends a status transition and updates the current status
// atomically. Fails with domain.ErrUnknownOrder for absent tracking numbers.
func (s *OrderService) AppendStatus(ctx context.Context, trackingNumber string, status domain.OrderStatus, message string) (err error) {
	defer obs.Time(ctx, "orders.AppendStatus")(&err)

	if !domain.ValidStatus(status) {
		return fmt.Errorf("append status: invalid status %q", status)
	}

	at := s.now().UTC()
	if err := s.repo.AppendStatus(ctx, trackingNumber, status, message, at); err != nil {
		return fmt.Errorf("append status %s: %w", trackingNumber, err)
	}

	if s.events != nil {
		event := StatusEvent{TrackingNumber: trackingNumber, Status: status, Message: message, OccurredAt: at}
		if err := s.events.PublishStatus(ctx, event); err != nil {
			log.Printf("status event publish failed: tracking=%s status=%s err=%v", trackingNumber, status, err)
		}
	}
	return nil
}

// GetOrder returns the order with its full status history.
func (s *OrderService) GetOrder(ctx context.Context, trackingNumber string) (*domain.Order, error) {
	order, err := s.repo.GetOrder(ctx, trackingNumber)
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", trackingNumber, err)
	}
	return order, nil
}

// AttachRoute stores computed route metadata against the order. Idempotent
// overwrite.
func (s *OrderService) AttachRoute(ctx context.Context, trackingNumber string, route *domain.RouteResult) error {
	if err := s.repo.AttachRoute(ctx, trackingNumber, route); err != nil {
		return fmt.Errorf("attach route %s: %w", trackingNumber, err)
	}
	return nil
}

// ProgressByProximity advances the order status from the driver's distance
// to the destination: routed orders go in_transit inside InTransitKm,
// in-transit orders are delivered inside DeliveredKm. Returns the new status
// when a transition happened.
func (s *OrderService) ProgressByProximity(ctx context.Context, trackingNumber string, at domain.Coordinate) (domain.OrderStatus, bool, error) {
	order, err := s.repo.GetOrder(ctx, trackingNumber)
	if err != nil {
		return "", false, fmt.Errorf("progress order %s: %w", trackingNumber, err)
	}

	distanceKm := domain.HaversineKm(at, order.Destination)

	var next domain.OrderStatus
	var message string
	switch {
	case order.CurrentStatus == domain.StatusRouted && distanceKm <= s.proximity.InTransitKm:
		next, message = domain.StatusInTransit, "Driver en route"
	case order.CurrentStatus == domain.StatusInTransit && distanceKm <= s.proximity.DeliveredKm:
		next, message = domain.StatusDelivered, "Parcel delivered"
	default:
		return order.CurrentStatus, false, nil
	}

	if err := s.AppendStatus(ctx, trackingNumber, next, message); err != nil {
		return "", false, err
	}
	return next, true, nil
}
