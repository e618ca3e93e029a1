package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"delivery-tracking-service/internal/adapters/repositories"
	"delivery-tracking-service/internal/domain"
)

// capturingPublisher records published status events.
type capturingPublisher struct {
	mu     sync.Mutex
	events []StatusEvent
	err    error
}

func (p *capturingPublisher) PublishStatus(_ context.Context, event StatusEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) published() []StatusEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]StatusEvent, len(p.events))
	copy(out, p.events)
	return out
}

func newTestOrderService(events StatusPublisher) *OrderService {
	return NewOrderService(repositories.NewMemoryOrderRepository(), events, DefaultProximityThresholds())
}

func TestOrderLifecycle(t *testing.T) {
	publisher := &capturingPublisher{}
	svc := newTestOrderService(publisher)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, "Casablanca", 12, domain.Coordinate{Lat: 33.5928, Lon: -7.6192})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if order.TrackingNumber[:3] != "CTM" {
		t.Fatalf("tracking number = %q, want CTM prefix", order.TrackingNumber)
	}
	if order.WeightClass != domain.WeightStandard {
		t.Fatalf("weight class for 12 kg = %s, want standard", order.WeightClass)
	}
	if order.CurrentStatus != domain.StatusPending {
		t.Fatalf("initial status = %s, want pending", order.CurrentStatus)
	}

	if err := svc.AppendStatus(ctx, order.TrackingNumber, domain.StatusAssigned, "Driver assigned"); err != nil {
		t.Fatalf("append assigned: %v", err)
	}
	if err := svc.AppendStatus(ctx, order.TrackingNumber, domain.StatusRouted, "Route computed"); err != nil {
		t.Fatalf("append routed: %v", err)
	}

	got, err := svc.GetOrder(ctx, order.TrackingNumber)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CurrentStatus != domain.StatusRouted {
		t.Fatalf("status = %s, want routed", got.CurrentStatus)
	}
	if len(got.History) != 3 {
		t.Fatalf("history length = %d, want 3", len(got.History))
	}
	if got.History[0].Status != domain.StatusPending || got.History[2].Status != domain.StatusRouted {
		t.Fatalf("history order wrong: %+v", got.History)
	}

	events := publisher.published()
	if len(events) != 2 {
		t.Fatalf("published %d events, want 2", len(events))
	}
	if events[1].Status != domain.StatusRouted || events[1].TrackingNumber != order.TrackingNumber {
		t.Fatalf("last event = %+v", events[1])
	}
}

func TestCreateOrderValidation(t *testing.T) {
	svc := newTestOrderService(nil)
	ctx := context.Background()

	if _, err := svc.CreateOrder(ctx, "Atlantis", 5, domain.Coordinate{Lat: 33.57, Lon: -7.61}); !errors.Is(err, domain.ErrUnknownCity) {
		t.Fatalf("unknown city error = %v, want ErrUnknownCity", err)
	}
	// Marrakech coordinates for a Casablanca order.
	if _, err := svc.CreateOrder(ctx, "Casablanca", 5, domain.Coordinate{Lat: 31.6295, Lon: -7.9811}); !errors.Is(err, domain.ErrOutOfBounds) {
		t.Fatalf("out-of-bounds error = %v, want ErrOutOfBounds", err)
	}
}

func TestAppendStatusUnknownOrder(t *testing.T) {
	svc := newTestOrderService(nil)

	err := svc.AppendStatus(context.Background(), "CTM9999999999", domain.StatusAssigned, "")
	if !errors.Is(err, domain.ErrUnknownOrder) {
		t.Fatalf("error = %v, want ErrUnknownOrder", err)
	}

	if err := svc.AppendStatus(context.Background(), "CTM9999999999", "shipped", ""); err == nil {
		t.Fatal("invalid status accepted")
	}
}

func TestAppendStatusPublishFailureIsNonFatal(t *testing.T) {
	publisher := &capturingPublisher{err: errors.New("broker down")}
	svc := newTestOrderService(publisher)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, "Rabat", 2, domain.Coordinate{Lat: 34.0209, Lon: -6.8498})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.AppendStatus(ctx, order.TrackingNumber, domain.StatusAssigned, ""); err != nil {
		t.Fatalf("append failed on publish error: %v", err)
	}

	got, err := svc.GetOrder(ctx, order.TrackingNumber)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CurrentStatus != domain.StatusAssigned {
		t.Fatal("status transition lost when publish failed")
	}
}

func TestAttachRoute(t *testing.T) {
	svc := newTestOrderService(nil)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, "Casablanca", 3, domain.Coordinate{Lat: 33.5928, Lon: -7.6192})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	route := &domain.RouteResult{DistanceKm: 2.5, DurationMinutes: 9, TrafficLevel: domain.TrafficLow}
	if err := svc.AttachRoute(ctx, order.TrackingNumber, route); err != nil {
		t.Fatalf("attach: %v", err)
	}

	// Overwriting with fresher metadata is allowed.
	route2 := &domain.RouteResult{DistanceKm: 2.5, DurationMinutes: 14, TrafficLevel: domain.TrafficHigh}
	if err := svc.AttachRoute(ctx, order.TrackingNumber, route2); err != nil {
		t.Fatalf("re-attach: %v", err)
	}

	got, err := svc.GetOrder(ctx, order.TrackingNumber)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Route == nil || got.Route.TrafficLevel != domain.TrafficHigh {
		t.Fatalf("route = %+v, want the re-attached metadata", got.Route)
	}

	if err := svc.AttachRoute(ctx, "CTM9999999999", route); !errors.Is(err, domain.ErrUnknownOrder) {
		t.Fatalf("attach to unknown order error = %v, want ErrUnknownOrder", err)
	}
}

func TestProgressByProximity(t *testing.T) {
	svc := newTestOrderService(nil)
	ctx := context.Background()

	destination := domain.Coordinate{Lat: 33.5928, Lon: -7.6192}
	order, err := svc.CreateOrder(ctx, "Casablanca", 3, destination)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	farAway := domain.Coordinate{Lat: 33.50, Lon: -7.70} // well outside 5 km
	nearby := domain.Coordinate{Lat: 33.60, Lon: -7.62}  // about 1 km out
	atDoor := domain.Coordinate{Lat: 33.5928, Lon: -7.6192}

	// Pending orders never progress by proximity.
	if status, changed, err := svc.ProgressByProximity(ctx, order.TrackingNumber, atDoor); err != nil || changed {
		t.Fatalf("pending order progressed: status=%s changed=%v err=%v", status, changed, err)
	}

	if err := svc.AppendStatus(ctx, order.TrackingNumber, domain.StatusRouted, "Route computed"); err != nil {
		t.Fatalf("append routed: %v", err)
	}

	if _, changed, err := svc.ProgressByProximity(ctx, order.TrackingNumber, farAway); err != nil || changed {
		t.Fatalf("distant driver progressed the order: changed=%v err=%v", changed, err)
	}

	status, changed, err := svc.ProgressByProximity(ctx, order.TrackingNumber, nearby)
	if err != nil || !changed || status != domain.StatusInTransit {
		t.Fatalf("nearby driver: status=%s changed=%v err=%v, want in_transit", status, changed, err)
	}

	// Within 5 km but not at the door: stays in transit.
	if _, changed, err := svc.ProgressByProximity(ctx, order.TrackingNumber, nearby); err != nil || changed {
		t.Fatalf("in-transit order progressed at 1 km: changed=%v err=%v", changed, err)
	}

	status, changed, err = svc.ProgressByProximity(ctx, order.TrackingNumber, atDoor)
	if err != nil || !changed || status != domain.StatusDelivered {
		t.Fatalf("driver at door: status=%s changed=%v err=%v, want delivered", status, changed, err)
	}

	if _, _, err := svc.ProgressByProximity(ctx, "CTM9999999999", atDoor); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown order error = %v, want ErrNotFound", err)
	}
}
