package routing

import (
	"context"
	"sync"
	"time"

	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/internal/ports"
)

// MockRouteProvider is a configurable test double for RouteProvider.
// It counts calls so tests can assert how many upstream computations ran.
type MockRouteProvider struct {
	Leg   ports.RouteLeg
	Err   error
	Delay time.Duration

	mu    sync.Mutex
	calls int
}

func (p *MockRouteProvider) GetRoute(ctx context.Context, origin, destination domain.Coordinate) (ports.RouteLeg, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	if p.Delay > 0 {
		select {
		case <-ctx.Done():
			return ports.RouteLeg{}, ctx.Err()
		case <-time.After(p.Delay):
		}
	}

	if p.Err != nil {
		return ports.RouteLeg{}, p.Err
	}

	leg := p.Leg
	if len(leg.Geometry) == 0 {
		leg.Geometry = []domain.Coordinate{origin, destination}
	} else {
		leg.Geometry = append([]domain.Coordinate(nil), leg.Geometry...)
	}
	return leg, nil
}

// Calls reports how many times GetRoute was invoked.
func (p *MockRouteProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}
