package ports

import (
	"context"

	"delivery-tracking-service/internal/domain"
)

// RouteLeg is path geometry and base travel time from a routing provider,
// before traffic adjustment.
type RouteLeg struct {
	Geometry        []domain.Coordinate
	DistanceKm      float64
	DurationMinutes float64
}

// Port: a boundary for computing drivable paths between two coordinates.
// Implementations call an external road-graph service and may fail or time
// out; callers are expected to fall back to a straight-line approximation.
type RouteProvider interface {
	// Return path geometry and base travel time between two coordinates.
	GetRoute(ctx context.Context, origin, destination domain.Coordinate) (RouteLeg, error)
}
