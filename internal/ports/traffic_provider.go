package ports

import (
	"context"

	"delivery-tracking-service/internal/domain"
)

// TrafficConditions is the congestion level and expected delay for a city.
type TrafficConditions struct {
	Level        domain.TrafficLevel
	DelayMinutes float64
}

// Port: an optional collaborator reporting current traffic conditions.
// Failures never fail a route computation; callers default to low/0.
type TrafficProvider interface {
	GetConditions(ctx context.Context, city string) (TrafficConditions, error)
}
