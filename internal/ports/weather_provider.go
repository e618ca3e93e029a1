package ports

import (
	"context"

	"delivery-tracking-service/internal/domain"
)

// Port: an optional collaborator reporting current weather near a coordinate.
// Failures never fail a route computation; callers omit the snapshot.
type WeatherProvider interface {
	GetWeather(ctx context.Context, at domain.Coordinate) (domain.WeatherSnapshot, error)
}
