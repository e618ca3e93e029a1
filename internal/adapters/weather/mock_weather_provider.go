package weather

import (
	"context"

	"delivery-tracking-service/internal/domain"
)

// MockWeatherProvider returns a fixed snapshot or a fixed error.
type MockWeatherProvider struct {
	Snapshot domain.WeatherSnapshot
	Err      error
}

func (p *MockWeatherProvider) GetWeather(_ context.Context, _ domain.Coordinate) (domain.WeatherSnapshot, error) {
	if p.Err != nil {
		return domain.WeatherSnapshot{}, p.Err
	}
	return p.Snapshot, nil
}
