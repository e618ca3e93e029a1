package traffic

import (
	"context"

	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/internal/ports"
)

// StaticTrafficProvider reports fixed conditions. Used as the default when
// no upstream traffic source is configured, and as a test double.
type StaticTrafficProvider struct {
	Level        domain.TrafficLevel
	DelayMinutes float64
	Err          error
}

func (p *StaticTrafficProvider) GetConditions(_ context.Context, _ string) (ports.TrafficConditions, error) {
	if p.Err != nil {
		return ports.TrafficConditions{}, p.Err
	}
	level := p.Level
	if level == "" {
		level = domain.TrafficLow
	}
	return ports.TrafficConditions{Level: level, DelayMinutes: p.DelayMinutes}, nil
}
