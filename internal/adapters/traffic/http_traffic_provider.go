package traffic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/internal/platform/obs"
	"delivery-tracking-service/internal/ports"
)

// Thresholds map an upstream delay in minutes to a traffic level.
// Both bounds are configurable; defaults follow the recalculation threshold
// used by route computation.
type Thresholds struct {
	MediumDelayMinutes float64
	HighDelayMinutes   float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{MediumDelayMinutes: 5, HighDelayMinutes: 15}
}

// Classify maps a delay to its traffic level.
func (t Thresholds) Classify(delayMinutes float64) domain.TrafficLevel {
	switch {
	case delayMinutes > t.HighDelayMinutes:
		return domain.TrafficHigh
	case delayMinutes > t.MediumDelayMinutes:
		return domain.TrafficMedium
	default:
		return domain.TrafficLow
	}
}

// HTTPTrafficProvider queries a traffic-conditions endpoint returning the
// expected delay for a city and classifies it into a level.
type HTTPTrafficProvider struct {
	session    *http.Client
	baseURL    string
	thresholds Thresholds
}

func NewHTTPTrafficProvider(baseURL string, thresholds Thresholds) (*HTTPTrafficProvider, error) {
	if baseURL == "" {
		return nil, errors.New("traffic base URL is empty")
	}
	if thresholds.HighDelayMinutes <= 0 {
		thresholds = DefaultThresholds()
	}

	return &HTTPTrafficProvider{
		session:    &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		thresholds: thresholds,
	}, nil
}

type conditionsResponse struct {
	City         string  `json:"city"`
	DelayMinutes float64 `json:"delay_minutes"`
}

func (p *HTTPTrafficProvider) GetConditions(ctx context.Context, city string) (_ ports.TrafficConditions, err error) {
	defer obs.Time(ctx, "traffic.GetConditions")(&err)

	endpoint := fmt.Sprintf("%s/conditions?city=%s", p.baseURL, url.QueryEscape(city))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ports.TrafficConditions{}, fmt.Errorf("create conditions request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.session.Do(req)
	if err != nil {
		return ports.TrafficConditions{}, fmt.Errorf("conditions request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ports.TrafficConditions{}, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var decoded conditionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ports.TrafficConditions{}, fmt.Errorf("decode conditions response: %w", err)
	}

	if decoded.DelayMinutes < 0 {
		return ports.TrafficConditions{}, fmt.Errorf("negative delay for %q: %f", city, decoded.DelayMinutes)
	}

	return ports.TrafficConditions{
		Level:        p.thresholds.Classify(decoded.DelayMinutes),
		DelayMinutes: decoded.DelayMinutes,
	}, nil
}
