package services

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"delivery-tracking-service/internal/adapters/cache"
	"delivery-tracking-service/internal/adapters/routing"
	"delivery-tracking-service/internal/adapters/traffic"
	"delivery-tracking-service/internal/adapters/weather"
	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/internal/ports"
)

var (
	casaOrigin      = domain.Coordinate{Lat: 33.5731, Lon: -7.6163}
	casaDestination = domain.Coordinate{Lat: 33.5928, Lon: -7.6192}
)

func casaRequest() domain.RouteRequest {
	return domain.RouteRequest{
		Origin:      casaOrigin,
		Destination: casaDestination,
		City:        "Casablanca",
		WeightClass: domain.WeightStandard,
	}
}

func TestComputeRouteProviderPath(t *testing.T) {
	provider := &routing.MockRouteProvider{
		Leg: mockLeg(2.5, 8, []domain.Coordinate{
			{Lat: 33.5730, Lon: -7.6160}, // provider road-snapped endpoints
			{Lat: 33.5800, Lon: -7.6175},
			{Lat: 33.5930, Lon: -7.6190},
		}),
	}
	engine := NewRouteEngine(provider, &traffic.StaticTrafficProvider{}, nil, nil, DefaultRouteEngineConfig())

	res, err := engine.ComputeRoute(context.Background(), casaRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Degraded {
		t.Fatal("result marked degraded with a healthy provider")
	}
	if res.Geometry[0] != casaOrigin {
		t.Fatalf("geometry start = %v, want request origin", res.Geometry[0])
	}
	if res.Geometry[len(res.Geometry)-1] != casaDestination {
		t.Fatalf("geometry end = %v, want request destination", res.Geometry[len(res.Geometry)-1])
	}
	if res.DistanceKm != 2.5 {
		t.Fatalf("distance = %f, want 2.5", res.DistanceKm)
	}
	if res.BaseDurationMinutes != 8 {
		t.Fatalf("base duration = %f, want 8", res.BaseDurationMinutes)
	}
	if res.TrafficLevel != domain.TrafficLow {
		t.Fatalf("traffic level = %s, want low", res.TrafficLevel)
	}
}

func TestComputeRouteFallbackOnProviderError(t *testing.T) {
	provider := &routing.MockRouteProvider{Err: errors.New("ors unavailable")}
	engine := NewRouteEngine(provider, nil, nil, nil, DefaultRouteEngineConfig())

	res, err := engine.ComputeRoute(context.Background(), casaRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !res.Degraded {
		t.Fatal("fallback result not marked degraded")
	}
	if len(res.Geometry) != 2 {
		t.Fatalf("fallback geometry has %d points, want 2", len(res.Geometry))
	}
	if res.Geometry[0] != casaOrigin || res.Geometry[1] != casaDestination {
		t.Fatalf("fallback geometry = %v, want straight origin-destination line", res.Geometry)
	}

	haversine := domain.HaversineKm(casaOrigin, casaDestination)
	if math.Abs(res.DistanceKm-haversine) > 0.01 {
		t.Fatalf("fallback distance = %f, want haversine %f", res.DistanceKm, haversine)
	}
	// Duration derives from the fallback speed (30 km/h).
	wantMinutes := haversine / 30 * 60
	if math.Abs(res.DurationMinutes-wantMinutes) > 0.1 {
		t.Fatalf("fallback duration = %f, want ~%f", res.DurationMinutes, wantMinutes)
	}
}

func TestComputeRouteFallbackOnSlowProvider(t *testing.T) {
	provider := &routing.MockRouteProvider{Delay: 200 * time.Millisecond}
	cfg := DefaultRouteEngineConfig()
	cfg.ProviderTimeout = 20 * time.Millisecond
	engine := NewRouteEngine(provider, nil, nil, nil, cfg)

	res, err := engine.ComputeRoute(context.Background(), casaRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Degraded {
		t.Fatal("timed-out provider did not degrade to straight line")
	}
}

func TestComputeRouteValidation(t *testing.T) {
	engine := NewRouteEngine(&routing.MockRouteProvider{}, nil, nil, nil, DefaultRouteEngineConfig())
	ctx := context.Background()

	req := casaRequest()
	req.City = "Atlantis"
	if _, err := engine.ComputeRoute(ctx, req); !errors.Is(err, domain.ErrUnknownCity) {
		t.Fatalf("unknown city error = %v, want ErrUnknownCity", err)
	}

	req = casaRequest()
	req.Destination = domain.Coordinate{Lat: 31.6295, Lon: -7.9811} // Marrakech
	if _, err := engine.ComputeRoute(ctx, req); !errors.Is(err, domain.ErrOutOfBounds) {
		t.Fatalf("out-of-bounds error = %v, want ErrOutOfBounds", err)
	}

	req = casaRequest()
	req.Origin = domain.Coordinate{Lat: 91, Lon: 0}
	if _, err := engine.ComputeRoute(ctx, req); !errors.Is(err, domain.ErrOutOfBounds) {
		t.Fatalf("invalid origin error = %v, want ErrOutOfBounds", err)
	}

	req = casaRequest()
	req.Destination = domain.Coordinate{Lat: req.Origin.Lat + 0.00001, Lon: req.Origin.Lon}
	if _, err := engine.ComputeRoute(ctx, req); !errors.Is(err, domain.ErrDegenerateRoute) {
		t.Fatalf("degenerate route error = %v, want ErrDegenerateRoute", err)
	}
}

func TestComputeRouteCollaboratorFailuresDegrade(t *testing.T) {
	engine := NewRouteEngine(
		&routing.MockRouteProvider{},
		&traffic.StaticTrafficProvider{Err: errors.New("traffic feed down")},
		&weather.MockWeatherProvider{Err: errors.New("weather api down")},
		nil,
		DefaultRouteEngineConfig(),
	)

	res, err := engine.ComputeRoute(context.Background(), casaRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TrafficLevel != domain.TrafficLow {
		t.Fatalf("traffic level = %s, want low on feed failure", res.TrafficLevel)
	}
	if res.TrafficDelayMinutes != 0 {
		t.Fatalf("traffic delay = %f, want 0 on feed failure", res.TrafficDelayMinutes)
	}
	if res.Weather != nil {
		t.Fatalf("weather = %+v, want nil on lookup failure", res.Weather)
	}
}

func TestComputeRouteAnnotations(t *testing.T) {
	provider := &routing.MockRouteProvider{Leg: mockLeg(4, 10, nil)}
	engine := NewRouteEngine(
		provider,
		&traffic.StaticTrafficProvider{Level: domain.TrafficHigh, DelayMinutes: 20},
		&weather.MockWeatherProvider{Snapshot: domain.WeatherSnapshot{Condition: "Rain", Description: "light rain", TemperatureC: 14}},
		nil,
		DefaultRouteEngineConfig(),
	)

	res, err := engine.ComputeRoute(context.Background(), casaRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.DurationMinutes != 30 {
		t.Fatalf("duration = %f, want base 10 + delay 20", res.DurationMinutes)
	}
	if !res.ShouldRecalculate {
		t.Fatal("high traffic with 20 min delay, want should_recalculate")
	}
	if res.Weather == nil || res.Weather.Condition != "Rain" {
		t.Fatalf("weather = %+v, want Rain snapshot", res.Weather)
	}

	// (15 + 4*5) * 1.3 high traffic * 1.2 rain * 1.1 standard = 60.06.
	if res.EstimatedCost != 60.06 {
		t.Fatalf("cost = %f, want 60.06", res.EstimatedCost)
	}
}

func TestCostEstimateDeterministic(t *testing.T) {
	params := DefaultCostParams()

	first := params.Estimate(10, domain.WeightHeavy, domain.TrafficMedium, "light rain")
	for i := 0; i < 5; i++ {
		if got := params.Estimate(10, domain.WeightHeavy, domain.TrafficMedium, "light rain"); got != first {
			t.Fatalf("cost changed between identical calls: %f vs %f", got, first)
		}
	}

	// (15 + 50) * 1.15 * 1.2 * 1.25 = 112.13 rounded.
	if first != 112.13 {
		t.Fatalf("cost = %f, want 112.13", first)
	}

	if base := params.Estimate(0, domain.WeightLight, domain.TrafficLow, ""); base != 15 {
		t.Fatalf("zero-distance light cost = %f, want base rate 15", base)
	}
}

func TestComputeRouteCacheHit(t *testing.T) {
	provider := &routing.MockRouteProvider{Leg: mockLeg(3, 9, nil)}
	engine := NewRouteEngine(provider, nil, nil, cache.NewMemoryRouteCache(), DefaultRouteEngineConfig())

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return fixed }

	first, err := engine.ComputeRoute(context.Background(), casaRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := engine.ComputeRoute(context.Background(), casaRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if provider.Calls() != 1 {
		t.Fatalf("provider calls = %d, want 1 (second request served from cache)", provider.Calls())
	}
	if !second.ComputedAt.Equal(first.ComputedAt) {
		t.Fatal("cached result differs from original")
	}

	// A new TTL bucket forces recomputation.
	engine.now = func() time.Time { return fixed.Add(engine.cfg.CacheTTL + time.Second) }
	if _, err := engine.ComputeRoute(context.Background(), casaRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.Calls() != 2 {
		t.Fatalf("provider calls = %d, want 2 after bucket rollover", provider.Calls())
	}
}

func TestComputeRouteSingleflight(t *testing.T) {
	provider := &routing.MockRouteProvider{Delay: 50 * time.Millisecond}
	engine := NewRouteEngine(provider, nil, nil, cache.NewMemoryRouteCache(), DefaultRouteEngineConfig())

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return fixed }

	const concurrency = 8
	var wg sync.WaitGroup
	results := make([]*domain.RouteResult, concurrency)
	errs := make([]error, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = engine.ComputeRoute(context.Background(), casaRequest())
		}(i)
	}
	wg.Wait()

	for i := 0; i < concurrency; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i] == nil {
			t.Fatalf("caller %d got nil result", i)
		}
	}
	if provider.Calls() != 1 {
		t.Fatalf("provider calls = %d, want 1 for concurrent identical requests", provider.Calls())
	}
}

func TestComputeRouteDefaultsWeightClass(t *testing.T) {
	provider := &routing.MockRouteProvider{Leg: mockLeg(4, 10, nil)}
	engine := NewRouteEngine(provider, nil, nil, nil, DefaultRouteEngineConfig())

	req := casaRequest()
	req.WeightClass = ""
	res, err := engine.ComputeRoute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// (15 + 20) * 1.1 standard multiplier.
	if res.EstimatedCost != 38.5 {
		t.Fatalf("cost = %f, want standard-class 38.50", res.EstimatedCost)
	}
}

func mockLeg(distanceKm, durationMinutes float64, geometry []domain.Coordinate) ports.RouteLeg {
	return ports.RouteLeg{Geometry: geometry, DistanceKm: distanceKm, DurationMinutes: durationMinutes}
}
