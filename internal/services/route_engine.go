package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/internal/platform/obs"
	"delivery-tracking-service/internal/ports"
)

// CostParams parameterize the deterministic cost estimate. The defaults
// mirror the operator's current tariff; all values are injectable so tests
// and future pricing changes never touch the computation itself.
type CostParams struct {
	BaseRate           float64
	PerKm              float64
	HighTrafficMult    float64
	MediumTrafficMult  float64
	RainMult           float64
	LightWeightMult    float64
	StandardWeightMult float64
	HeavyWeightMult    float64
}

func DefaultCostParams() CostParams {
	return CostParams{
		BaseRate:           15,
		PerKm:              5,
		HighTrafficMult:    1.3,
		MediumTrafficMult:  1.15,
		RainMult:           1.2,
		LightWeightMult:    1,
		StandardWeightMult: 1.1,
		HeavyWeightMult:    1.25,
	}
}

// Estimate computes the delivery cost for a distance, weight class, traffic
// level and weather condition. Pure function; always succeeds.
func (p CostParams) Estimate(distanceKm float64, weight domain.WeightClass, traffic domain.TrafficLevel, weatherCondition string) float64 {
	cost := p.BaseRate + distanceKm*p.PerKm

	switch traffic {
	case domain.TrafficHigh:
		cost *= p.HighTrafficMult
	case domain.TrafficMedium:
		cost *= p.MediumTrafficMult
	}

	if strings.Contains(strings.ToLower(weatherCondition), "rain") {
		cost *= p.RainMult
	}

	switch weight {
	case domain.WeightLight:
		cost *= p.LightWeightMult
	case domain.WeightHeavy:
		cost *= p.HeavyWeightMult
	default:
		cost *= p.StandardWeightMult
	}

	return math.Round(cost*100) / 100
}

// RouteEngineConfig tunes validation, fallback and caching behavior.
type RouteEngineConfig struct {
	// ProviderTimeout bounds the routing provider call before the
	// straight-line fallback is taken.
	ProviderTimeout time.Duration
	// FallbackSpeedKmh converts fallback distance into an estimated duration.
	FallbackSpeedKmh float64
	// DegenerateEpsilonKm is the minimum origin-destination distance.
	DegenerateEpsilonKm float64
	// CacheTTL is the validity window for cached results.
	CacheTTL time.Duration
	// RecalcDelayMinutes flags results for recalculation when traffic is
	// high and the delay exceeds this threshold.
	RecalcDelayMinutes float64
	Cost               CostParams
}

func DefaultRouteEngineConfig() RouteEngineConfig {
	return RouteEngineConfig{
		ProviderTimeout:     3 * time.Second,
		FallbackSpeedKmh:    30,
		DegenerateEpsilonKm: 0.025,
		CacheTTL:            5 * time.Minute,
		RecalcDelayMinutes:  15,
		Cost:                DefaultCostParams(),
	}
}

// RouteEngine computes annotated in-city routes.
//
// Only out-of-bounds and degenerate requests are hard failures; routing,
// traffic and weather collaborator failures degrade the result instead of
// propagating.
type RouteEngine struct {
	provider ports.RouteProvider
	traffic  ports.TrafficProvider
	weather  ports.WeatherProvider
	cache    ports.RouteCache
	cfg      RouteEngineConfig

	// group collapses concurrent identical requests within a cache window
	// to a single upstream computation.
	group singleflight.Group

	now func() time.Time
}

func NewRouteEngine(
	provider ports.RouteProvider,
	traffic ports.TrafficProvider,
	weather ports.WeatherProvider,
	cache ports.RouteCache,
	cfg RouteEngineConfig,
) *RouteEngine {
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 3 * time.Second
	}
	if cfg.FallbackSpeedKmh <= 0 {
		cfg.FallbackSpeedKmh = 30
	}
	if cfg.DegenerateEpsilonKm <= 0 {
		cfg.DegenerateEpsilonKm = 0.025
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.RecalcDelayMinutes <= 0 {
		cfg.RecalcDelayMinutes = 15
	}
	if cfg.Cost == (CostParams{}) {
		cfg.Cost = DefaultCostParams()
	}

	return &RouteEngine{
		provider: provider,
		traffic:  traffic,
		weather:  weather,
		cache:    cache,
		cfg:      cfg,
		now:      time.Now,
	}
}

// ComputeRoute validates the request and produces a RouteResult.
func (e *RouteEngine) ComputeRoute(ctx context.Context, req domain.RouteRequest) (_ *domain.RouteResult, err error) {
	defer obs.Time(ctx, "route.Compute")(&err)

	city, ok := domain.LookupCity(req.City)
	if !ok {
		return nil, fmt.Errorf("compute route: city %q: %w", req.City, domain.ErrUnknownCity)
	}

	if !req.Origin.Valid() || !city.Bounds.Contains(req.Origin) {
		return nil, fmt.Errorf("compute route: origin %v outside %s: %w", req.Origin, city.Name, domain.ErrOutOfBounds)
	}
	if !req.Destination.Valid() || !city.Bounds.Contains(req.Destination) {
		return nil, fmt.Errorf("compute route: destination %v outside %s: %w", req.Destination, city.Name, domain.ErrOutOfBounds)
	}

	if domain.HaversineKm(req.Origin, req.Destination) <= e.cfg.DegenerateEpsilonKm {
		return nil, fmt.Errorf("compute route: %w", domain.ErrDegenerateRoute)
	}

	if !req.WeightClass.Valid() {
		req.WeightClass = domain.WeightStandard
	}

	key := e.cacheKey(req)

	if e.cache != nil {
		cached, hit, err := e.cache.Get(ctx, key)
		if err != nil {
			log.Printf("route cache read failed: key=%s err=%v", key, err)
		} else if hit {
			return cached, nil
		}
	}

	v, err, _ := e.group.Do(key, func() (any, error) {
		// Re-check under the flight lock: a concurrent caller may have
		// populated the cache while this one waited.
		if e.cache != nil {
			if cached, hit, err := e.cache.Get(ctx, key); err == nil && hit {
				return cached, nil
			}
		}

		result := e.compute(ctx, city, req)

		if e.cache != nil {
			if err := e.cache.Put(ctx, key, result, e.cfg.CacheTTL); err != nil {
				log.Printf("route cache write failed: key=%s err=%v", key, err)
			}
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.RouteResult), nil
}

// compute runs the provider, traffic and weather lookups and assembles the
// result. It never fails; collaborator errors degrade the result.
func (e *RouteEngine) compute(ctx context.Context, city domain.City, req domain.RouteRequest) *domain.RouteResult {
	leg, degraded := e.routeLeg(ctx, req.Origin, req.Destination)

	conditions := ports.TrafficConditions{Level: domain.TrafficLow}
	if e.traffic != nil {
		c, err := e.traffic.GetConditions(ctx, city.Name)
		if err != nil {
			log.Printf("traffic lookup failed: city=%s err=%v", city.Name, err)
		} else {
			conditions = c
		}
	}

	var weather *domain.WeatherSnapshot
	if e.weather != nil {
		w, err := e.weather.GetWeather(ctx, city.Centroid)
		if err != nil {
			log.Printf("weather lookup failed: city=%s err=%v", city.Name, err)
		} else {
			weather = &w
		}
	}

	condition := ""
	if weather != nil {
		condition = weather.Condition
	}

	return &domain.RouteResult{
		Geometry:            leg.Geometry,
		DistanceKm:          round2(leg.DistanceKm),
		DurationMinutes:     round1(leg.DurationMinutes + conditions.DelayMinutes),
		BaseDurationMinutes: round1(leg.DurationMinutes),
		TrafficLevel:        conditions.Level,
		TrafficDelayMinutes: conditions.DelayMinutes,
		EstimatedCost:       e.cfg.Cost.Estimate(leg.DistanceKm, req.WeightClass, conditions.Level, condition),
		Weather:             weather,
		Degraded:            degraded,
		ShouldRecalculate:   conditions.Level == domain.TrafficHigh && conditions.DelayMinutes > e.cfg.RecalcDelayMinutes,
		ComputedAt:          e.now().UTC(),
	}
}

// routeLeg queries the routing provider under a timeout and falls back to a
// straight line between the endpoints when the provider is unavailable.
func (e *RouteEngine) routeLeg(ctx context.Context, origin, destination domain.Coordinate) (ports.RouteLeg, bool) {
	if e.provider != nil {
		ctx, cancel := context.WithTimeout(ctx, e.cfg.ProviderTimeout)
		defer cancel()

		leg, err := e.provider.GetRoute(ctx, origin, destination)
		if err == nil && len(leg.Geometry) >= 2 {
			// Snap endpoints so callers can rely on geometry boundaries
			// matching the request regardless of provider road snapping.
			leg.Geometry[0] = origin
			leg.Geometry[len(leg.Geometry)-1] = destination
			return leg, false
		}
		if err != nil {
			log.Printf("route provider failed, using straight-line fallback: err=%v", err)
		} else {
			log.Printf("route provider returned empty geometry, using straight-line fallback")
		}
	}

	distance := domain.HaversineKm(origin, destination)
	return ports.RouteLeg{
		Geometry:        []domain.Coordinate{origin, destination},
		DistanceKm:      distance,
		DurationMinutes: distance / e.cfg.FallbackSpeedKmh * 60,
	}, true
}

// cacheKey buckets requests by coordinates, city, weight class and TTL
// window so identical requests within the window share one computation.
func (e *RouteEngine) cacheKey(req domain.RouteRequest) string {
	bucket := e.now().Unix() / int64(e.cfg.CacheTTL.Seconds())
	return fmt.Sprintf("route:%s:%s:%.5f,%.5f:%.5f,%.5f:%d",
		req.City, req.WeightClass,
		req.Origin.Lat, req.Origin.Lon,
		req.Destination.Lat, req.Destination.Lon,
		bucket,
	)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
