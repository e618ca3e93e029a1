package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/internal/platform/obs"
	"delivery-tracking-service/internal/ports"
)

// ORSRouteProvider implements RouteProvider using OpenRouteService
// directions. External API calls are retried with backoff; callers own the
// fallback when the provider stays unavailable.
//
// The provider is safe for concurrent use.
type ORSRouteProvider struct {
	session *http.Client
	apiKey  string
	baseURL string
	profile string
}

func NewORSRouteProvider(apiKey string) (*ORSRouteProvider, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}

	return &ORSRouteProvider{
		session: &http.Client{Timeout: 10 * time.Second},
		apiKey:  apiKey,
		baseURL: "https://api.openrouteservice.org",
		profile: "driving-car",
	}, nil
}

type directionsRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
}

type directionsResponse struct {
	Features []struct {
		Properties struct {
			Segments []struct {
				Distance float64 `json:"distance"`
				Duration float64 `json:"duration"`
			} `json:"segments"`
		} `json:"properties"`
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// GetRoute fetches driving geometry and base travel time between two
// coordinates via the GeoJSON directions endpoint.
func (o *ORSRouteProvider) GetRoute(ctx context.Context, origin, destination domain.Coordinate) (_ ports.RouteLeg, err error) {
	defer obs.Time(ctx, "ors.GetRoute")(&err)

	endpoint := fmt.Sprintf("%s/v2/directions/%s/geojson", o.baseURL, o.profile)

	bodyObj := directionsRequest{
		Coordinates: [][]float64{origin.CoordsToList(), destination.CoordsToList()},
	}
	payload, err := json.Marshal(bodyObj)
	if err != nil {
		return ports.RouteLeg{}, fmt.Errorf("marshal directions request: %w", err)
	}

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		body := bytes.NewReader(payload)
		return o.newRequest(ctx, http.MethodPost, endpoint, body)
	})
	if err != nil {
		return ports.RouteLeg{}, fmt.Errorf("directions request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ports.RouteLeg{}, fmt.Errorf("decode directions response: %w", err)
	}

	if len(decoded.Features) == 0 {
		return ports.RouteLeg{}, errors.New("directions returned no features")
	}

	feature := decoded.Features[0]
	if len(feature.Properties.Segments) == 0 {
		return ports.RouteLeg{}, errors.New("directions returned no segments")
	}
	if len(feature.Geometry.Coordinates) < 2 {
		return ports.RouteLeg{}, errors.New("directions returned degenerate geometry")
	}

	geometry := make([]domain.Coordinate, 0, len(feature.Geometry.Coordinates))
	for i, pair := range feature.Geometry.Coordinates {
		if len(pair) != 2 {
			return ports.RouteLeg{}, fmt.Errorf("invalid coordinate pair at index %d", i)
		}
		// GeoJSON order is [lon, lat].
		geometry = append(geometry, domain.Coordinate{Lat: pair[1], Lon: pair[0]})
	}

	var distanceMeters, durationSeconds float64
	for _, seg := range feature.Properties.Segments {
		distanceMeters += seg.Distance
		durationSeconds += seg.Duration
	}

	return ports.RouteLeg{
		Geometry:        geometry,
		DistanceKm:      distanceMeters / 1000,
		DurationMinutes: durationSeconds / 60,
	}, nil
}
