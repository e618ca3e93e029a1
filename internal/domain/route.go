package domain

import "time"

// TrafficLevel classifies current road congestion for a city.
type TrafficLevel string

const (
	TrafficLow    TrafficLevel = "low"
	TrafficMedium TrafficLevel = "medium"
	TrafficHigh   TrafficLevel = "high"
)

// WeatherSnapshot is the weather observed around route computation time.
type WeatherSnapshot struct {
	TemperatureC float64
	Condition    string
	Description  string
}

// RouteRequest asks for a drivable in-city path between two coordinates.
// Consumed once per computation; not persisted.
type RouteRequest struct {
	Origin      Coordinate
	Destination Coordinate
	City        string
	WeightClass WeightClass
}

// RouteResult is an annotated drivable path between two coordinates.
//
// Geometry always starts at the requested origin and ends at the requested
// destination and has at least two points. Immutable once returned.
// Degraded marks results computed via the straight-line fallback rather than
// the routing provider.
type RouteResult struct {
	Geometry            []Coordinate
	DistanceKm          float64
	DurationMinutes     float64
	BaseDurationMinutes float64
	TrafficLevel        TrafficLevel
	TrafficDelayMinutes float64
	EstimatedCost       float64
	Weather             *WeatherSnapshot
	Degraded            bool
	ShouldRecalculate   bool
	ComputedAt          time.Time
}
