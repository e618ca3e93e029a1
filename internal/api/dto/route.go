package dto

import "time"

type CoordinateDTO struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type RouteRequest struct {
	Origin      CoordinateDTO `json:"origin"`
	Destination CoordinateDTO `json:"destination"`
	City        string        `json:"city"`
	WeightKg    float64       `json:"weight_kg"`
}

type WeatherResponse struct {
	TemperatureC float64 `json:"temperature_c"`
	Condition    string  `json:"condition"`
	Description  string  `json:"description"`
}

type RouteResponse struct {
	Geometry            []CoordinateDTO  `json:"geometry"`
	DistanceKm          float64          `json:"distance_km"`
	DurationMinutes     float64          `json:"duration_minutes"`
	BaseDurationMinutes float64          `json:"base_duration_minutes"`
	TrafficLevel        string           `json:"traffic_level"`
	TrafficDelayMinutes float64          `json:"traffic_delay_minutes"`
	EstimatedCost       float64          `json:"estimated_cost"`
	Weather             *WeatherResponse `json:"weather"`
	Degraded            bool             `json:"degraded"`
	ShouldRecalculate   bool             `json:"should_recalculate"`
	ComputedAt          time.Time        `json:"computed_at"`
}
