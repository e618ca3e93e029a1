package dto

import "time"

type CreateOrderRequest struct {
	City        string        `json:"city"`
	WeightKg    float64       `json:"weight_kg"`
	Destination CoordinateDTO `json:"destination"`
}

type StatusEntryResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type OrderResponse struct {
	TrackingNumber string                `json:"tracking_number"`
	City           string                `json:"city"`
	WeightClass    string                `json:"weight_class"`
	Status         string                `json:"status"`
	History        []StatusEntryResponse `json:"history"`
	Route          *RouteResponse        `json:"route,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

type AppendStatusRequest struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type DriverLocationRequest struct {
	DriverID       string        `json:"driver_id"`
	TrackingNumber string        `json:"tracking_number"`
	Location       CoordinateDTO `json:"location"`
	Timestamp      time.Time     `json:"timestamp"`
}
