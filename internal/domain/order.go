package domain

import (
	"math/rand/v2"
	"time"
)

// OrderStatus is the current lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusAssigned  OrderStatus = "assigned"
	StatusRouted    OrderStatus = "routed"
	StatusInTransit OrderStatus = "in_transit"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// ValidStatus reports whether s is a known order status label.
func ValidStatus(s OrderStatus) bool {
	switch s {
	case StatusPending, StatusAssigned, StatusRouted, StatusInTransit, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// StatusEntry is one append-only status-history record.
type StatusEntry struct {
	Status    OrderStatus
	Message   string
	Timestamp time.Time
}

// Order is the tracked state of a single delivery.
//
// History is append-only; CurrentStatus always equals the status of the last
// history entry. Route holds the computed route metadata once attached.
type Order struct {
	TrackingNumber string
	City           string
	WeightClass    WeightClass
	Destination    Coordinate
	CurrentStatus  OrderStatus
	History        []StatusEntry
	Route          *RouteResult
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewOrder creates a pending order with its initial history entry.
func NewOrder(trackingNumber, city string, weightClass WeightClass, destination Coordinate, now time.Time) *Order {
	return &Order{
		TrackingNumber: trackingNumber,
		City:           city,
		WeightClass:    weightClass,
		Destination:    destination,
		CurrentStatus:  StatusPending,
		History: []StatusEntry{
			{Status: StatusPending, Message: "Order received", Timestamp: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append records a status transition, keeping history and current status
// consistent.
func (o *Order) Append(status OrderStatus, message string, at time.Time) {
	o.History = append(o.History, StatusEntry{Status: status, Message: message, Timestamp: at})
	o.CurrentStatus = status
	o.UpdatedAt = at
}

const trackingDigits = 10

// NewTrackingNumber generates a public tracking number: "CTM" followed by
// ten digits.
func NewTrackingNumber() string {
	buf := make([]byte, 0, 3+trackingDigits)
	buf = append(buf, 'C', 'T', 'M')
	for i := 0; i < trackingDigits; i++ {
		buf = append(buf, byte('0'+rand.IntN(10)))
	}
	return string(buf)
}
