package domain

import "time"

// DriverLocationUpdate is one GPS tick from a driver working an order.
//
// Timestamps must be non-decreasing per (driver, tracking number) in accepted
// order; the broadcaster rejects anything older than the last accepted tick.
// Ephemeral: only the most recent update per tracking number is retained,
// for subscriber catch-up.
type DriverLocationUpdate struct {
	DriverID       string
	TrackingNumber string
	Location       Coordinate
	Timestamp      time.Time
}
