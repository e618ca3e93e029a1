package domain

import "errors"

// Hard-failure inputs. Everything else the routing/tracking core degrades
// around instead of propagating.
var (
	// ErrUnknownCity rejects requests naming a city outside the registry.
	ErrUnknownCity = errors.New("unknown city")

	// ErrOutOfBounds rejects coordinates outside the city's bounding box.
	ErrOutOfBounds = errors.New("coordinates out of city bounds")

	// ErrDegenerateRoute rejects origin == destination (within epsilon)
	// instead of silently returning a zero-length route.
	ErrDegenerateRoute = errors.New("degenerate route: origin and destination coincide")

	// ErrStaleUpdate rejects a driver location update whose timestamp
	// precedes the last accepted one for the same driver and tracking number.
	ErrStaleUpdate = errors.New("stale location update")

	// ErrUnknownOrder is returned when appending status to a tracking number
	// that was never created.
	ErrUnknownOrder = errors.New("unknown order")

	// ErrNotFound is returned by lookups of absent orders.
	ErrNotFound = errors.New("order not found")

	// ErrDuplicateOrder is returned when creating an order whose tracking
	// number already exists.
	ErrDuplicateOrder = errors.New("duplicate tracking number")
)
