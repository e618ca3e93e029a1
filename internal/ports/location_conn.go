package ports

import "delivery-tracking-service/internal/domain"

// Port: one subscriber connection on the real-time tracking channel.
//
// PushLocation must not block indefinitely; a returned error means the
// connection is dead and the broadcaster drops it from every subscriber set.
type LocationConn interface {
	// ID uniquely identifies the connection for idempotent subscribe and
	// disconnect cleanup.
	ID() string
	PushLocation(update domain.DriverLocationUpdate) error
}
