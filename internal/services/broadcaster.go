package services

import (
	"fmt"
	"log"
	"sync"

	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/internal/ports"
)

// room is the subscriber set for one tracking number. Fan-out holds the room
// lock for the whole dispatch so pushes to one subscriber set never
// interleave.
type room struct {
	mu    sync.Mutex
	conns map[string]ports.LocationConn
}

// track is the per-tracking-number publish state: the catch-up snapshot and
// the per-driver staleness watermarks. Its mutex is the single sequential
// dispatch point for the tracking number: acceptance and fan-out happen under
// it, so every subscriber observes updates in acceptance order and a
// subscriber joining mid-publish can never end up behind the last known
// location. Tracks outlive the subscriber set (catch-up must work when
// nobody is watching), so they are kept even after their room is removed.
type track struct {
	mu       sync.Mutex
	last     domain.DriverLocationUpdate
	haveLast bool
	accepted map[string]domain.DriverLocationUpdate
}

// Broadcaster relays driver location updates to the connections subscribed
// to the matching tracking number.
//
// Rooms are created lazily on first subscribe and removed when the last
// subscriber leaves, so a tracking number absent from the registry has zero
// subscribers. Different tracking numbers never contend on the same lock.
//
// Lock order is track.mu, then b.mu, then room.mu; never the reverse.
type Broadcaster struct {
	mu    sync.RWMutex
	rooms map[string]*room

	// state guards the tracks map itself; each track carries its own lock.
	state  sync.Mutex
	tracks map[string]*track
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		rooms:  make(map[string]*room),
		tracks: make(map[string]*track),
	}
}

func (b *Broadcaster) track(trackingNumber string) *track {
	b.state.Lock()
	defer b.state.Unlock()
	tr, ok := b.tracks[trackingNumber]
	if !ok {
		tr = &track{accepted: make(map[string]domain.DriverLocationUpdate)}
		b.tracks[trackingNumber] = tr
	}
	return tr
}

// Subscribe registers the connection under the tracking number and
// immediately pushes the last known location if one exists, so late joiners
// do not wait for the next GPS tick. Re-subscribing an already-subscribed
// connection is a no-op.
//
// Holding the track lock across insert and catch-up pins the snapshot: a
// concurrent publish either completed before (and is what gets pushed) or
// waits until the connection is in the room and receives the fan-out.
func (b *Broadcaster) Subscribe(conn ports.LocationConn, trackingNumber string) {
	tr := b.track(trackingNumber)
	tr.mu.Lock()
	defer tr.mu.Unlock()

	b.mu.Lock()
	rm, ok := b.rooms[trackingNumber]
	if !ok {
		rm = &room{conns: make(map[string]ports.LocationConn)}
		b.rooms[trackingNumber] = rm
	}
	b.mu.Unlock()

	rm.mu.Lock()
	if _, exists := rm.conns[conn.ID()]; exists {
		rm.mu.Unlock()
		return
	}
	rm.conns[conn.ID()] = conn

	if tr.haveLast {
		if err := conn.PushLocation(tr.last); err != nil {
			log.Printf("catch-up push failed: tracking=%s conn=%s err=%v", trackingNumber, conn.ID(), err)
			delete(rm.conns, conn.ID())
		}
	}
	empty := len(rm.conns) == 0
	rm.mu.Unlock()

	if empty {
		b.removeIfEmpty(trackingNumber, rm)
	}
}

// Unsubscribe removes the connection from the tracking number's subscriber
// set; no-op if it was not subscribed.
func (b *Broadcaster) Unsubscribe(connID, trackingNumber string) {
	b.mu.RLock()
	rm, ok := b.rooms[trackingNumber]
	b.mu.RUnlock()
	if !ok {
		return
	}

	rm.mu.Lock()
	delete(rm.conns, connID)
	empty := len(rm.conns) == 0
	rm.mu.Unlock()

	if empty {
		b.removeIfEmpty(trackingNumber, rm)
	}
}

// Disconnect removes the connection from every tracking number it was
// subscribed to. Called by the transport layer on connection teardown.
func (b *Broadcaster) Disconnect(connID string) {
	b.mu.RLock()
	numbers := make([]string, 0, len(b.rooms))
	for tn := range b.rooms {
		numbers = append(numbers, tn)
	}
	b.mu.RUnlock()

	for _, tn := range numbers {
		b.Unsubscribe(connID, tn)
	}
}

// PublishLocation validates the update's timestamp, stores it as the last
// known location for its tracking number and fans it out to every
// subscriber. Stale updates are rejected with domain.ErrStaleUpdate; the
// caller logs and drops them without retry. A connection whose push fails is
// evicted and must re-subscribe to resume receiving updates.
//
// Acceptance and fan-out run under one track lock, so dispatch order always
// equals acceptance order and the live stream never falls behind LastKnown.
func (b *Broadcaster) PublishLocation(update domain.DriverLocationUpdate) error {
	tr := b.track(update.TrackingNumber)
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if prev, ok := tr.accepted[update.DriverID]; ok && update.Timestamp.Before(prev.Timestamp) {
		return fmt.Errorf("publish location: driver=%s tracking=%s ts=%s: %w",
			update.DriverID, update.TrackingNumber, update.Timestamp.Format("15:04:05.000"), domain.ErrStaleUpdate)
	}
	tr.accepted[update.DriverID] = update
	tr.last = update
	tr.haveLast = true

	b.mu.RLock()
	rm, ok := b.rooms[update.TrackingNumber]
	b.mu.RUnlock()
	if !ok {
		return nil
	}

	rm.mu.Lock()
	var dead []string
	for id, conn := range rm.conns {
		if err := conn.PushLocation(update); err != nil {
			log.Printf("push failed, dropping subscriber: tracking=%s conn=%s err=%v", update.TrackingNumber, id, err)
			dead = append(dead, id)
		}
	}
	for _, id := range dead {
		delete(rm.conns, id)
	}
	empty := len(rm.conns) == 0
	rm.mu.Unlock()

	if empty {
		b.removeIfEmpty(update.TrackingNumber, rm)
	}
	return nil
}

// LastKnown returns the most recent accepted update for the tracking number.
func (b *Broadcaster) LastKnown(trackingNumber string) (domain.DriverLocationUpdate, bool) {
	b.state.Lock()
	tr, ok := b.tracks[trackingNumber]
	b.state.Unlock()
	if !ok {
		return domain.DriverLocationUpdate{}, false
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.last, tr.haveLast
}

// ActiveTrackingNumbers reports the number of tracking numbers with at least
// one subscriber.
func (b *Broadcaster) ActiveTrackingNumbers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rooms)
}

// SubscriberCount reports the subscriber-set size for one tracking number.
func (b *Broadcaster) SubscriberCount(trackingNumber string) int {
	b.mu.RLock()
	rm, ok := b.rooms[trackingNumber]
	b.mu.RUnlock()
	if !ok {
		return 0
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return len(rm.conns)
}

// removeIfEmpty drops the room if it still has no subscribers. Re-checked
// under both locks because a subscriber may have joined since the caller
// observed the room empty.
func (b *Broadcaster) removeIfEmpty(trackingNumber string, rm *room) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current, ok := b.rooms[trackingNumber]
	if !ok || current != rm {
		return
	}
	rm.mu.Lock()
	empty := len(rm.conns) == 0
	rm.mu.Unlock()
	if empty {
		delete(b.rooms, trackingNumber)
	}
}
