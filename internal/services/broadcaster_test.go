package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"delivery-tracking-service/internal/domain"
)

// fakeConn records pushed updates and can be told to fail.
type fakeConn struct {
	id string

	mu      sync.Mutex
	updates []domain.DriverLocationUpdate
	failing bool
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) PushLocation(update domain.DriverLocationUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errors.New("connection closed")
	}
	c.updates = append(c.updates, update)
	return nil
}

func (c *fakeConn) received() []domain.DriverLocationUpdate {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.DriverLocationUpdate, len(c.updates))
	copy(out, c.updates)
	return out
}

func (c *fakeConn) fail() {
	c.mu.Lock()
	c.failing = true
	c.mu.Unlock()
}

func tick(driver, tracking string, lat float64, ts time.Time) domain.DriverLocationUpdate {
	return domain.DriverLocationUpdate{
		DriverID:       driver,
		TrackingNumber: tracking,
		Location:       domain.Coordinate{Lat: lat, Lon: -7.62},
		Timestamp:      ts,
	}
}

func TestBroadcasterFanOut(t *testing.T) {
	b := NewBroadcaster()
	c1 := &fakeConn{id: "c1"}
	c2 := &fakeConn{id: "c2"}
	other := &fakeConn{id: "c3"}

	b.Subscribe(c1, "CTM0000000001")
	b.Subscribe(c2, "CTM0000000001")
	b.Subscribe(other, "CTM0000000002")

	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := b.PublishLocation(tick("DRV001", "CTM0000000001", 33.58, t0)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := b.PublishLocation(tick("DRV001", "CTM0000000001", 33.59, t0.Add(time.Second))); err != nil {
		t.Fatalf("publish: %v", err)
	}

	for _, c := range []*fakeConn{c1, c2} {
		got := c.received()
		if len(got) != 2 {
			t.Fatalf("conn %s received %d updates, want 2", c.id, len(got))
		}
		if got[0].Location.Lat != 33.58 || got[1].Location.Lat != 33.59 {
			t.Fatalf("conn %s received out of order: %+v", c.id, got)
		}
	}
	if len(other.received()) != 0 {
		t.Fatalf("subscriber of another tracking number received %d updates", len(other.received()))
	}
}

func TestBroadcasterRejectsStale(t *testing.T) {
	b := NewBroadcaster()
	c := &fakeConn{id: "c1"}
	b.Subscribe(c, "CTM0000000001")

	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(5 * time.Second)

	if err := b.PublishLocation(tick("DRV001", "CTM0000000001", 33.58, t0)); err != nil {
		t.Fatalf("publish t0: %v", err)
	}
	if err := b.PublishLocation(tick("DRV001", "CTM0000000001", 33.59, t1)); err != nil {
		t.Fatalf("publish t1: %v", err)
	}

	err := b.PublishLocation(tick("DRV001", "CTM0000000001", 33.60, t0))
	if !errors.Is(err, domain.ErrStaleUpdate) {
		t.Fatalf("stale publish error = %v, want ErrStaleUpdate", err)
	}

	got := c.received()
	if len(got) != 2 {
		t.Fatalf("received %d updates, want 2 (stale dropped)", len(got))
	}
	if last, _ := b.LastKnown("CTM0000000001"); last.Location.Lat != 33.59 {
		t.Fatalf("last known lat = %f, want 33.59", last.Location.Lat)
	}

	// Staleness is tracked per driver: another driver with an older clock
	// on the same order is still accepted.
	if err := b.PublishLocation(tick("DRV002", "CTM0000000001", 33.61, t0)); err != nil {
		t.Fatalf("second driver publish: %v", err)
	}
}

func TestBroadcasterCatchUpOnSubscribe(t *testing.T) {
	b := NewBroadcaster()

	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := b.PublishLocation(tick("DRV001", "CTM0000000001", 33.58, t0)); err != nil {
		t.Fatalf("publish with no subscribers: %v", err)
	}
	if b.ActiveTrackingNumbers() != 0 {
		t.Fatal("publish with no subscribers created a room")
	}

	late := &fakeConn{id: "late"}
	b.Subscribe(late, "CTM0000000001")

	got := late.received()
	if len(got) != 1 {
		t.Fatalf("late subscriber received %d updates, want catch-up push", len(got))
	}
	if got[0].Location.Lat != 33.58 {
		t.Fatalf("catch-up lat = %f, want 33.58", got[0].Location.Lat)
	}
}

func TestBroadcasterSubscribeIdempotent(t *testing.T) {
	b := NewBroadcaster()
	c := &fakeConn{id: "c1"}

	b.Subscribe(c, "CTM0000000001")
	b.Subscribe(c, "CTM0000000001")

	if n := b.SubscriberCount("CTM0000000001"); n != 1 {
		t.Fatalf("subscriber count = %d, want 1", n)
	}

	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := b.PublishLocation(tick("DRV001", "CTM0000000001", 33.58, t0)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(c.received()) != 1 {
		t.Fatalf("double-subscribed conn received %d copies, want 1", len(c.received()))
	}
}

func TestBroadcasterRoomLifecycle(t *testing.T) {
	b := NewBroadcaster()
	c1 := &fakeConn{id: "c1"}
	c2 := &fakeConn{id: "c2"}

	b.Subscribe(c1, "CTM0000000001")
	b.Subscribe(c2, "CTM0000000001")
	b.Subscribe(c1, "CTM0000000002")

	if b.ActiveTrackingNumbers() != 2 {
		t.Fatalf("active tracking numbers = %d, want 2", b.ActiveTrackingNumbers())
	}

	b.Unsubscribe("c1", "CTM0000000001")
	if n := b.SubscriberCount("CTM0000000001"); n != 1 {
		t.Fatalf("subscriber count after unsubscribe = %d, want 1", n)
	}

	b.Disconnect("c2")
	b.Disconnect("c1")

	if b.ActiveTrackingNumbers() != 0 {
		t.Fatalf("active tracking numbers after teardown = %d, want 0", b.ActiveTrackingNumbers())
	}

	// Unsubscribing an unknown connection or tracking number is a no-op.
	b.Unsubscribe("ghost", "CTM0000000001")
	b.Unsubscribe("c1", "CTM9999999999")
}

func TestBroadcasterEvictsFailedConn(t *testing.T) {
	b := NewBroadcaster()
	healthy := &fakeConn{id: "healthy"}
	broken := &fakeConn{id: "broken"}

	b.Subscribe(healthy, "CTM0000000001")
	b.Subscribe(broken, "CTM0000000001")
	broken.fail()

	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := b.PublishLocation(tick("DRV001", "CTM0000000001", 33.58, t0)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if n := b.SubscriberCount("CTM0000000001"); n != 1 {
		t.Fatalf("subscriber count after failed push = %d, want 1", n)
	}
	if len(healthy.received()) != 1 {
		t.Fatal("healthy subscriber missed the update")
	}

	// The evicted connection stops receiving even after recovery until it
	// re-subscribes.
	if err := b.PublishLocation(tick("DRV001", "CTM0000000001", 33.59, t0.Add(time.Second))); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(broken.received()) != 0 {
		t.Fatal("evicted subscriber still receives updates")
	}
}

func TestBroadcasterDeliveryOrderMatchesAcceptance(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Millisecond)

	for i := 0; i < 100; i++ {
		b := NewBroadcaster()
		c := &fakeConn{id: "c1"}
		b.Subscribe(c, "CTM0000000001")

		var wg sync.WaitGroup
		for _, ts := range []time.Time{t0, t1} {
			wg.Add(1)
			go func(ts time.Time) {
				defer wg.Done()
				// The older tick may lose the race and be dropped as stale.
				_ = b.PublishLocation(tick("DRV001", "CTM0000000001", 33.58, ts))
			}(ts)
		}
		wg.Wait()

		got := c.received()
		if len(got) == 0 {
			t.Fatal("no updates delivered")
		}
		for j := 1; j < len(got); j++ {
			if got[j].Timestamp.Before(got[j-1].Timestamp) {
				t.Fatalf("delivery order inverted vs acceptance: %v after %v",
					got[j].Timestamp, got[j-1].Timestamp)
			}
		}

		// Live subscribers must end on the same position a late joiner
		// would catch up to.
		last, ok := b.LastKnown("CTM0000000001")
		if !ok {
			t.Fatal("no last known update")
		}
		if final := got[len(got)-1]; !final.Timestamp.Equal(last.Timestamp) {
			t.Fatalf("subscriber ended at %v but last known is %v", final.Timestamp, last.Timestamp)
		}
	}
}

func TestBroadcasterSubscribeNeverMissesNewestUpdate(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Second)

	for i := 0; i < 100; i++ {
		b := NewBroadcaster()
		if err := b.PublishLocation(tick("DRV001", "CTM0000000001", 33.58, t0)); err != nil {
			t.Fatalf("seed publish: %v", err)
		}

		c := &fakeConn{id: "c1"}
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			b.Subscribe(c, "CTM0000000001")
		}()
		go func() {
			defer wg.Done()
			if err := b.PublishLocation(tick("DRV001", "CTM0000000001", 33.59, t1)); err != nil {
				t.Errorf("publish: %v", err)
			}
		}()
		wg.Wait()

		// Whether the subscriber raced in before or after the publish, it
		// must hold the newest accepted update: via fan-out or via catch-up.
		got := c.received()
		if len(got) == 0 {
			t.Fatal("subscriber received nothing")
		}
		if final := got[len(got)-1]; final.Timestamp.Before(t1) {
			t.Fatalf("subscriber ended at %v, newest accepted was %v", final.Timestamp, t1)
		}
	}
}

func TestBroadcasterConcurrentPublishOrder(t *testing.T) {
	b := NewBroadcaster()
	c1 := &fakeConn{id: "c1"}
	c2 := &fakeConn{id: "c2"}
	b.Subscribe(c1, "CTM0000000001")
	b.Subscribe(c2, "CTM0000000001")

	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Distinct drivers so no publish is dropped as stale.
			_ = b.PublishLocation(tick("DRV"+string(rune('A'+i)), "CTM0000000001", 33.5+float64(i)/1000, t0))
		}(i)
	}
	wg.Wait()

	got1, got2 := c1.received(), c2.received()
	if len(got1) != 20 || len(got2) != 20 {
		t.Fatalf("received %d and %d updates, want 20 each", len(got1), len(got2))
	}
	for i := range got1 {
		if got1[i].DriverID != got2[i].DriverID {
			t.Fatalf("subscribers saw different orders at index %d: %s vs %s", i, got1[i].DriverID, got2[i].DriverID)
		}
	}
}
