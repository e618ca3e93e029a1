package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// drivesim replays an order's route geometry as live driver GPS ticks over
// the driver websocket channel. It is a development tool: create an order,
// compute its route, then point drivesim at the tracking number and watch
// subscribers receive the movement.
func main() {
	server := flag.String("server", "localhost:8080", "host:port of the tracking service")
	tracking := flag.String("tracking", "", "tracking number to simulate (required)")
	driver := flag.String("driver", "DRV001", "driver id to report as")
	interval := flag.Duration("interval", 3*time.Second, "delay between GPS ticks")
	jitter := flag.Float64("jitter", 0.0001, "random degrees added to each point")
	flag.Parse()

	if *tracking == "" {
		log.Fatal("-tracking is required")
	}

	geometry, err := fetchRouteGeometry(*server, *tracking)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("simulating driver=%s tracking=%s points=%d", *driver, *tracking, len(geometry))

	wsURL := url.URL{Scheme: "ws", Host: *server, Path: "/ws/driver"}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		log.Fatalf("dial %s: %v", wsURL.String(), err)
	}
	defer conn.Close()

	for i, point := range geometry {
		tick := map[string]any{
			"type":            "location",
			"driver_id":       *driver,
			"tracking_number": *tracking,
			"lat":             point.Lat + wobble(*jitter),
			"lon":             point.Lon + wobble(*jitter),
			"timestamp":       time.Now().UTC(),
		}
		if err := conn.WriteJSON(tick); err != nil {
			log.Fatalf("write tick %d: %v", i+1, err)
		}

		var ack struct {
			Type   string `json:"type"`
			Result string `json:"result"`
			Error  string `json:"error"`
		}
		if err := conn.ReadJSON(&ack); err != nil {
			log.Fatalf("read ack %d: %v", i+1, err)
		}
		if ack.Type == "error" {
			log.Fatalf("tick %d rejected: %s", i+1, ack.Error)
		}
		log.Printf("point %d/%d lat=%.6f lon=%.6f result=%s", i+1, len(geometry), tick["lat"], tick["lon"], ack.Result)

		if i < len(geometry)-1 {
			time.Sleep(*interval)
		}
	}

	log.Println("simulation complete")
}

// wobble returns a random offset in [-magnitude, magnitude] so replayed
// points look like real GPS readings rather than the stored polyline.
func wobble(magnitude float64) float64 {
	return (rand.Float64()*2 - 1) * magnitude
}

type coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// fetchRouteGeometry loads the order and returns its attached route geometry.
// Orders without a computed route cannot be simulated.
func fetchRouteGeometry(server, tracking string) ([]coordinate, error) {
	resp, err := http.Get(fmt.Sprintf("http://%s/orders/%s", server, tracking))
	if err != nil {
		return nil, fmt.Errorf("fetch order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch order: status %d", resp.StatusCode)
	}

	var order struct {
		Route *struct {
			Geometry []coordinate `json:"geometry"`
		} `json:"route"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("fetch order: decode: %w", err)
	}
	if order.Route == nil || len(order.Route.Geometry) == 0 {
		return nil, fmt.Errorf("order %s has no route geometry, compute a route first", tracking)
	}

	return order.Route.Geometry, nil
}
