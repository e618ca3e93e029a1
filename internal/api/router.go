package api

import (
	"net/http"

	"delivery-tracking-service/internal/api/handlers"
	"delivery-tracking-service/internal/api/ws"
	"delivery-tracking-service/internal/services"
)

// NewRouter wires HTTP and websocket handlers with their dependencies and
// returns an http.Handler. This is the API composition root (handlers stay
// unaware of concrete adapters).
func NewRouter(engine *services.RouteEngine, orders *services.OrderService, broadcaster *services.Broadcaster) http.Handler {
	mux := http.NewServeMux()

	routeHandler := &handlers.RouteHandler{Engine: engine}
	orderHandler := &handlers.OrderHandler{Service: orders}
	locationHandler := &handlers.DriverLocationHandler{Broadcaster: broadcaster, Orders: orders}
	trackingWS := &ws.TrackingHandler{Broadcaster: broadcaster}
	driverWS := &ws.DriverHandler{Broadcaster: broadcaster, Orders: orders}

	mux.HandleFunc("GET /health", handlers.Health)
	mux.HandleFunc("POST /incity/routes", routeHandler.Compute)
	mux.HandleFunc("POST /orders", orderHandler.Create)
	mux.HandleFunc("GET /orders/{trackingNumber}", orderHandler.Get)
	mux.HandleFunc("POST /orders/{trackingNumber}/status", orderHandler.AppendStatus)
	mux.HandleFunc("POST /driver/location", locationHandler.Publish)
	mux.HandleFunc("GET /ws/track", trackingWS.Serve)
	mux.HandleFunc("GET /ws/driver", driverWS.Serve)

	return loggingMiddleware(mux)
}
