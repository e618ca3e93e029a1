package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"delivery-tracking-service/internal/api/dto"
	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/internal/services"
)

// OrderHandler exposes order intake, lookup and status transitions.
type OrderHandler struct {
	Service *services.OrderService
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateOrderRequest

	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return
	}

	if req.City == "" {
		writeError(w, r, http.StatusBadRequest, "city is required")
		return
	}
	if req.WeightKg <= 0 {
		writeError(w, r, http.StatusBadRequest, "weight_kg must be positive")
		return
	}

	destination := domain.Coordinate{Lat: req.Destination.Lat, Lon: req.Destination.Lon}
	order, err := h.Service.CreateOrder(r.Context(), req.City, req.WeightKg, destination)
	switch {
	case errors.Is(err, domain.ErrUnknownCity):
		writeError(w, r, http.StatusBadRequest, "unknown city")
		return
	case errors.Is(err, domain.ErrOutOfBounds):
		writeError(w, r, http.StatusUnprocessableEntity, "destination out of city bounds")
		return
	case err != nil:
		log.Printf("create order failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusCreated, orderToDTO(order))
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	trackingNumber := r.PathValue("trackingNumber")
	if trackingNumber == "" {
		writeError(w, r, http.StatusBadRequest, "tracking number is required")
		return
	}

	order, err := h.Service.GetOrder(r.Context(), trackingNumber)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "order not found")
		return
	case err != nil:
		log.Printf("get order failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, orderToDTO(order))
}

func (h *OrderHandler) AppendStatus(w http.ResponseWriter, r *http.Request) {
	trackingNumber := r.PathValue("trackingNumber")
	if trackingNumber == "" {
		writeError(w, r, http.StatusBadRequest, "tracking number is required")
		return
	}

	var req dto.AppendStatusRequest

	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}

	err := h.Service.AppendStatus(r.Context(), trackingNumber, domain.OrderStatus(req.Status), req.Message)
	switch {
	case errors.Is(err, domain.ErrUnknownOrder):
		writeError(w, r, http.StatusNotFound, "unknown order")
		return
	case err != nil && !domain.ValidStatus(domain.OrderStatus(req.Status)):
		writeError(w, r, http.StatusBadRequest, "invalid status")
		return
	case err != nil:
		log.Printf("append status failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"tracking_number": trackingNumber, "status": req.Status})
}

// DriverLocationHandler ingests driver GPS ticks over plain HTTP, for
// driver clients that cannot hold a websocket. Stale updates are dropped
// and acknowledged as ignored, mirroring the websocket publish channel.
type DriverLocationHandler struct {
	Broadcaster *services.Broadcaster
	Orders      *services.OrderService
}

func (h *DriverLocationHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var req dto.DriverLocationRequest

	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()

	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.DriverID == "" || req.TrackingNumber == "" {
		writeError(w, r, http.StatusBadRequest, "driver_id and tracking_number are required")
		return
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}

	update := domain.DriverLocationUpdate{
		DriverID:       req.DriverID,
		TrackingNumber: req.TrackingNumber,
		Location:       domain.Coordinate{Lat: req.Location.Lat, Lon: req.Location.Lon},
		Timestamp:      req.Timestamp,
	}

	if err := h.Broadcaster.PublishLocation(update); err != nil {
		if errors.Is(err, domain.ErrStaleUpdate) {
			log.Printf("stale driver update dropped: driver=%s tracking=%s", req.DriverID, req.TrackingNumber)
			writeJSON(w, r, http.StatusOK, map[string]string{"result": "ignored"})
			return
		}
		log.Printf("publish location failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	if h.Orders != nil {
		if status, changed, err := h.Orders.ProgressByProximity(r.Context(), req.TrackingNumber, update.Location); err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				log.Printf("proximity progression failed: tracking=%s err=%v", req.TrackingNumber, err)
			}
		} else if changed {
			log.Printf("order progressed by proximity: tracking=%s status=%s", req.TrackingNumber, status)
		}
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"result": "accepted"})
}
