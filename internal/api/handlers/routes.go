package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"delivery-tracking-service/internal/api/dto"
	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/internal/services"
)

// RouteHandler exposes in-city route computation.
type RouteHandler struct {
	Engine *services.RouteEngine
}

// Compute validates the request and returns the annotated route. Input
// errors map to 400/422; collaborator failures never surface here because
// the engine degrades instead of failing.
func (h *RouteHandler) Compute(w http.ResponseWriter, r *http.Request) {
	var req dto.RouteRequest

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

	// Weight is optional on this endpoint; the engine defaults the class.
	var weightClass domain.WeightClass
	if req.WeightKg > 0 {
		weightClass = domain.ClassifyWeight(req.WeightKg)
	}

	result, err := h.Engine.ComputeRoute(r.Context(), domain.RouteRequest{
		Origin:      domain.Coordinate{Lat: req.Origin.Lat, Lon: req.Origin.Lon},
		Destination: domain.Coordinate{Lat: req.Destination.Lat, Lon: req.Destination.Lon},
		City:        req.City,
		WeightClass: weightClass,
	})
	switch {
	case errors.Is(err, domain.ErrUnknownCity):
		writeError(w, r, http.StatusBadRequest, "unknown city")
		return
	case errors.Is(err, domain.ErrOutOfBounds):
		writeError(w, r, http.StatusUnprocessableEntity, "coordinates out of city bounds")
		return
	case errors.Is(err, domain.ErrDegenerateRoute):
		writeError(w, r, http.StatusUnprocessableEntity, "origin and destination coincide")
		return
	case err != nil:
		log.Printf("compute route failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, routeToDTO(result))
}
