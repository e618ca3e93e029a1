package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"delivery-tracking-service/internal/api/dto"
	"delivery-tracking-service/internal/domain"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode failed: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

func routeToDTO(result *domain.RouteResult) *dto.RouteResponse {
	if result == nil {
		return nil
	}

	geometry := make([]dto.CoordinateDTO, 0, len(result.Geometry))
	for _, c := range result.Geometry {
		geometry = append(geometry, dto.CoordinateDTO{Lat: c.Lat, Lon: c.Lon})
	}

	var weather *dto.WeatherResponse
	if result.Weather != nil {
		weather = &dto.WeatherResponse{
			TemperatureC: result.Weather.TemperatureC,
			Condition:    result.Weather.Condition,
			Description:  result.Weather.Description,
		}
	}

	return &dto.RouteResponse{
		Geometry:            geometry,
		DistanceKm:          result.DistanceKm,
		DurationMinutes:     result.DurationMinutes,
		BaseDurationMinutes: result.BaseDurationMinutes,
		TrafficLevel:        string(result.TrafficLevel),
		TrafficDelayMinutes: result.TrafficDelayMinutes,
		EstimatedCost:       result.EstimatedCost,
		Weather:             weather,
		Degraded:            result.Degraded,
		ShouldRecalculate:   result.ShouldRecalculate,
		ComputedAt:          result.ComputedAt,
	}
}

func orderToDTO(order *domain.Order) dto.OrderResponse {
	history := make([]dto.StatusEntryResponse, 0, len(order.History))
	for _, entry := range order.History {
		history = append(history, dto.StatusEntryResponse{
			Status:    string(entry.Status),
			Message:   entry.Message,
			Timestamp: entry.Timestamp,
		})
	}

	return dto.OrderResponse{
		TrackingNumber: order.TrackingNumber,
		City:           order.City,
		WeightClass:    string(order.WeightClass),
		Status:         string(order.CurrentStatus),
		History:        history,
		Route:          routeToDTO(order.Route),
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
}
