package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/AlesonDEV/Api.FreeCity.Services/internal/application"
	"github.com/AlesonDEV/Api.FreeCity.Services/internal/domain"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) root(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "FreeCity Lviv transit API. See /api/status for feed state.")
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ready(r.Context()); err != nil {
		writeMappedError(r.Context(), w, "readyz", err)
		return
	}
	writeMessage(w, http.StatusOK, "ready")
}

func (h *Handler) getStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Status(r.Context())
	if err != nil {
		writeMappedError(r.Context(), w, "get_status", err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) listRoutes(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.ListRoutes(r.Context())
	if err != nil {
		writeMappedError(r.Context(), w, "list_routes", err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) getRoute(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "route_id")
	resp, err := h.service.GetRoute(r.Context(), routeID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_route", err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) listShapes(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.ListShapes(r.Context())
	if err != nil {
		writeMappedError(r.Context(), w, "list_shapes", err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) listStops(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.ListStops(r.Context())
	if err != nil {
		writeMappedError(r.Context(), w, "list_stops", err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) getStop(w http.ResponseWriter, r *http.Request) {
	stopID := chi.URLParam(r, "stop_id")
	resp, err := h.service.GetStop(r.Context(), stopID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_stop", err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) nextDepartures(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		writeMappedError(r.Context(), w, "next_departures", err)
		return
	}
	resp, err := h.service.NextDepartures(r.Context(), application.DepartureRequest{
		StopID:    chi.URLParam(r, "stop_id"),
		Date:      strings.TrimSpace(q.Get("date")),
		StartTime: strings.TrimSpace(q.Get("startTime")),
		Limit:     limit,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "next_departures", err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) nextDeparture(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.service.NextDeparture(r.Context(), application.DepartureRequest{
		StopID:    chi.URLParam(r, "stop_id"),
		RouteID:   strings.TrimSpace(q.Get("route_id")),
		Date:      strings.TrimSpace(q.Get("date")),
		StartTime: strings.TrimSpace(q.Get("startTime")),
	})
	if err != nil {
		writeMappedError(r.Context(), w, "next_departure", err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

// parseLimit returns 0 for an absent limit so the service applies its default.
func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > application.MaxDepartureLimit {
		return 0, fmt.Errorf("%w: limit must be an integer between 1 and %d", domain.ErrInvalidInput, application.MaxDepartureLimit)
	}
	return n, nil
}
