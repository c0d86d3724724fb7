package http

import (
	"net/http"

	"github.com/AlesonDEV/Api.FreeCity.Services/internal/application"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

type Handler struct {
	service *application.Service
}

func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

type RouterOptions struct {
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter registers the public read API. The API is read-only, so only GET
// and OPTIONS are allowed cross-origin.
func NewRouter(handler *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", handler.root)
	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/api", func(r chi.Router) {
		if opts.RateLimitRPS > 0 {
			r.Use(rateLimitMiddleware(opts.RateLimitRPS, opts.RateLimitBurst))
		}
		r.Get("/status", handler.getStatus)
		r.Get("/routes", handler.listRoutes)
		r.Get("/routes/{route_id}", handler.getRoute)
		r.Get("/shapes", handler.listShapes)
		r.Get("/stops", handler.listStops)
		r.Get("/stops/{stop_id}", handler.getStop)
		r.Get("/stops/{stop_id}/next-departures", handler.nextDepartures)
		r.Get("/stops/{stop_id}/next-departure", handler.nextDeparture)
	})
	return r
}
