package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Shivanand-hulikatti/room-booking/internal/identity"
)

// NewRouter builds the HTTP API.
func NewRouter(h *BookingHandler, verifier identity.Verifier, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(log))
	r.Use(CORS)

	r.Get("/health", HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Use(Authenticate(verifier))

		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", h.CreateBooking)
			r.Get("/", h.ListBookings)
			r.Get("/availability", h.Availability)
			r.Post("/{id}/arrival", h.MarkArrived)
		})

		r.Route("/admin/bookings", func(r chi.Router) {
			r.Get("/", h.ListAllBookings)
			r.Patch("/{id}/status", h.SetStatus)
		})
	})

	return r
}
