package web

import (
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/facetrack/internal/web/handlers"
	"github.com/kozaktomas/facetrack/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	// Create handlers
	facesHandler := handlers.NewFacesHandler(s.tracker)
	framesHandler := handlers.NewFramesHandler(s.tracker, s.config.Tracker.Mirrored)
	trackingHandler := handlers.NewTrackingHandler(s.ctx, s.tracker)
	eventsHandler := handlers.NewEventsHandler(s.tracker, s.journal, s.origins)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireAPIKey(s.config.Web.APIKey))

		// Streams are long-lived and must not be cut by the request timeout
		r.Get("/events", eventsHandler.Stream)
		r.Get("/events/ws", eventsHandler.WebSocket)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(2 * time.Minute))

			// Faces
			r.Get("/faces", facesHandler.List)
			r.Post("/faces", facesHandler.Enroll)
			r.Get("/faces/{identifier}", facesHandler.Get)
			r.Get("/faces/{identifier}/sample.png", facesHandler.Sample)
			r.Delete("/faces/{identifier}", facesHandler.Delete)

			// Frames
			r.Post("/frames", framesHandler.Submit)
			r.Post("/frames/classify", framesHandler.Classify)

			// Tracking
			r.Post("/tracking/start", trackingHandler.Start)
			r.Post("/tracking/stop", trackingHandler.Stop)
			r.Get("/tracking/status", trackingHandler.Status)

			// Journal
			r.Get("/events/recent", eventsHandler.Recent)
		})
	})
}
