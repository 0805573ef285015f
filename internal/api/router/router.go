package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/voiceclinic/callpilot/internal/calls"
	"github.com/voiceclinic/callpilot/internal/webhook"
	"github.com/voiceclinic/callpilot/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	WebhookHandler *webhook.Handler
	CallsHandler   *calls.Handler
	MetricsHandler http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthCheck)

	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/vapi", cfg.WebhookHandler.HandleEndOfCall)
		r.Route("/tools", func(r chi.Router) {
			r.Post("/check-appointment-limit", cfg.WebhookHandler.HandleCheckAppointmentLimit)
			r.Post("/fetch-doctors", cfg.WebhookHandler.HandleFetchAllDoctors)
		})
		if cfg.CallsHandler != nil {
			r.Post("/vapi/events", cfg.CallsHandler.HandleEvent)
		}
	})

	if cfg.CallsHandler != nil {
		r.Route("/calls", func(r chi.Router) {
			r.Get("/", cfg.CallsHandler.ListCalls)
			r.Get("/{callID}", cfg.CallsHandler.GetCall)
			r.Get("/{callID}/ws", cfg.CallsHandler.StreamTranscript)
		})
	}

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
