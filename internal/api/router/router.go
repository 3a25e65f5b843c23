package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgarridoc/citabot/internal/appointments"
	"github.com/dgarridoc/citabot/internal/chat"
	httpmiddleware "github.com/dgarridoc/citabot/internal/http/middleware"
	"github.com/dgarridoc/citabot/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	ChatHandler        *chat.Handler
	AdminAppointments  *appointments.Handler
	MetricsHandler     http.Handler
	JWTSecret          string
	AdminAuthSecret    string
	CORSAllowedOrigins []string
}

// New creates the Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Conversation endpoints. A session token is optional: anonymous users
	// chat without one, signed-in users get their name and email seeded.
	if cfg.ChatHandler != nil {
		r.Group(func(public chi.Router) {
			if cfg.JWTSecret != "" {
				public.Use(httpmiddleware.SessionIdentity(cfg.JWTSecret))
			}
			public.Mount("/chat", cfg.ChatHandler.Routes())
		})
	}

	// Admin endpoints require the admin JWT.
	if cfg.AdminAppointments != nil && cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Mount("/appointments", cfg.AdminAppointments.Routes())
		})
	}

	return r
}
