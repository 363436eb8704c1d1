package router

import (
	"net/http"
	"time"

	"github.com/Sammk21/medusa-admin/handler"
	"github.com/Sammk21/medusa-admin/infra/middle"
	"github.com/Sammk21/medusa-admin/infra/response"
	v1 "github.com/Sammk21/medusa-admin/router/v1"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Options wires the handlers and security settings of the HTTP API
type Options struct {
	APIKey         string
	AllowedOrigins []string
	RateLimiter    *middle.RateLimiter
	Health         *handler.HealthHandler
	Webhook        *handler.PaymentHandler
	API            v1.Handlers
}

// New builds the HTTP handler of the service
func New(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middle.RequestIDMiddleware())
	r.Use(middle.RequestLoggingMiddleware())
	r.Use(middle.PanicRecoveryMiddleware())
	r.Use(middle.SecurityHeadersMiddleware())

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", middle.RequestIDHeader, handler.EnvironmentHeader},
		ExposedHeaders: []string{middle.RequestIDHeader},
		MaxAge:         300,
	}))

	if opts.RateLimiter != nil {
		r.Use(middle.RateLimitMiddleware(opts.RateLimiter))
	}
	r.Use(middle.RequestValidationMiddleware())
	r.Use(middleware.Timeout(60 * time.Second))

	if opts.Health != nil {
		r.Get("/health", opts.Health.CheckHealth)
		r.Get("/health/live", opts.Health.Live)
	}

	r.Route("/v1", func(r chi.Router) {
		// gateways authenticate webhooks with their own signature
		if opts.Webhook != nil {
			r.Post("/webhooks/{provider}", opts.Webhook.HandleWebhook)
		}

		// IP_WHITELIST names the commerce backends; gateway deliveries come from elsewhere
		r.Group(func(r chi.Router) {
			r.Use(middle.IPWhitelistMiddleware())
			r.Use(middle.AuthMiddleware(opts.APIKey))
			v1.Routes(r, opts.API)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotFound, "Not Found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})

	return r
}
