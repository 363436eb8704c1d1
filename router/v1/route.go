package v1

import (
	"github.com/Sammk21/medusa-admin/handler"
	"github.com/go-chi/chi/v5"
)

// Handlers groups the handlers behind the authenticated v1 API. Logs may be nil
// when no call log database is configured.
type Handlers struct {
	Payment *handler.PaymentHandler
	Config  *handler.ConfigHandler
	Logs    *handler.LogsHandler
}

// Routes registers all authenticated API routes
func Routes(r chi.Router, h Handlers) {
	r.Route("/payments/{provider}", func(r chi.Router) {
		r.Post("/initiate", h.Payment.Initiate())
		r.Post("/update", h.Payment.Update())
		r.Post("/authorize", h.Payment.Authorize())
		r.Post("/capture", h.Payment.Capture())
		r.Post("/refund", h.Payment.Refund())
		r.Post("/cancel", h.Payment.Cancel())
		r.Post("/delete", h.Payment.Delete())
		r.Post("/retrieve", h.Payment.Retrieve())
		r.Post("/status", h.Payment.Status())
	})

	r.Route("/config", func(r chi.Router) {
		r.Get("/stats", h.Config.GetStats)
		r.Get("/{provider}/requirements", h.Config.GetRequirements)
		r.Get("/{provider}/{environment}", h.Config.GetConfig)
		r.Put("/{provider}/{environment}", h.Config.SetConfig)
		r.Delete("/{provider}/{environment}", h.Config.DeleteConfig)
	})

	if h.Logs != nil {
		r.Route("/logs/{provider}", func(r chi.Router) {
			r.Get("/", h.Logs.ListLogs)
			r.Get("/stats", h.Logs.GetStats)
		})
	}
}
