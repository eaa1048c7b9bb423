package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/application"
)

// Handler is the HTTP adapter entrypoint for tipping use-cases.
// Keeping only application dependency here preserves clean adapter boundaries.
type Handler struct {
	service *application.Service
}

// NewHandler constructs an HTTP handler bound to application service.
func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

// NewRouter registers the tipping HTTP routes and middleware stack.
// Centralizing routes here ensures consistent auth and error behavior across endpoints.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/tips/v1", func(r chi.Router) {
		r.Get("/auth/start", handler.authStart)
		r.Get("/auth/callback", handler.authCallback)

		r.Get("/profiles", handler.listProfiles)
		r.Get("/profiles/{slug}", handler.getProfile)
		r.Get("/profiles/{slug}/tips", handler.listProfileTips)
		r.Get("/transactions/{hash}", handler.getTip)
		r.Get("/accounts/{address}/balance", handler.getBalance)

		r.Group(func(r chi.Router) {
			r.Use(handler.sessionMiddleware)
			r.Get("/auth/session", handler.sessionStatus)
			r.Post("/auth/logout", handler.logout)
			r.Post("/profiles", handler.createProfile)
			r.Patch("/profiles/{slug}", handler.updateProfile)
			r.Post("/tips", handler.sendTip)
		})
	})

	return r
}
