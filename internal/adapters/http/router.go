package http

import (
	"net/http"

	"github.com/etherna/sso/internal/application"
	"github.com/go-chi/chi/v5"
)

// Handler is the HTTP adapter entrypoint for identity use-cases.
// Keeping only the application dependency here preserves clean adapter boundaries.
type Handler struct {
	service *application.Service
}

// NewHandler constructs an HTTP handler bound to the application service.
func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

// NewRouter registers the identity HTTP routes and middleware stack.
// Centralizing routes here ensures consistent auth and error behavior across endpoints.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Post("/connect/token", handler.token)
	r.Get("/.well-known/jwks.json", handler.jwks)

	r.Route("/api/v0.3", func(r chi.Router) {
		r.Post("/auth/register", handler.register)
		r.Post("/auth/register/web3", handler.registerWeb3)
		r.Post("/auth/login", handler.login)
		r.Post("/auth/web3/login", handler.web3Login)
		r.Get("/auth/web3/{etherAddress}", handler.web3Challenge)
		r.Delete("/identity/web3", handler.deleteAccountByWallet)

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)
			r.Post("/auth/logout", handler.logout)
			r.Get("/identity", handler.currentAccount)
			r.Put("/identity/username", handler.changeUsername)
			r.Put("/identity/email", handler.changeEmail)
			r.Put("/identity/password", handler.changePassword)
			r.Post("/identity/web3/link", handler.linkWallet)
			r.Delete("/identity/web3/link", handler.unlinkWallet)
			r.Post("/identity/web3/upgrade", handler.upgradeToWeb3)
			r.Put("/identity/web3/address", handler.changeWalletAddress)
			r.Get("/identity/apikeys", handler.listApiKeys)
			r.Post("/identity/apikeys", handler.createApiKey)
			r.Get("/identity/apikeys/{keyID}", handler.getApiKey)
			r.Delete("/identity/apikeys/{keyID}", handler.deleteApiKey)
		})

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)
			r.Get("/system/roles", handler.listRoles)
			r.Post("/system/maintenance/web3-tokens", handler.sweepWeb3Tokens)
			r.Post("/system/maintenance/invitations", handler.sweepInvitations)
		})
	})

	return r
}
