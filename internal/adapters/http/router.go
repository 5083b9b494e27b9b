package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/talentbase/auth-service/internal/application"
	"github.com/talentbase/auth-service/internal/domain"
	"github.com/talentbase/auth-service/internal/ports"
)

// Handler is the HTTP adapter entrypoint for auth and user-management
// use-cases. Keeping only application dependencies here preserves clean
// adapter boundaries.
type Handler struct {
	service *application.Service
	codec   ports.TokenCodec
	cookies CookieOptions
}

// NewHandler constructs an HTTP handler bound to the application service.
func NewHandler(service *application.Service, codec ports.TokenCodec, cookies CookieOptions) *Handler {
	return &Handler{service: service, codec: codec, cookies: cookies}
}

// NewRouter registers HTTP routes and the middleware stack. Centralizing
// routes here ensures consistent auth and error behavior across endpoints.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/api/health", handler.health)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", handler.register)
		r.Post("/login", handler.login)
		r.Post("/refresh", handler.refresh)

		r.Group(func(r chi.Router) {
			r.Use(handler.optionalAuthenticate)
			r.Post("/logout", handler.logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(handler.authenticate)
			r.Get("/me", handler.me)
			r.Put("/password", handler.changePassword)
			r.Put("/profile", handler.updateProfile)
		})
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Use(handler.authenticate)

		r.Get("/me", handler.me)
		r.With(requireRole(domain.AvailableViewers)).Get("/available", handler.listAvailable)

		r.Group(func(r chi.Router) {
			r.Use(requireRole(domain.AdminOnly))
			r.Get("/", handler.listUsers)
			r.Get("/stats", handler.userStats)
			r.Post("/", handler.createUser)
			r.Put("/{userID}", handler.updateUser)
			r.Patch("/{userID}/status", handler.setUserStatus)
			r.Put("/{userID}/password", handler.resetUserPassword)
		})

		r.With(ownerOrAdmin).Get("/{userID}", handler.getUser)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok", "service": serviceName})
}
