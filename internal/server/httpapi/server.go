// Package httpapi exposes the shop backend over HTTP/JSON: token issuance
// and rotation, signup with identity promotion, cart synchronization and the
// catalog read surface.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"webshop/server/internal/logging"
	"webshop/server/internal/server/services"
	"webshop/server/internal/server/tokens"
)

// Server bundles the services behind the HTTP surface.
type Server struct {
	auth     *services.AuthService
	signup   *services.SignupService
	cart     *services.CartService
	catalog  *services.CatalogService
	codec    *tokens.Codec
	resolver *services.PrincipalResolver
	log      logging.Logger
}

// NewServer constructs the HTTP server facade.
func NewServer(
	auth *services.AuthService,
	signup *services.SignupService,
	cart *services.CartService,
	catalog *services.CatalogService,
	codec *tokens.Codec,
	resolver *services.PrincipalResolver,
	log logging.Logger,
) *Server {
	return &Server{
		auth:     auth,
		signup:   signup,
		cart:     cart,
		catalog:  catalog,
		codec:    codec,
		resolver: resolver,
		log:      log,
	}
}

// Router builds the chi router with all routes registered.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Post("/auth/signup", s.handleSignup)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/signup-anonymous", s.handleSignupAnonymous)
	r.Post("/token/refresh", s.handleRefresh)

	r.Get("/goods", s.handleListGoods)
	r.Get("/goods/{id}", s.handleGetGood)

	r.Group(func(r chi.Router) {
		r.Use(s.requirePrincipal)
		r.Post("/token/revoke", s.handleRevoke)
		r.Put("/cart", s.handleSetCart)
		r.Get("/cart", s.handleGetCart)
		r.Post("/goods/{id}/picture-url", s.handlePictureURL)
		r.Delete("/user", s.handleDeleteUser)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
