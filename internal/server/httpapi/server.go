// Package httpapi exposes the service over HTTP under /api/v1: account
// registration, session management with JWT pairs, and the synchronous and
// queued profile-PDF endpoints.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/profiledoc/profiledoc/internal/logging"
	"github.com/profiledoc/profiledoc/internal/server/services"
)

// Server holds the HTTP routing and handlers over the service layer.
type Server struct {
	users   *services.UserService
	profile *services.ProfileService
	logger  logging.Logger
	router  *mux.Router
}

func NewServer(users *services.UserService, profile *services.ProfileService, logger logging.Logger) *Server {
	s := &Server{
		users:   users,
		profile: profile,
		logger:  logger.With("component", "http"),
		router:  mux.NewRouter(),
	}
	s.routes()
	return s
}

// Handler returns the root handler for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.logRequests)

	api.HandleFunc("/users", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/sessions", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)
	api.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)

	api.HandleFunc("/pdf/{file_name}", s.handleFetchPDF).Methods(http.MethodGet)

	authed := api.NewRoute().Subrouter()
	authed.Use(s.authenticate)
	authed.HandleFunc("/me/profile", s.handleProfilePDF).Methods(http.MethodGet)
	authed.HandleFunc("/me/profile-in-storage", s.handleProfileInStorage).Methods(http.MethodGet)
	authed.HandleFunc("/pdf/generate", s.handleProfilePDF).Methods(http.MethodPost)
	authed.HandleFunc("/pdf/generate-in-storage", s.handleProfileInStorage).Methods(http.MethodPost)
}
