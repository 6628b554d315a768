package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/profiledoc/profiledoc/internal/common"
	"github.com/profiledoc/profiledoc/internal/server/models"
	"github.com/profiledoc/profiledoc/internal/server/services"
)

type registerRequest struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	Surname     string `json:"surname"`
	DateOfBirth string `json:"date_of_birth"`
	Password    string `json:"password"`
}

// userResponse is the public shape of an account. The password hash never
// leaves the service.
type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Surname     string `json:"surname"`
	DateOfBirth string `json:"date_of_birth"`
	CreatedAt   string `json:"created_at"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Surname:     u.Surname,
		DateOfBirth: u.DateOfBirth.Format(time.DateOnly),
		CreatedAt:   u.CreatedAt.Format(time.RFC3339),
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func newTokenResponse(pair *services.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || !strings.Contains(req.Email, "@") {
		s.writeError(w, r, http.StatusBadRequest, "a valid email is required")
		return
	}
	if req.Password == "" {
		s.writeError(w, r, http.StatusBadRequest, "password is required")
		return
	}
	dob, err := time.Parse(time.DateOnly, req.DateOfBirth)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "date_of_birth must be YYYY-MM-DD")
		return
	}

	user, err := s.users.Register(r.Context(), services.RegisterInput{
		Email:       req.Email,
		Name:        req.Name,
		Surname:     req.Surname,
		DateOfBirth: dob,
		Password:    req.Password,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusCreated, newUserResponse(user))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, newTokenResponse(pair))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		s.writeError(w, r, http.StatusBadRequest, "refresh_token is required")
		return
	}

	pair, err := s.users.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, newTokenResponse(pair))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		s.writeError(w, r, http.StatusBadRequest, "refresh_token is required")
		return
	}

	if err := s.users.Logout(r.Context(), req.RefreshToken); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, map[string]string{"message": "logged out"})
}

// handleProfilePDF renders the caller's profile synchronously and streams the
// document back.
func (s *Server) handleProfilePDF(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		s.writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	data, err := s.profile.RenderProfile(r.Context(), user)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=profile_%s.pdf", user.ID))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Error(r.Context(), "error writing pdf response", "error", err)
	}
}

// handleProfileInStorage enqueues an async render job and answers 202 with
// the ticket. The document appears at the ticket link once a worker has
// processed the job.
func (s *Server) handleProfileInStorage(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		s.writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	ticket, err := s.profile.EnqueueProfile(r.Context(), user)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusAccepted, ticket)
}

func (s *Server) handleFetchPDF(w http.ResponseWriter, r *http.Request) {
	fileName := mux.Vars(r)["file_name"]

	data, err := s.profile.FetchProfile(r.Context(), fileName)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Error(r.Context(), "error writing pdf response", "error", err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(r.Context(), "error encoding response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.writeJSON(w, r, status, map[string]string{"error": msg})
}

// writeServiceError maps service-layer errors to HTTP statuses. Internal
// details are logged, not returned.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrInvalidCredentials):
		s.writeError(w, r, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, common.ErrTokenExpired):
		s.writeError(w, r, http.StatusUnauthorized, "token expired")
	case errors.Is(err, common.ErrRefreshTokenExpired):
		s.writeError(w, r, http.StatusUnauthorized, "refresh token expired")
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrUserNotFound):
		s.writeError(w, r, http.StatusUnauthorized, "invalid token")
	case errors.Is(err, common.ErrUserAlreadyExists), errors.Is(err, common.ErrUserCreateFailed):
		s.writeError(w, r, http.StatusConflict, "user already exists")
	case errors.Is(err, common.ErrorNotFound):
		s.writeError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrQueueUnavailable), errors.Is(err, common.ErrObjectStoreUnavailable):
		s.writeError(w, r, http.StatusServiceUnavailable, "service temporarily unavailable")
	default:
		s.logger.Error(r.Context(), "internal error", "error", err)
		s.writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
