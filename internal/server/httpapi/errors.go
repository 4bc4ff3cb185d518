package httpapi

import (
	"errors"
	"net/http"

	"webshop/server/internal/common"
)

// errorKind maps a service error onto an HTTP status and a stable kind
// string for the error envelope. Anything unmapped is a 500.
func errorKind(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusUnprocessableEntity, "validation"
	case errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, common.ErrNotAuthenticated):
		return http.StatusUnauthorized, "not_authenticated"
	case errors.Is(err, common.ErrUserExists):
		return http.StatusConflict, "user_exists"
	case errors.Is(err, common.ErrSessionAlreadyClaimed):
		return http.StatusConflict, "session_claimed"
	case errors.Is(err, common.ErrStaleCartWrite):
		return http.StatusConflict, "stale_cart"
	case errors.Is(err, common.ErrInvalidAccessToken):
		return http.StatusUnprocessableEntity, "invalid_access_token"
	case errors.Is(err, common.ErrInvalidRefreshToken):
		return http.StatusUnprocessableEntity, "invalid_refresh_token"
	case errors.Is(err, common.ErrMalformedClaims):
		return http.StatusUnprocessableEntity, "invalid_access_token"
	case errors.Is(err, common.ErrNotFound),
		errors.Is(err, common.ErrUserNotFound),
		errors.Is(err, common.ErrSessionNotFound):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *Server) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := errorKind(err)
	if status == http.StatusInternalServerError {
		s.log.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, status, kind, "internal error")
		return
	}
	writeError(w, status, kind, err.Error())
}
