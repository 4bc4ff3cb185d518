package httpapi

import (
	"context"
	"net/http"
	"strings"

	"webshop/server/internal/server/services"
)

type ctxKey int

const principalKey ctxKey = iota

// principalFrom returns the principal the bearer middleware resolved for
// this request, or nil outside the protected route group.
func principalFrom(ctx context.Context) *services.Principal {
	p, _ := ctx.Value(principalKey).(*services.Principal)
	return p
}

// requirePrincipal verifies the bearer token and resolves its principal once
// per request. Expiry is enforced here; expired access tokens are only
// honored by the refresh endpoint, which does its own verification.
func (s *Server) requirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		claims, err := s.codec.Verify(token, true)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid access token")
			return
		}
		principal, err := s.resolver.Resolve(r.Context(), claims)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "unknown principal")
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}
