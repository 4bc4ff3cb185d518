// Package common defines shared sentinel errors used across the server
// layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrInternal   = errors.New("internal error")
	ErrValidation = errors.New("validation error")

	// Credential errors.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")

	// Token verification errors.
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrTokenExpired     = errors.New("token expired")
	ErrWrongIssuer      = errors.New("wrong token issuer")
	ErrWrongAudience    = errors.New("wrong token audience")
	ErrMalformedToken   = errors.New("malformed token")
	ErrMalformedClaims  = errors.New("malformed claims")

	// Principal resolution errors.
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrUserNotFound     = errors.New("user not found")
	ErrSessionNotFound  = errors.New("session not found")

	// Token lifecycle errors.
	ErrInvalidAccessToken  = errors.New("invalid access token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// Signup errors.
	ErrSessionAlreadyClaimed = errors.New("session already claimed")

	// Cart errors.
	ErrStaleCartWrite = errors.New("stale cart write")
)
