// Package services contains the server-side business logic: token
// lifecycle, principal resolution, identity promotion at signup, cart
// synchronization, and the catalog read surface.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"time"

	"webshop/server/internal/common"
	"webshop/server/internal/dbx"
	"webshop/server/internal/server/config"
	"webshop/server/internal/server/models"
	"webshop/server/internal/server/repositories/repomanager"
	"webshop/server/internal/server/tokens"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService is the token lifecycle manager:
//   - IssueForSession: mint a pair and persist the refresh value (single slot)
//   - Login / SignupAnonymous: entry points that end in IssueForSession
//   - Refresh: validate and rotate a pair; rotation is mandatory
//   - Revoke: clear the refresh slot
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	codec       *tokens.Codec
	resolver    *PrincipalResolver

	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewAuthService constructs an AuthService using repositories and server config.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, codec *tokens.Codec, resolver *PrincipalResolver, cfg *config.Config) *AuthService {
	return &AuthService{
		db:                           db,
		repomanager:                  m,
		codec:                        codec,
		resolver:                     resolver,
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// IssueForSession mints an access+refresh pair for the session and persists
// the refresh value onto the session row, overwriting any previous value.
// This is the only code path that writes the refresh slot. The caller
// provides the transaction scope.
//
// With a user the access token carries the login email and role names; for
// an anonymous session it carries the session id. The refresh token carries
// no identity claims at all.
func (s *AuthService) IssueForSession(ctx context.Context, tx dbx.DBTX, session *models.Session, user *models.User) (*TokenPair, error) {
	var subject tokens.Subject
	var roles []string

	if user != nil {
		subject = tokens.AuthenticatedSubject(user.Email)
		var err error
		roles, err = s.repomanager.Users(tx).Roles(ctx, user.ID)
		if err != nil {
			return nil, err
		}
	} else {
		subject = tokens.AnonymousSubject(session.ID)
	}

	access, err := s.codec.Issue(subject, roles, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrInternal
	}
	refresh, err := s.codec.IssueOpaque(s.refreshTokenValidityDuration)
	if err != nil {
		return nil, common.ErrInternal
	}

	if err := s.repomanager.Sessions(tx).SetRefreshToken(ctx, session.ID, &refresh); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Login verifies the credentials and, on success, issues a fresh pair for
// the user's session. Unknown email, wrong password and a missing
// credential row all collapse into ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := s.repomanager.Credentials(s.db).Verify(ctx, user.ID, password)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}
	if !ok {
		return nil, common.ErrInvalidCredentials
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		session, err := s.repomanager.Sessions(tx).GetForUpdate(ctx, user.SessionID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.ErrSessionNotFound
			}
			return err
		}
		pair, err = s.IssueForSession(ctx, tx, session, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// SignupAnonymous allocates a fresh empty session and issues an anonymous
// pair for it, so a shopper can carry a cart before registering.
func (s *AuthService) SignupAnonymous(ctx context.Context) (*TokenPair, error) {
	var pair *TokenPair
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		session, err := s.repomanager.Sessions(tx).Create(ctx)
		if err != nil {
			return err
		}
		pair, err = s.IssueForSession(ctx, tx, session, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Refresh exchanges a token pair for a new one.
//
// The access token is verified with expiry ignored (it is allowed to have
// run out while the refresh token is live); any other verification or
// resolution failure is ErrInvalidAccessToken. The refresh token's
// signature, issuer and audience are always enforced, but its expiry only
// when the session is bound to a user: an anonymous shopper has no way to
// re-authenticate, so an expired anonymous refresh token is still accepted.
//
// The presented refresh value is compared byte-for-byte against the
// session's stored slot under a row lock, which catches replay of a
// superseded token and serializes concurrent refreshes. On success the
// slot is rotated unconditionally.
func (s *AuthService) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	claims, err := s.codec.Verify(accessToken, false)
	if err != nil {
		return nil, common.ErrInvalidAccessToken
	}
	principal, err := s.resolver.Resolve(ctx, claims)
	if err != nil {
		return nil, common.ErrInvalidAccessToken
	}

	if _, err := s.codec.Verify(refreshToken, principal.Authenticated()); err != nil {
		return nil, common.ErrInvalidRefreshToken
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		locked, err := s.repomanager.Sessions(tx).GetForUpdate(ctx, principal.Session.ID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.ErrSessionNotFound
			}
			return err
		}
		if locked.RefreshToken == nil ||
			subtle.ConstantTimeCompare([]byte(*locked.RefreshToken), []byte(refreshToken)) != 1 {
			return common.ErrInvalidRefreshToken
		}
		pair, err = s.IssueForSession(ctx, tx, locked, principal.User)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Revoke clears the session's refresh slot. Subsequent Refresh calls fail
// until a new login or signup issues a pair again.
func (s *AuthService) Revoke(ctx context.Context, session *models.Session) error {
	return s.repomanager.Sessions(s.db).SetRefreshToken(ctx, session.ID, nil)
}
