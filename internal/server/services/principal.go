package services

import (
	"context"
	"database/sql"
	"errors"

	"webshop/server/internal/common"
	"webshop/server/internal/server/models"
	"webshop/server/internal/server/repositories/repomanager"
	"webshop/server/internal/server/tokens"
)

// Principal is the resolved identity context for a request: the session
// always, plus the user when the caller is authenticated. User == nil means
// the caller is an anonymous shopper.
type Principal struct {
	Session *models.Session
	User    *models.User
}

// Authenticated reports whether the principal carries a registered user.
func (p *Principal) Authenticated() bool { return p.User != nil }

// PrincipalResolver turns a verified claim set into a Principal by loading
// the backing session (and user) from storage.
type PrincipalResolver struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

// NewPrincipalResolver constructs a PrincipalResolver.
func NewPrincipalResolver(db *sql.DB, m repomanager.RepositoryManager) *PrincipalResolver {
	return &PrincipalResolver{db: db, repomanager: m}
}

// Resolve maps claims to a Principal:
//   - authenticated claim: user by email, then the user's session with cart
//     lines; a user without a session is a data-integrity violation and
//     surfaces as ErrSessionNotFound;
//   - anonymous claim: session by id with cart lines;
//   - neither: ErrMalformedClaims.
func (r *PrincipalResolver) Resolve(ctx context.Context, claims *tokens.Claims) (*Principal, error) {
	subject, err := claims.ParseSubject()
	if err != nil {
		return nil, err
	}
	return r.resolveSubject(ctx, subject)
}

// ResolveAuthenticated is the strict variant used by endpoints that require
// a registered user: an anonymous claim fails with ErrNotAuthenticated.
func (r *PrincipalResolver) ResolveAuthenticated(ctx context.Context, claims *tokens.Claims) (*Principal, error) {
	subject, err := claims.ParseSubject()
	if err != nil {
		return nil, err
	}
	if subject.Kind != tokens.SubjectAuthenticated {
		return nil, common.ErrNotAuthenticated
	}
	return r.resolveSubject(ctx, subject)
}

func (r *PrincipalResolver) resolveSubject(ctx context.Context, subject tokens.Subject) (*Principal, error) {
	sessionRepo := r.repomanager.Sessions(r.db)

	switch subject.Kind {
	case tokens.SubjectAuthenticated:
		user, err := r.repomanager.Users(r.db).GetByEmail(ctx, subject.Email)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return nil, common.ErrUserNotFound
			}
			return nil, err
		}
		session, err := sessionRepo.Get(ctx, user.SessionID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return nil, common.ErrSessionNotFound
			}
			return nil, err
		}
		return &Principal{Session: session, User: user}, nil

	case tokens.SubjectAnonymous:
		session, err := sessionRepo.Get(ctx, subject.SessionID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return nil, common.ErrSessionNotFound
			}
			return nil, err
		}
		return &Principal{Session: session}, nil

	default:
		return nil, common.ErrMalformedClaims
	}
}
