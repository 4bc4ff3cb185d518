package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"webshop/server/internal/common"
	"webshop/server/internal/dbx"
	"webshop/server/internal/server/models"
	"webshop/server/internal/server/repositories/repomanager"
	"webshop/server/internal/server/tokens"
)

// DefaultRole is granted to every user created through signup.
const DefaultRole = "customer"

// SignupInput is the signup request payload. AccessToken, when present, is
// the anonymous access token whose session should be promoted.
type SignupInput struct {
	Name        string
	Surname     string
	Email       string
	Password    string
	AccessToken string
}

// SignupService handles identity promotion: turning an anonymous session
// into a registered user's session at signup, and the reverse at account
// deletion.
type SignupService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	codec       *tokens.Codec
	auth        *AuthService
}

// NewSignupService constructs a SignupService.
func NewSignupService(db *sql.DB, m repomanager.RepositoryManager, codec *tokens.Codec, auth *AuthService) *SignupService {
	return &SignupService{db: db, repomanager: m, codec: codec, auth: auth}
}

// CreateUserFromSignup registers a new user.
//
// Without an access token a brand-new session is allocated. With one, the
// token is verified (expiry enforced), its anonymous-session claim is
// extracted and that session is promoted — cart lines and the cart-save
// clock are left untouched. A session already bound to a user fails with
// ErrSessionAlreadyClaimed.
//
// User row, default role, credential and the issued pair are all written in
// one transaction, so a credential-store failure rolls the allocated or
// attached session binding back and leaves no orphaned state.
func (s *SignupService) CreateUserFromSignup(ctx context.Context, in SignupInput) (*models.User, *TokenPair, error) {
	if err := validateSignup(in); err != nil {
		return nil, nil, err
	}

	if _, err := s.repomanager.Users(s.db).GetByEmail(ctx, in.Email); err == nil {
		return nil, nil, common.ErrUserExists
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, nil, err
	}

	var promoteID *int64
	if in.AccessToken != "" {
		claims, err := s.codec.Verify(in.AccessToken, true)
		if err != nil {
			return nil, nil, common.ErrInvalidAccessToken
		}
		subject, err := claims.ParseSubject()
		if err != nil {
			return nil, nil, err
		}
		if subject.Kind != tokens.SubjectAnonymous {
			return nil, nil, common.ErrMalformedClaims
		}
		promoteID = &subject.SessionID
	}

	var user *models.User
	var pair *TokenPair
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		sessionRepo := s.repomanager.Sessions(tx)

		var session *models.Session
		var err error
		if promoteID != nil {
			session, err = sessionRepo.Get(ctx, *promoteID)
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.ErrSessionNotFound
				}
				return err
			}
			if session.UserID != nil {
				return common.ErrSessionAlreadyClaimed
			}
		} else {
			session, err = sessionRepo.Create(ctx)
			if err != nil {
				return err
			}
		}

		userRepo := s.repomanager.Users(tx)
		user, err = userRepo.Create(ctx, &models.User{
			Email:     in.Email,
			Name:      in.Name,
			Surname:   in.Surname,
			SessionID: session.ID,
		})
		if err != nil {
			return err
		}
		if err := userRepo.AddRole(ctx, user.ID, DefaultRole); err != nil {
			return err
		}

		if err := s.repomanager.Credentials(tx).Create(ctx, user.ID, in.Password); err != nil {
			return err
		}

		pair, err = s.auth.IssueForSession(ctx, tx, session, user)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// DeleteAccount removes the user, its credentials and roles, and the owning
// session with its cart lines, all in one transaction.
func (s *SignupService) DeleteAccount(ctx context.Context, principal *Principal) error {
	if !principal.Authenticated() {
		return common.ErrNotAuthenticated
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Credentials(tx).Delete(ctx, principal.User.ID); err != nil {
			return err
		}
		if err := s.repomanager.Users(tx).Delete(ctx, principal.User.ID); err != nil {
			return err
		}
		return s.repomanager.Sessions(tx).Delete(ctx, principal.Session.ID)
	})
}

func validateSignup(in SignupInput) error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Surname) == "" {
		return fmt.Errorf("%w: name and surname can't be empty", common.ErrValidation)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return fmt.Errorf("%w: invalid email", common.ErrValidation)
	}
	if in.Password == "" {
		return fmt.Errorf("%w: password can't be empty", common.ErrValidation)
	}
	return nil
}
