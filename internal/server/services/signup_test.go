package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"webshop/server/internal/common"
	"webshop/server/internal/server/models"
	"webshop/server/internal/server/repositories/repomanager"
	"webshop/server/internal/server/tokens"
)

func newSignupStack(t *testing.T, db *sql.DB, rm repomanager.RepositoryManager) (*SignupService, *tokens.Codec) {
	t.Helper()
	auth, codec, _ := newAuthStack(t, db, rm)
	return NewSignupService(db, rm, codec, auth), codec
}

func TestCreateUserFromSignup_Validation(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{}}
	s, _ := newSignupStack(t, db, rm)

	cases := []SignupInput{
		{Name: "", Surname: "Doe", Email: "a@example.com", Password: "p"},
		{Name: "Jane", Surname: " ", Email: "a@example.com", Password: "p"},
		{Name: "Jane", Surname: "Doe", Email: "not-an-email", Password: "p"},
		{Name: "Jane", Surname: "Doe", Email: "a@example.com", Password: ""},
	}
	for _, in := range cases {
		if _, _, err := s.CreateUserFromSignup(context.Background(), in); !errors.Is(err, common.ErrValidation) {
			t.Fatalf("input %+v: want ErrValidation, got %v", in, err)
		}
	}
}

func TestCreateUserFromSignup_EmailTaken(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{
		u: &fakeUsersRepo{byEmail: &models.User{ID: "u1", Email: "a@example.com"}},
	}
	s, _ := newSignupStack(t, db, rm)

	in := SignupInput{Name: "Jane", Surname: "Doe", Email: "a@example.com", Password: "p"}
	if _, _, err := s.CreateUserFromSignup(context.Background(), in); !errors.Is(err, common.ErrUserExists) {
		t.Fatalf("want ErrUserExists, got %v", err)
	}
}

func TestCreateUserFromSignup_FreshSession(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	sess := &fakeSessionsRepo{createOut: &models.Session{ID: 11}}
	users := &fakeUsersRepo{}
	creds := &fakeCredentialsRepo{}
	rm := &fakeRepoManager{s: sess, u: users, c: creds}
	s, codec := newSignupStack(t, db, rm)

	in := SignupInput{Name: "Jane", Surname: "Doe", Email: "jane@example.com", Password: "secret"}
	user, pair, err := s.CreateUserFromSignup(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateUserFromSignup error: %v", err)
	}
	if user.SessionID != 11 {
		t.Fatalf("user not bound to fresh session: %+v", user)
	}
	if len(users.addedRoles) != 1 || users.addedRoles[0] != DefaultRole {
		t.Fatalf("default role not granted: %v", users.addedRoles)
	}
	if creds.created[user.ID] != "secret" {
		t.Fatalf("credential not stored")
	}

	claims, err := codec.Verify(pair.AccessToken, true)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	subject, _ := claims.ParseSubject()
	if subject.Kind != tokens.SubjectAuthenticated || subject.Email != "jane@example.com" {
		t.Fatalf("unexpected subject: %+v", subject)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestCreateUserFromSignup_PromotesAnonymousSession(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	savedAt := int64(100)
	sess := &fakeSessionsRepo{session: &models.Session{
		ID:            7,
		OrdersSavedAt: &savedAt,
		Lines:         []models.CartLine{{ID: 1, SessionID: 7, GoodID: 3, Quantity: 2}},
	}}
	users := &fakeUsersRepo{}
	rm := &fakeRepoManager{s: sess, u: users, c: &fakeCredentialsRepo{}}
	s, codec := newSignupStack(t, db, rm)

	anon, err := codec.Issue(tokens.AnonymousSubject(7), nil, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	in := SignupInput{Name: "Jane", Surname: "Doe", Email: "jane@example.com", Password: "p", AccessToken: anon}
	user, _, err := s.CreateUserFromSignup(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateUserFromSignup error: %v", err)
	}
	if user.SessionID != 7 {
		t.Fatalf("anonymous session not promoted: %+v", user)
	}
	// cart untouched: no line deletion or clock writes during promotion
	if sess.linesDeleted || sess.savedAt != nil {
		t.Fatalf("promotion touched the cart")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestCreateUserFromSignup_SessionAlreadyClaimed(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	owner := "other-user"
	sess := &fakeSessionsRepo{session: &models.Session{ID: 7, UserID: &owner}}
	rm := &fakeRepoManager{s: sess, u: &fakeUsersRepo{}, c: &fakeCredentialsRepo{}}
	s, codec := newSignupStack(t, db, rm)

	anon, _ := codec.Issue(tokens.AnonymousSubject(7), nil, time.Hour)
	in := SignupInput{Name: "Jane", Surname: "Doe", Email: "jane@example.com", Password: "p", AccessToken: anon}
	if _, _, err := s.CreateUserFromSignup(context.Background(), in); !errors.Is(err, common.ErrSessionAlreadyClaimed) {
		t.Fatalf("want ErrSessionAlreadyClaimed, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestCreateUserFromSignup_BadToken(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{s: &fakeSessionsRepo{}, u: &fakeUsersRepo{}}
	s, codec := newSignupStack(t, db, rm)

	in := SignupInput{Name: "Jane", Surname: "Doe", Email: "jane@example.com", Password: "p", AccessToken: "garbage"}
	if _, _, err := s.CreateUserFromSignup(context.Background(), in); !errors.Is(err, common.ErrInvalidAccessToken) {
		t.Fatalf("want ErrInvalidAccessToken, got %v", err)
	}

	// expired anonymous token cannot promote
	expired, _ := codec.Issue(tokens.AnonymousSubject(7), nil, -time.Minute)
	in.AccessToken = expired
	if _, _, err := s.CreateUserFromSignup(context.Background(), in); !errors.Is(err, common.ErrInvalidAccessToken) {
		t.Fatalf("expired token: want ErrInvalidAccessToken, got %v", err)
	}

	// authenticated token is not a promotion handle
	authed, _ := codec.Issue(tokens.AuthenticatedSubject("other@example.com"), nil, time.Hour)
	in.AccessToken = authed
	if _, _, err := s.CreateUserFromSignup(context.Background(), in); !errors.Is(err, common.ErrMalformedClaims) {
		t.Fatalf("authenticated token: want ErrMalformedClaims, got %v", err)
	}
}

func TestCreateUserFromSignup_CredentialFailureRollsBack(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	sess := &fakeSessionsRepo{createOut: &models.Session{ID: 11}}
	rm := &fakeRepoManager{s: sess, u: &fakeUsersRepo{}, c: &fakeCredentialsRepo{createErr: errBoom{}}}
	s, _ := newSignupStack(t, db, rm)

	in := SignupInput{Name: "Jane", Surname: "Doe", Email: "jane@example.com", Password: "p"}
	if _, _, err := s.CreateUserFromSignup(context.Background(), in); err == nil {
		t.Fatalf("expected credential store error")
	}
	if sess.refreshSlot != nil {
		t.Fatalf("tokens should not survive a failed signup")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestDeleteAccount(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	sess := &fakeSessionsRepo{session: &models.Session{ID: 7}}
	users := &fakeUsersRepo{}
	creds := &fakeCredentialsRepo{}
	rm := &fakeRepoManager{s: sess, u: users, c: creds}
	s, _ := newSignupStack(t, db, rm)

	principal := &Principal{
		Session: &models.Session{ID: 7},
		User:    &models.User{ID: "u1", Email: "a@example.com", SessionID: 7},
	}
	if err := s.DeleteAccount(context.Background(), principal); err != nil {
		t.Fatalf("DeleteAccount error: %v", err)
	}
	if !creds.deleted || !users.deleted || !sess.deleted {
		t.Fatalf("incomplete delete: creds=%v users=%v sessions=%v", creds.deleted, users.deleted, sess.deleted)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestDeleteAccount_RequiresUser(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{}
	s, _ := newSignupStack(t, db, rm)

	principal := &Principal{Session: &models.Session{ID: 7}}
	if err := s.DeleteAccount(context.Background(), principal); !errors.Is(err, common.ErrNotAuthenticated) {
		t.Fatalf("want ErrNotAuthenticated, got %v", err)
	}
}
