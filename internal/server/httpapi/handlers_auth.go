package httpapi

import (
	"net/http"

	"webshop/server/internal/server/services"
)

type tokenPairOut struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func pairOut(pair *services.TokenPair) tokenPairOut {
	return tokenPairOut{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}
}

type signupIn struct {
	Name        string `json:"name"`
	Surname     string `json:"surname"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	AccessToken string `json:"accessToken,omitempty"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in signupIn
	if !readJSON(w, r, &in) {
		return
	}

	user, pair, err := s.signup.CreateUserFromSignup(r.Context(), services.SignupInput{
		Name:        in.Name,
		Surname:     in.Surname,
		Email:       in.Email,
		Password:    in.Password,
		AccessToken: in.AccessToken,
	})
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	s.log.Info(r.Context(), "user signed up", "user_id", user.ID, "promoted", in.AccessToken != "")
	writeJSON(w, http.StatusCreated, pairOut(pair))
}

type loginIn struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginIn
	if !readJSON(w, r, &in) {
		return
	}

	pair, err := s.auth.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pairOut(pair))
}

func (s *Server) handleSignupAnonymous(w http.ResponseWriter, r *http.Request) {
	pair, err := s.auth.SignupAnonymous(r.Context())
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, pairOut(pair))
}

type refreshIn struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var in refreshIn
	if !readJSON(w, r, &in) {
		return
	}

	pair, err := s.auth.Refresh(r.Context(), in.AccessToken, in.RefreshToken)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pairOut(pair))
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())
	if err := s.auth.Revoke(r.Context(), principal.Session); err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())
	if err := s.signup.DeleteAccount(r.Context(), principal); err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.log.Info(r.Context(), "account deleted", "session_id", principal.Session.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
