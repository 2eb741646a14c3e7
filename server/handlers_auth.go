package server

import (
	"net/http"
	"time"

	"github.com/clone-prom-team-2025/server/sessions"
	"github.com/clone-prom-team-2025/server/users"
)

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Username string `json:"username" validate:"required,min=3,max=32"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required,max=254"`
	Password   string `json:"password" validate:"required,max=72"`
}

type AuthResponse struct {
	Token string      `json:"token"`
	User  *users.User `json:"user,omitempty"`
}

type SessionView struct {
	ID        string                     `json:"id"`
	Device    sessions.DeviceFingerprint `json:"device"`
	CreatedAt time.Time                  `json:"created_at"`
	ExpiresAt time.Time                  `json:"expires_at"`
	Current   bool                       `json:"current"`
}

func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if !s.decode(w, r, &req) {
			return
		}
		user, sessionID, err := s.svc.Accounts.Register(r.Context(), req.Email, req.Username, req.Password, DeviceFromUserAgent(r.UserAgent()))
		if err != nil {
			writeError(w, r, err)
			return
		}
		signed, err := s.svc.Tokens.Issue(sessionID, user.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, AuthResponse{Token: signed, User: user})
	}
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if !s.decode(w, r, &req) {
			return
		}
		sessionID, err := s.svc.Accounts.Login(r.Context(), req.Identifier, req.Password, DeviceFromUserAgent(r.UserAgent()))
		if err != nil {
			writeError(w, r, err)
			return
		}
		session, err := s.svc.Sessions.Validate(r.Context(), sessionID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		signed, err := s.svc.Tokens.Issue(sessionID, session.UserID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, AuthResponse{Token: signed})
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := PrincipalFrom(r.Context())
		if err := s.svc.Accounts.Logout(r.Context(), p.SessionID); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) ListSessionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := PrincipalFrom(r.Context())
		list, err := s.svc.Sessions.ListActive(r.Context(), p.UserID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		views := make([]SessionView, 0, len(list))
		for _, sess := range list {
			views = append(views, SessionView{
				ID:        sess.ID,
				Device:    sess.Device,
				CreatedAt: sess.CreatedAt,
				ExpiresAt: sess.ExpiresAt,
				Current:   sess.ID == p.SessionID,
			})
		}
		writeJSON(w, http.StatusOK, views)
	}
}

func (s *Server) RevokeSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := PrincipalFrom(r.Context())
		if err := s.svc.Sessions.RevokeOwned(r.Context(), p.UserID, r.PathValue("id")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// RevokeAllSessionsHandler logs the caller out everywhere, the current session included.
func (s *Server) RevokeAllSessionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := PrincipalFrom(r.Context())
		n, err := s.svc.Sessions.RevokeAllForUser(r.Context(), p.UserID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"revoked": n})
	}
}
