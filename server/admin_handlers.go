package server

import (
	"net/http"
	"time"

	"github.com/clone-prom-team-2025/server/bans"
	"github.com/clone-prom-team-2025/server/users"
)

type RoleRequest struct {
	Role string `json:"role" validate:"required,oneof=customer seller moderator admin"`
}

type BanRequest struct {
	UserID      string     `json:"user_id" validate:"required"`
	Reason      string     `json:"reason" validate:"max=500"`
	Scope       []string   `json:"scope" validate:"required,min=1,dive,oneof=login comment review create_store"`
	BannedUntil *time.Time `json:"banned_until"`
}

type BanView struct {
	*bans.Ban
	Scope  []string `json:"scope"`
	Active bool     `json:"active"`
}

func banView(b *bans.Ban, now time.Time) BanView {
	return BanView{Ban: b, Scope: b.Scope.Names(), Active: b.IsActive(now)}
}

func (s *Server) AddRoleHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RoleRequest
		if !s.decode(w, r, &req) {
			return
		}
		role, err := users.ParseRole(req.Role)
		if err != nil {
			writeJSONError(w, "invalid_request", err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.svc.Accounts.AddRole(r.Context(), r.PathValue("id"), role); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) RemoveRoleHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role, err := users.ParseRole(r.PathValue("role"))
		if err != nil {
			writeJSONError(w, "invalid_request", err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.svc.Accounts.RemoveRole(r.Context(), r.PathValue("id"), role); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) BanHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := PrincipalFrom(r.Context())
		var req BanRequest
		if !s.decode(w, r, &req) {
			return
		}
		scope, err := bans.ParseScope(req.Scope)
		if err != nil {
			writeJSONError(w, "invalid_request", err.Error(), http.StatusBadRequest)
			return
		}
		ban, err := s.svc.Bans.Ban(r.Context(), bans.Request{
			TargetUserID: req.UserID,
			AdminID:      p.UserID,
			Reason:       req.Reason,
			BannedUntil:  req.BannedUntil,
			Scope:        scope,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, banView(ban, time.Now()))
	}
}

func (s *Server) UnbanHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := PrincipalFrom(r.Context())
		if err := s.svc.Bans.Unban(r.Context(), r.PathValue("id"), p.UserID); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) ListBansHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.svc.Bans.ListForUser(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		now := time.Now()
		views := make([]BanView, 0, len(list))
		for _, b := range list {
			views = append(views, banView(b, now))
		}
		writeJSON(w, http.StatusOK, views)
	}
}
