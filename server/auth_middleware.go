package server

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/clone-prom-team-2025/server/users"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyPrincipal stores the authenticated Principal
const ContextKeyPrincipal ContextKey = "principal"

// Principal is the caller behind an authenticated request. Roles is the session's
// snapshot, not a fresh read of the user record.
type Principal struct {
	UserID    string
	SessionID string
	Roles     []users.RoleType
}

// PrincipalFrom returns the principal stored by RequireAuth.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ContextKeyPrincipal).(Principal)
	return p, ok
}

// RequireAuth validates the Bearer token and then the session it names. A revoked or
// expired session is rejected even while its token is still within its lifetime.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeJSONError(w, "unauthorized", "missing or malformed Authorization header", http.StatusUnauthorized)
				return
			}
			claims, err := s.svc.Tokens.Parse(raw)
			if err != nil {
				writeJSONError(w, "unauthorized", "invalid token", http.StatusUnauthorized)
				return
			}
			session, err := s.svc.Sessions.Validate(r.Context(), claims.SessionID)
			if err != nil || session.UserID != claims.Subject {
				writeJSONError(w, "unauthorized", "session expired or revoked", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyPrincipal, Principal{
				UserID:    session.UserID,
				SessionID: session.ID,
				Roles:     session.Roles,
			})
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireRole rejects principals whose session snapshot lacks role. Must run after RequireAuth.
func (s *Server) RequireRole(role users.RoleType) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok || !slices.Contains(p.Roles, role) {
				writeJSONError(w, "access_denied", "access denied", http.StatusForbidden)
				return
			}
			next(w, r)
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
