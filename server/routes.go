package server

import (
	"net/http"

	"github.com/clone-prom-team-2025/server/users"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())

	public := s.APIMiddleware()
	authed := s.APIMiddleware(s.RequireAuth())
	admin := s.APIMiddleware(s.RequireAuth(), s.RequireRole(users.RoleAdmin))

	s.RegisterRouteHandler("POST "+RouteRegister, ChainMiddleware(s.RegisterHandler(), public...))
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginHandler(), public...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), authed...))
	s.RegisterRouteHandler("GET "+RouteSessions, ChainMiddleware(s.ListSessionsHandler(), authed...))
	s.RegisterRouteHandler("DELETE "+RouteSessions, ChainMiddleware(s.RevokeAllSessionsHandler(), authed...))
	s.RegisterRouteHandler("DELETE "+RouteSession, ChainMiddleware(s.RevokeSessionHandler(), authed...))

	s.RegisterRouteHandler("POST "+RouteResetRequest, ChainMiddleware(s.ResetRequestHandler(), public...))
	s.RegisterRouteHandler("POST "+RouteResetVerify, ChainMiddleware(s.ResetVerifyHandler(), public...))
	s.RegisterRouteHandler("POST "+RouteResetCommit, ChainMiddleware(s.ResetCommitHandler(), public...))

	s.RegisterRouteHandler("POST "+RouteEmailSendCode, ChainMiddleware(s.EmailSendCodeHandler(), public...))
	s.RegisterRouteHandler("POST "+RouteEmailVerifyCode, ChainMiddleware(s.EmailVerifyHandler(), public...))

	s.RegisterRouteHandler("POST "+RouteDeleteSendCode, ChainMiddleware(s.DeleteSendCodeHandler(), authed...))
	s.RegisterRouteHandler("POST "+RouteDeleteConfirm, ChainMiddleware(s.DeleteConfirmHandler(), authed...))

	s.RegisterRouteHandler("POST "+RouteAdminUserRoles, ChainMiddleware(s.AddRoleHandler(), admin...))
	s.RegisterRouteHandler("DELETE "+RouteAdminUserRole, ChainMiddleware(s.RemoveRoleHandler(), admin...))
	s.RegisterRouteHandler("GET "+RouteAdminUserBans, ChainMiddleware(s.ListBansHandler(), admin...))
	s.RegisterRouteHandler("POST "+RouteAdminBans, ChainMiddleware(s.BanHandler(), admin...))
	s.RegisterRouteHandler("DELETE "+RouteAdminBan, ChainMiddleware(s.UnbanHandler(), admin...))

	// CORS preflight for every API route
	s.RegisterRouteHandler("OPTIONS /api/", ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, public...))
}

// HealthHandler reports liveness.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
