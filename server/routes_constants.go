package server

// Route path constants
const (
	RouteHealth = "/healthz"

	// Auth routes
	RouteRegister        = "/api/auth/register"
	RouteLogin           = "/api/auth/login"
	RouteLogout          = "/api/auth/logout"
	RouteSessions        = "/api/auth/sessions"
	RouteSession         = "/api/auth/sessions/{id}"
	RouteResetRequest    = "/api/auth/password-reset/request"
	RouteResetVerify     = "/api/auth/password-reset/verify"
	RouteResetCommit     = "/api/auth/password-reset/commit"
	RouteEmailSendCode   = "/api/auth/email/send-code"
	RouteEmailVerifyCode = "/api/auth/email/verify"

	// Account routes
	RouteDeleteSendCode = "/api/account/delete/send-code"
	RouteDeleteConfirm  = "/api/account/delete/confirm"

	// Admin routes
	RouteAdminUserRoles = "/api/admin/users/{id}/roles"
	RouteAdminUserRole  = "/api/admin/users/{id}/roles/{role}"
	RouteAdminUserBans  = "/api/admin/users/{id}/bans"
	RouteAdminBans      = "/api/admin/bans"
	RouteAdminBan       = "/api/admin/bans/{id}"
)
