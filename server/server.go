package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/clone-prom-team-2025/server/accounts"
	"github.com/clone-prom-team-2025/server/bans"
	"github.com/clone-prom-team-2025/server/internal/config"
	"github.com/clone-prom-team-2025/server/recovery"
	"github.com/clone-prom-team-2025/server/sessions"
	"github.com/clone-prom-team-2025/server/token"
	"github.com/clone-prom-team-2025/server/verification"
)

// Services holds the domain services the HTTP layer calls into.
type Services struct {
	Accounts     *accounts.Service
	Sessions     *sessions.Manager
	Recovery     *recovery.Service
	Verification *verification.Service
	Bans         *bans.Service
	Tokens       *token.Issuer
}

type Server struct {
	env       string
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	svc       Services
	validator *validator.Validate
}

func New(cfg config.Config, svc Services) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("[server.New] config is required")
	}
	if svc.Accounts == nil || svc.Sessions == nil || svc.Recovery == nil ||
		svc.Verification == nil || svc.Bans == nil || svc.Tokens == nil {
		return nil, errors.New("[server.New] all services are required")
	}

	s := &Server{
		env:       cfg.GetEnv(),
		mux:       http.NewServeMux(),
		config:    cfg,
		svc:       svc,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	log.Debug().Msgf("[%s] %s", color+paddedMethod+ResetColor, path)
}
