// Package accounts orchestrates registration, login, logout, role administration and
// account deletion on top of the user store and the session manager.
package accounts

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/clone-prom-team-2025/server/bans"
	apperr "github.com/clone-prom-team-2025/server/internal/errors"
	"github.com/clone-prom-team-2025/server/sessions"
	"github.com/clone-prom-team-2025/server/users"
	"github.com/clone-prom-team-2025/server/verification"
)

var _ verification.AccountDeleter = (*Service)(nil)

// CascadeDeleter removes data owned by a user in another part of the marketplace
// (favorites, cart, reviews) before the account itself is deleted.
type CascadeDeleter interface {
	DeleteUserData(ctx context.Context, userID string) error
}

// CascadeFunc adapts a function to CascadeDeleter.
type CascadeFunc func(ctx context.Context, userID string) error

func (f CascadeFunc) DeleteUserData(ctx context.Context, userID string) error {
	return f(ctx, userID)
}

// BanChecker reports whether a user is barred from an action.
type BanChecker interface {
	IsBanned(ctx context.Context, userID string, scope bans.Scope) (bool, error)
}

// Deps holds the collaborators of the Service.
type Deps struct {
	Users    users.UserRepo
	Sessions *sessions.Manager
	Bans     BanChecker
}

type Service struct {
	deps     Deps
	cascades []CascadeDeleter
	nowTime  func() time.Time // nowTime function (injectable for testing)
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithCascade registers hooks run, in order, by DeleteAccount.
func WithCascade(deleters ...CascadeDeleter) ServiceOption {
	return func(s *Service) {
		s.cascades = append(s.cascades, deleters...)
	}
}

func NewService(deps Deps, options ...ServiceOption) (*Service, error) {
	if deps.Users == nil {
		return nil, errors.New("[accounts.NewService] users repo is required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("[accounts.NewService] session manager is required")
	}
	if deps.Bans == nil {
		return nil, errors.New("[accounts.NewService] ban checker is required")
	}

	s := &Service{
		deps:    deps,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Register creates a customer account and logs it in on device, returning the new user
// and its session id.
func (s *Service) Register(ctx context.Context, email, username, password string, device sessions.DeviceFingerprint) (*users.User, string, error) {
	email = users.NormalizeEmail(email)
	username = strings.TrimSpace(username)
	if err := users.ValidateEmail(email); err != nil {
		return nil, "", errors.Wrap(apperr.ErrInvalidOperation, "[Service.Register] "+err.Error())
	}
	if err := users.ValidatePasswordStrength(password); err != nil {
		return nil, "", errors.Wrap(apperr.ErrInvalidOperation, "[Service.Register] "+err.Error())
	}
	if err := s.ensureUnused(ctx, email, username); err != nil {
		return nil, "", errors.Wrap(err, "[Service.Register]")
	}

	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, "", errors.Wrap(err, "[Service.Register] HashPassword")
	}
	user := &users.User{
		ID:           uuid.New().String(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Roles:        []users.RoleType{users.RoleCustomer},
		CreatedAt:    s.nowTime(),
	}
	if err := s.deps.Users.Insert(ctx, user); err != nil {
		return nil, "", errors.Wrap(err, "[Service.Register] Insert")
	}
	log.Info().Str("user_id", user.ID).Msg("user registered")

	sessionID, err := s.deps.Sessions.IssueOrRefresh(ctx, user.ID, user.Roles, device)
	if err != nil {
		return nil, "", errors.Wrap(err, "[Service.Register] IssueOrRefresh")
	}
	return user, sessionID, nil
}

func (s *Service) ensureUnused(ctx context.Context, email, username string) error {
	_, err := s.deps.Users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return errors.Wrap(apperr.ErrInvalidOperation, "email already registered")
	case !errors.Is(err, apperr.ErrNotFound):
		return errors.Wrap(err, "GetByEmail")
	}
	if username == "" {
		return nil
	}
	_, err = s.deps.Users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return errors.Wrap(apperr.ErrInvalidOperation, "username already taken")
	case !errors.Is(err, apperr.ErrNotFound):
		return errors.Wrap(err, "GetByUsername")
	}
	return nil
}

// Login authenticates by email or username and returns the session id for device.
// Unknown users and wrong passwords fail alike with ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, identifier, password string, device sessions.DeviceFingerprint) (string, error) {
	user, err := users.FindByIdentifier(ctx, s.deps.Users, identifier)
	if err != nil {
		return "", errors.Wrap(err, "[Service.Login] FindByIdentifier")
	}
	if user == nil || !users.CheckPasswordHash(password, user.PasswordHash) {
		return "", errors.Wrap(apperr.ErrInvalidCredentials, "[Service.Login]")
	}

	banned, err := s.deps.Bans.IsBanned(ctx, user.ID, bans.ScopeLogin)
	if err != nil {
		return "", errors.Wrap(err, "[Service.Login] IsBanned")
	}
	if banned {
		return "", errors.Wrap(apperr.ErrAccessDenied, "[Service.Login] user is banned")
	}

	sessionID, err := s.deps.Sessions.IssueOrRefresh(ctx, user.ID, user.Roles, device)
	if err != nil {
		return "", errors.Wrap(err, "[Service.Login] IssueOrRefresh")
	}
	return sessionID, nil
}

func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.deps.Sessions.Revoke(ctx, sessionID); err != nil {
		return errors.Wrap(err, "[Service.Logout]")
	}
	return nil
}

// AddRole grants role to userID and copies it into the user's live sessions. Granting a
// role the user already has succeeds and re-propagates it.
func (s *Service) AddRole(ctx context.Context, userID string, role users.RoleType) error {
	user, err := s.deps.Users.Get(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "[Service.AddRole] Get")
	}
	// an unchanged record still propagates: a retry after a failed propagation lands here
	if user.AddRole(role) {
		if err := s.deps.Users.Update(ctx, user); err != nil {
			return errors.Wrap(err, "[Service.AddRole] Update")
		}
	}
	if err := s.deps.Sessions.PropagateRoleChange(ctx, userID, role, sessions.RoleAdded); err != nil {
		return errors.Wrap(err, "[Service.AddRole]")
	}
	return nil
}

// RemoveRole takes role from userID and from the user's live sessions. Removing a role
// the user lacks succeeds and re-propagates the removal.
func (s *Service) RemoveRole(ctx context.Context, userID string, role users.RoleType) error {
	user, err := s.deps.Users.Get(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "[Service.RemoveRole] Get")
	}
	// an unchanged record still propagates: a retry after a failed propagation lands here
	if user.RemoveRole(role) {
		if err := s.deps.Users.Update(ctx, user); err != nil {
			return errors.Wrap(err, "[Service.RemoveRole] Update")
		}
	}
	if err := s.deps.Sessions.PropagateRoleChange(ctx, userID, role, sessions.RoleRemoved); err != nil {
		return errors.Wrap(err, "[Service.RemoveRole]")
	}
	return nil
}

// DeleteAccount runs the cascade hooks, deletes the user's sessions and then the user.
// The first failing hook stops the deletion.
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	if _, err := s.deps.Users.Get(ctx, userID); err != nil {
		return errors.Wrap(err, "[Service.DeleteAccount] Get")
	}
	for _, c := range s.cascades {
		if err := c.DeleteUserData(ctx, userID); err != nil {
			return errors.Wrap(err, "[Service.DeleteAccount] cascade")
		}
	}
	if err := s.deps.Sessions.DeleteAllForUser(ctx, userID); err != nil {
		return errors.Wrap(err, "[Service.DeleteAccount]")
	}
	if err := s.deps.Users.Delete(ctx, userID); err != nil {
		return errors.Wrap(err, "[Service.DeleteAccount] Delete")
	}
	log.Info().Str("user_id", userID).Msg("account deleted")
	return nil
}
