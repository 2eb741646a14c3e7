// Package bans records user bans and enforces login bans by ending the user's live
// sessions.
package bans

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	apperr "github.com/clone-prom-team-2025/server/internal/errors"
	"github.com/clone-prom-team-2025/server/notify"
	"github.com/clone-prom-team-2025/server/sessions"
	"github.com/clone-prom-team-2025/server/users"
)

// SessionEnder is the part of the session manager a login ban needs.
type SessionEnder interface {
	ListActive(ctx context.Context, userID string) ([]*sessions.Session, error)
	RevokeAllForUser(ctx context.Context, userID string) (int, error)
}

// Request describes a ban to impose.
type Request struct {
	TargetUserID string
	AdminID      string
	Reason       string
	BannedUntil  *time.Time
	Scope        Scope
}

type Service struct {
	repo     Repo
	users    users.UserRepo
	sessions SessionEnder
	notifier notify.ForcedLogoutNotifier
	nowTime  func() time.Time
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func NewService(repo Repo, userRepo users.UserRepo, sessionEnder SessionEnder, notifier notify.ForcedLogoutNotifier, options ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, errors.New("[bans.NewService] bans repo is required")
	}
	if userRepo == nil {
		return nil, errors.New("[bans.NewService] users repo is required")
	}
	if sessionEnder == nil {
		return nil, errors.New("[bans.NewService] session manager is required")
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}

	s := &Service{
		repo:     repo,
		users:    userRepo,
		sessions: sessionEnder,
		notifier: notifier,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Ban records a ban. A login ban also pushes a forced logout to every live session of
// the target and then revokes them all.
func (s *Service) Ban(ctx context.Context, req Request) (*Ban, error) {
	if req.TargetUserID == req.AdminID {
		return nil, errors.Wrap(apperr.ErrInvalidOperation, "[Service.Ban] cannot ban self")
	}
	if _, err := s.users.Get(ctx, req.TargetUserID); err != nil {
		return nil, errors.Wrap(err, "[Service.Ban] target user")
	}
	if req.Scope&ScopeAll == 0 {
		return nil, errors.Wrap(apperr.ErrInvalidOperation, "[Service.Ban] empty scope")
	}

	now := s.nowTime()
	if req.BannedUntil != nil && !req.BannedUntil.After(now) {
		return nil, errors.Wrap(apperr.ErrInvalidOperation, "[Service.Ban] banned_until is in the past")
	}

	ban := &Ban{
		ID:          uuid.New().String(),
		UserID:      req.TargetUserID,
		AdminID:     req.AdminID,
		BannedAt:    now,
		BannedUntil: req.BannedUntil,
		Reason:      req.Reason,
		Scope:       req.Scope & ScopeAll,
	}
	if err := s.repo.Insert(ctx, ban); err != nil {
		return nil, errors.Wrap(err, "[Service.Ban] Insert")
	}
	log.Info().Str("ban_id", ban.ID).Str("user_id", ban.UserID).Str("admin_id", ban.AdminID).
		Str("scope", ban.Scope.String()).Msg("user banned")

	if ban.Scope.Has(ScopeLogin) {
		if err := s.endSessions(ctx, ban.UserID); err != nil {
			return ban, errors.Wrap(err, "[Service.Ban]")
		}
	}
	return ban, nil
}

func (s *Service) endSessions(ctx context.Context, userID string) error {
	active, err := s.sessions.ListActive(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "ListActive")
	}
	for _, sess := range active {
		if err := s.notifier.NotifyForcedLogout(ctx, sess.ID); err != nil {
			log.Warn().Err(err).Str("session_id", sess.ID).Msg("forced logout notification failed")
		}
	}
	n, err := s.sessions.RevokeAllForUser(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "RevokeAllForUser")
	}
	log.Info().Str("user_id", userID).Int("revoked", n).Msg("sessions revoked by ban")
	return nil
}

// Unban lifts a ban. An admin cannot lift a ban placed on themselves.
func (s *Service) Unban(ctx context.Context, banID, adminID string) error {
	ban, err := s.repo.Get(ctx, banID)
	if err != nil {
		return errors.Wrap(err, "[Service.Unban] Get")
	}
	if ban.UserID == adminID {
		return errors.Wrap(apperr.ErrInvalidOperation, "[Service.Unban] cannot unban self")
	}
	if err := s.repo.Delete(ctx, banID); err != nil {
		return errors.Wrap(err, "[Service.Unban] Delete")
	}
	log.Info().Str("ban_id", banID).Str("user_id", ban.UserID).Str("admin_id", adminID).Msg("user unbanned")
	return nil
}

// ListForUser returns every ban recorded for userID, expired ones included.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]*Ban, error) {
	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.ListForUser] ListByUser")
	}
	return list, nil
}

// IsBanned reports whether an active ban of userID covers scope.
func (s *Service) IsBanned(ctx context.Context, userID string, scope Scope) (bool, error) {
	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return false, errors.Wrap(err, "[Service.IsBanned] ListByUser")
	}
	now := s.nowTime()
	for _, b := range list {
		if b.IsActive(now) && b.Scope&scope != 0 {
			return true, nil
		}
	}
	return false, nil
}
