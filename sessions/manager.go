package sessions

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	apperr "github.com/clone-prom-team-2025/server/internal/errors"
	"github.com/clone-prom-team-2025/server/notify"
	"github.com/clone-prom-team-2025/server/users"
)

// DefaultTTL is the session lifetime granted on every login.
const DefaultTTL = 168 * time.Hour

// RoleChange says whether PropagateRoleChange adds or removes a role.
type RoleChange int

const (
	RoleAdded RoleChange = iota
	RoleRemoved
)

// Manager issues, matches, extends and revokes sessions. It never caches validity:
// every check reads the store, so a revocation is visible to the next request.
type Manager struct {
	repo        Repo
	notifier    notify.ForcedLogoutNotifier
	ttl         time.Duration
	maxLifetime time.Duration    // 0 means sliding expiry without an absolute cap
	nowTime     func() time.Time // nowTime function (injectable for testing)
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// WithNotifier sets the channel used to push forced-logout events.
func WithNotifier(n notify.ForcedLogoutNotifier) ManagerOption {
	return func(m *Manager) {
		m.notifier = n
	}
}

// WithMaxLifetime caps a session's lifetime measured from its creation. Refreshing a
// session never pushes its expiry past CreatedAt+d.
func WithMaxLifetime(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.maxLifetime = d
	}
}

// NewManager returns a Manager granting ttl on every login. A non-positive ttl selects
// DefaultTTL.
func NewManager(repo Repo, ttl time.Duration, options ...ManagerOption) (*Manager, error) {
	if repo == nil {
		return nil, errors.New("[NewManager] sessions repo is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	m := &Manager{
		repo:     repo,
		notifier: notify.Nop{},
		ttl:      ttl,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// TTL returns the lifetime granted per login.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// IssueOrRefresh returns the session token for userID on device. A valid session for
// the same device is reused and its expiry extended; otherwise a new session is
// created and any stale one for that device is left in place. roles becomes the
// session's role snapshot in both cases.
//
// The read-then-write is not locked: two concurrent first logins from one device may
// both create a session. Both are usable.
func (m *Manager) IssueOrRefresh(ctx context.Context, userID string, roles []users.RoleType, device DeviceFingerprint) (string, error) {
	list, err := m.repo.ListByUser(ctx, userID)
	if err != nil {
		return "", errors.Wrap(err, "[Manager.IssueOrRefresh] ListByUser")
	}

	now := m.nowTime()
	for _, s := range list {
		if s.Device != device || !s.IsValid(now) {
			continue
		}
		s.ExpiresAt = m.expiry(s.CreatedAt, now)
		s.Roles = slices.Clone(roles)
		if err := m.repo.UpdateMany(ctx, list); err != nil {
			return "", errors.Wrap(err, "[Manager.IssueOrRefresh] UpdateMany")
		}
		return s.ID, nil
	}

	s := &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Device:    device,
		CreatedAt: now,
		ExpiresAt: m.expiry(now, now),
		Roles:     slices.Clone(roles),
	}
	if err := m.repo.Insert(ctx, s); err != nil {
		return "", errors.Wrap(err, "[Manager.IssueOrRefresh] Insert")
	}
	log.Debug().Str("user_id", userID).Str("session_id", s.ID).Str("browser", device.Browser).Msg("session issued")
	return s.ID, nil
}

// Validate returns the session if it is usable now. Missing, revoked and expired
// sessions all fail with ErrNotFound.
func (m *Manager) Validate(ctx context.Context, sessionID string) (*Session, error) {
	s, err := m.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Validate] Get")
	}
	if !s.IsValid(m.nowTime()) {
		return nil, errors.Wrap(apperr.ErrNotFound, "[Manager.Validate] session not found")
	}
	return s, nil
}

// Revoke ends a session. The forced-logout push goes out before the session is marked;
// its failure is logged and does not fail the revoke. Revoking a missing, revoked or
// expired session fails with ErrNotFound and sends nothing.
func (m *Manager) Revoke(ctx context.Context, sessionID string) error {
	s, err := m.revocable(ctx, sessionID)
	if err != nil {
		return errors.Wrap(err, "[Manager.Revoke]")
	}
	return m.revoke(ctx, s)
}

// RevokeOwned is Revoke on behalf of actingUserID; a session owned by someone else
// fails with ErrAccessDenied.
func (m *Manager) RevokeOwned(ctx context.Context, actingUserID, sessionID string) error {
	s, err := m.revocable(ctx, sessionID)
	if err != nil {
		return errors.Wrap(err, "[Manager.RevokeOwned]")
	}
	if s.UserID != actingUserID {
		return errors.Wrap(apperr.ErrAccessDenied, "[Manager.RevokeOwned] session belongs to another user")
	}
	return m.revoke(ctx, s)
}

func (m *Manager) revocable(ctx context.Context, sessionID string) (*Session, error) {
	s, err := m.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "Get")
	}
	if !s.IsValid(m.nowTime()) {
		return nil, errors.Wrap(apperr.ErrNotFound, "session revoked or expired")
	}
	return s, nil
}

func (m *Manager) revoke(ctx context.Context, s *Session) error {
	if err := m.notifier.NotifyForcedLogout(ctx, s.ID); err != nil {
		log.Warn().Err(err).Str("session_id", s.ID).Msg("forced logout notification failed")
	}
	s.IsRevoked = true
	if err := m.repo.Update(ctx, s); err != nil {
		return errors.Wrap(err, "[Manager.revoke] Update")
	}
	return nil
}

// RevokeAllForUser marks every session of userID revoked in one batch write and
// returns how many sessions changed.
func (m *Manager) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	list, err := m.repo.ListByUser(ctx, userID)
	if err != nil {
		return 0, errors.Wrap(err, "[Manager.RevokeAllForUser] ListByUser")
	}

	changed := make([]*Session, 0, len(list))
	for _, s := range list {
		if s.IsRevoked {
			continue
		}
		s.IsRevoked = true
		changed = append(changed, s)
	}
	if len(changed) == 0 {
		return 0, nil
	}
	if err := m.repo.UpdateMany(ctx, changed); err != nil {
		return 0, errors.Wrap(err, "[Manager.RevokeAllForUser] UpdateMany")
	}
	return len(changed), nil
}

// PropagateRoleChange applies a role change made on the user record to the role
// snapshot of every live session of userID, written back as one batch.
func (m *Manager) PropagateRoleChange(ctx context.Context, userID string, role users.RoleType, change RoleChange) error {
	list, err := m.repo.ListByUser(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "[Manager.PropagateRoleChange] ListByUser")
	}

	now := m.nowTime()
	changed := make([]*Session, 0, len(list))
	for _, s := range list {
		if !s.IsValid(now) {
			continue
		}
		switch change {
		case RoleAdded:
			if s.HasRole(role) {
				continue
			}
			s.Roles = append(s.Roles, role)
		case RoleRemoved:
			idx := slices.Index(s.Roles, role)
			if idx < 0 {
				continue
			}
			s.Roles = slices.Delete(s.Roles, idx, idx+1)
		}
		changed = append(changed, s)
	}
	if len(changed) == 0 {
		return nil
	}
	if err := m.repo.UpdateMany(ctx, changed); err != nil {
		return errors.Wrap(err, "[Manager.PropagateRoleChange] UpdateMany")
	}
	return nil
}

// ListActive returns the valid sessions of userID, newest first.
func (m *Manager) ListActive(ctx context.Context, userID string) ([]*Session, error) {
	list, err := m.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.ListActive] ListByUser")
	}
	now := m.nowTime()
	active := make([]*Session, 0, len(list))
	for _, s := range list {
		if s.IsValid(now) {
			active = append(active, s)
		}
	}
	slices.SortFunc(active, func(a, b *Session) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return active, nil
}

// DeleteAllForUser physically removes every session of userID. Used on account deletion.
func (m *Manager) DeleteAllForUser(ctx context.Context, userID string) error {
	if _, err := m.repo.DeleteByUser(ctx, userID); err != nil {
		return errors.Wrap(err, "[Manager.DeleteAllForUser] DeleteByUser")
	}
	return nil
}

// PurgeExpired removes sessions that expired before now.
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := m.repo.DeleteExpired(ctx, m.nowTime())
	if err != nil {
		return 0, errors.Wrap(err, "[Manager.PurgeExpired] DeleteExpired")
	}
	return n, nil
}

func (m *Manager) expiry(createdAt, now time.Time) time.Time {
	exp := now.Add(m.ttl)
	if m.maxLifetime > 0 {
		if limit := createdAt.Add(m.maxLifetime); exp.After(limit) {
			return limit
		}
	}
	return exp
}
