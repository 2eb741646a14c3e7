package sessions_test

import (
	"context"
	"errors"
	"testing"
	"time"

	apperr "github.com/clone-prom-team-2025/server/internal/errors"
	"github.com/clone-prom-team-2025/server/notify/notifyfake"
	"github.com/clone-prom-team-2025/server/sessions"
	fakesessionrepo "github.com/clone-prom-team-2025/server/sessions/repofakes"
	"github.com/clone-prom-team-2025/server/users"
	"github.com/stretchr/testify/require"
)

const testUserID = "user-1"

var (
	deviceA = sessions.DeviceFingerprint{Browser: "Chrome", OS: "Windows", Device: "desktop"}
	deviceB = sessions.DeviceFingerprint{Browser: "Safari", OS: "iOS", Device: "mobile"}
)

// testFixture holds all test dependencies
type testFixture struct {
	now      time.Time
	repo     *fakesessionrepo.FakeSessionRepo
	notifier *notifyfake.Recorder
	manager  *sessions.Manager
}

func setupTestFixture(t *testing.T, options ...sessions.ManagerOption) *testFixture {
	t.Helper()

	f := &testFixture{
		now:      time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		repo:     fakesessionrepo.NewFakeSessionRepo(),
		notifier: notifyfake.NewRecorder(),
	}
	opts := append([]sessions.ManagerOption{
		sessions.WithNowTime(func() time.Time { return f.now }),
		sessions.WithNotifier(f.notifier),
	}, options...)

	m, err := sessions.NewManager(f.repo, sessions.DefaultTTL, opts...)
	require.NoError(t, err)
	f.manager = m
	return f
}

func (f *testFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *testFixture) session(t *testing.T, id string) *sessions.Session {
	t.Helper()
	s, err := f.repo.Get(context.Background(), id)
	require.NoError(t, err)
	return s
}

func TestNewManagerRequiresRepo(t *testing.T) {
	_, err := sessions.NewManager(nil, time.Hour)
	require.Error(t, err)
}

func TestNewManagerDefaultsTTL(t *testing.T) {
	m, err := sessions.NewManager(fakesessionrepo.NewFakeSessionRepo(), 0)
	require.NoError(t, err)
	require.Equal(t, sessions.DefaultTTL, m.TTL())
}

func TestIssueOrRefreshCreatesSession(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	id, err := f.manager.IssueOrRefresh(ctx, testUserID, []users.RoleType{users.RoleCustomer}, deviceA)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	s := f.session(t, id)
	require.Equal(t, testUserID, s.UserID)
	require.Equal(t, deviceA, s.Device)
	require.Equal(t, f.now, s.CreatedAt)
	require.Equal(t, f.now.Add(168*time.Hour), s.ExpiresAt)
	require.False(t, s.IsRevoked)
	require.Equal(t, []users.RoleType{users.RoleCustomer}, s.Roles)
}

func TestIssueOrRefreshSameDeviceReusesAndExtends(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	first, err := f.manager.IssueOrRefresh(ctx, testUserID, nil, deviceA)
	require.NoError(t, err)
	firstExpiry := f.session(t, first).ExpiresAt

	f.advance(time.Hour)
	second, err := f.manager.IssueOrRefresh(ctx, testUserID, nil, deviceA)
	require.NoError(t, err)
	require.Equal(t, first, second)

	s := f.session(t, second)
	require.True(t, s.ExpiresAt.After(firstExpiry))
	require.Equal(t, f.now.Add(168*time.Hour), s.ExpiresAt)
	require.Equal(t, 1, f.repo.Count())
}

func TestIssueOrRefreshDifferentDevices(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	s1, err := f.manager.IssueOrRefresh(ctx, testUserID, nil, deviceA)
	require.NoError(t, err)
	s2, err := f.manager.IssueOrRefresh(ctx, testUserID, nil, deviceB)
	require.NoError(t, err)
	require.NotEqual(t, s1, s2)

	_, err = f.manager.Validate(ctx, s1)
	require.NoError(t, err)
	_, err = f.manager.Validate(ctx, s2)
	require.NoError(t, err)
}

func TestIssueOrRefreshFingerprintIsExactTuple(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	s1, err := f.manager.IssueOrRefresh(ctx, testUserID, nil, deviceA)
	require.NoError(t, err)
	otherOS := deviceA
	otherOS.OS = "Linux"
	s2, err := f.manager.IssueOrRefresh(ctx, testUserID, nil, otherOS)
	require.NoError(t, err)
	require.NotEqual(t, s1, s2)
}

func TestIssueOrRefreshSupersedesRevokedSession(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	old, err := f.manager.IssueOrRefresh(ctx, testUserID, nil, deviceA)
	require.NoError(t, err)
	require.NoError(t, f.manager.Revoke(ctx, old))

	fresh, err := f.manager.IssueOrRefresh(ctx, testUserID, nil, deviceA)
	require.NoError(t, err)
	require.NotEqual(t, old, fresh)
	require.True(t, f.session(t, old).IsRevoked, "stale session is left in place")
	require.Equal(t, 2, f.repo.Count())

	again, err := f.manager.IssueOrRefresh(ctx, testUserID, nil, deviceA)
	require.NoError(t, err)
	require.Equal(t, fresh, again)
}

func TestIssueOrRefreshSupersedesExpiredSession(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	old, err := f.manager.IssueOrRefresh(ctx, testUserID, nil, deviceA)
	require.NoError(t, err)
	f.advance(168 * time.Hour)

	fresh, err := f.manager.IssueOrRefresh(ctx, testUserID, nil, deviceA)
	require.NoError(t, err)
	require.NotEqual(t, old, fresh)
}

func TestIssueOrRefreshUpdatesRoleSnapshot(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	id, err := f.manager.IssueOrRefresh(ctx, testUserID, []users.RoleType{users.RoleCustomer}, deviceA)
	require.NoError(t, err)
	_, err = f.manager.IssueOrRefresh(ctx, testUserID, []users.RoleType{users.RoleCustomer, users.RoleSeller}, deviceA)
	require.NoError(t, err)
	require.Equal(t, []users.RoleType{users.RoleCustomer, users.RoleSeller}, f.session(t, id).Roles)
}

func TestIssueOrRefreshMaxLifetimeCapsExtension(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t, sessions.WithMaxLifetime(200*time.Hour))
	created := f.now

	id, err := f.manager.IssueOrRefresh(ctx, testUserID, nil, deviceA)
	require.NoError(t, err)

	f.advance(100 * time.Hour)
	again, err := f.manager.IssueOrRefresh(ctx, testUserID, nil, deviceA)
	require.NoError(t, err)
	require.Equal(t, id, again)
	require.Equal(t, created.Add(200*time.Hour), f.session(t, id).ExpiresAt)

	f.advance(100 * time.Hour)
	fresh, err := f.manager.IssueOrRefresh(ctx, testUserID, nil, deviceA)
	require.NoError(t, err)
	require.NotEqual(t, id, fresh)
}

func TestIssueOrRefreshStoreFailure(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.repo.FailWrites(true)

	_, err := f.manager.IssueOrRefresh(ctx, testUserID, nil, deviceA)
	require.ErrorIs(t, err, apperr.ErrOperationFailed)
}

func TestValidate(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	_, err := f.manager.Validate(ctx, "missing")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	id, err := f.manager.IssueOrRefresh(ctx, testUserID, nil, deviceA)
	require.NoError(t, err)
	s, err := f.manager.Validate(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, s.ID)

	f.advance(168 * time.Hour)
	_, err = f.manager.Validate(ctx, id)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	id, err := f.manager.IssueOrRefresh(ctx, testUserID, nil, deviceA)
	require.NoError(t, err)

	require.NoError(t, f.manager.Revoke(ctx, id))
	require.True(t, f.session(t, id).IsRevoked)
	require.Equal(t, []string{id}, f.notifier.Sessions())

	_, err = f.manager.Validate(ctx, id)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	err = f.manager.Revoke(ctx, id)
	require.ErrorIs(t, err, apperr.ErrNotFound, "revoke is not idempotent")

	err = f.manager.Revoke(ctx, "missing")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRevokeExpiredSessionIsNotFound(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	id, err := f.manager.IssueOrRefresh(ctx, testUserID, nil, deviceA)
	require.NoError(t, err)
	f.advance(sessions.DefaultTTL + time.Second)

	require.ErrorIs(t, f.manager.Revoke(ctx, id), apperr.ErrNotFound)
	require.ErrorIs(t, f.manager.RevokeOwned(ctx, testUserID, id), apperr.ErrNotFound)
	require.False(t, f.session(t, id).IsRevoked)
	require.Empty(t, f.notifier.Sessions(), "no push for a dead session")
}

func TestRevokeSucceedsWhenNotifyFails(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.notifier.Err = errors.New("client offline")

	id, err := f.manager.IssueOrRefresh(ctx, testUserID, nil, deviceA)
	require.NoError(t, err)
	require.NoError(t, f.manager.Revoke(ctx, id))
	require.True(t, f.session(t, id).IsRevoked)
}

func TestRevokeOwned(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	id, err := f.manager.IssueOrRefresh(ctx, testUserID, nil, deviceA)
	require.NoError(t, err)

	err = f.manager.RevokeOwned(ctx, "someone-else", id)
	require.ErrorIs(t, err, apperr.ErrAccessDenied)
	require.False(t, f.session(t, id).IsRevoked)

	require.NoError(t, f.manager.RevokeOwned(ctx, testUserID, id))
	require.True(t, f.session(t, id).IsRevoked)
}

func TestRevokeAllForUser(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	s1, err := f.manager.IssueOrRefresh(ctx, testUserID, nil, deviceA)
	require.NoError(t, err)
	s2, err := f.manager.IssueOrRefresh(ctx, testUserID, nil, deviceB)
	require.NoError(t, err)
	other, err := f.manager.IssueOrRefresh(ctx, "user-2", nil, deviceA)
	require.NoError(t, err)

	n, err := f.manager.RevokeAllForUser(ctx, testUserID)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.True(t, f.session(t, s1).IsRevoked)
	require.True(t, f.session(t, s2).IsRevoked)
	require.False(t, f.session(t, other).IsRevoked)

	n, err = f.manager.RevokeAllForUser(ctx, testUserID)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestPropagateRoleChange(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	roles := []users.RoleType{users.RoleCustomer}

	s1, err := f.manager.IssueOrRefresh(ctx, testUserID, roles, deviceA)
	require.NoError(t, err)
	s2, err := f.manager.IssueOrRefresh(ctx, testUserID, roles, deviceB)
	require.NoError(t, err)

	require.NoError(t, f.manager.PropagateRoleChange(ctx, testUserID, users.RoleAdmin, sessions.RoleAdded))
	for _, id := range []string{s1, s2} {
		s, err := f.manager.Validate(ctx, id)
		require.NoError(t, err)
		require.True(t, s.HasRole(users.RoleAdmin))
	}

	// adding twice keeps a single entry
	require.NoError(t, f.manager.PropagateRoleChange(ctx, testUserID, users.RoleAdmin, sessions.RoleAdded))
	require.Equal(t, []users.RoleType{users.RoleCustomer, users.RoleAdmin}, f.session(t, s1).Roles)

	require.NoError(t, f.manager.PropagateRoleChange(ctx, testUserID, users.RoleAdmin, sessions.RoleRemoved))
	require.Equal(t, []users.RoleType{users.RoleCustomer}, f.session(t, s1).Roles)
	require.Equal(t, []users.RoleType{users.RoleCustomer}, f.session(t, s2).Roles)
}

func TestPropagateRoleChangeSkipsDeadSessions(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	dead, err := f.manager.IssueOrRefresh(ctx, testUserID, nil, deviceA)
	require.NoError(t, err)
	require.NoError(t, f.manager.Revoke(ctx, dead))

	require.NoError(t, f.manager.PropagateRoleChange(ctx, testUserID, users.RoleSeller, sessions.RoleAdded))
	require.False(t, f.session(t, dead).HasRole(users.RoleSeller))
}

func TestListActive(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	s1, err := f.manager.IssueOrRefresh(ctx, testUserID, nil, deviceA)
	require.NoError(t, err)
	f.advance(time.Minute)
	s2, err := f.manager.IssueOrRefresh(ctx, testUserID, nil, deviceB)
	require.NoError(t, err)
	f.advance(time.Minute)
	third := deviceB
	third.Browser = "Firefox"
	s3, err := f.manager.IssueOrRefresh(ctx, testUserID, nil, third)
	require.NoError(t, err)
	require.NoError(t, f.manager.Revoke(ctx, s3))

	active, err := f.manager.ListActive(ctx, testUserID)
	require.NoError(t, err)
	require.Len(t, active, 2)
	require.Equal(t, s2, active[0].ID)
	require.Equal(t, s1, active[1].ID)
}

func TestDeleteAllForUserAndPurge(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	_, err := f.manager.IssueOrRefresh(ctx, testUserID, nil, deviceA)
	require.NoError(t, err)
	_, err = f.manager.IssueOrRefresh(ctx, "user-2", nil, deviceA)
	require.NoError(t, err)

	require.NoError(t, f.manager.DeleteAllForUser(ctx, testUserID))
	require.Equal(t, 1, f.repo.Count())

	f.advance(169 * time.Hour)
	n, err := f.manager.PurgeExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.Zero(t, f.repo.Count())
}
