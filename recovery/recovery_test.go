package recovery_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/clone-prom-team-2025/server/cache"
	apperr "github.com/clone-prom-team-2025/server/internal/errors"
	"github.com/clone-prom-team-2025/server/mail/mailfake"
	"github.com/clone-prom-team-2025/server/recovery"
	"github.com/clone-prom-team-2025/server/sessions"
	fakesessionrepo "github.com/clone-prom-team-2025/server/sessions/repofakes"
	"github.com/clone-prom-team-2025/server/users"
	fakeuserrepo "github.com/clone-prom-team-2025/server/users/repofake"
	"github.com/stretchr/testify/require"
)

const (
	testUserID    = "user-1"
	testEmail     = "user@x.com"
	testPassword  = "OldPass123"
	newPassword   = "NewPass123"
	resetPrefixed = "reset-pass:"
)

type testFixture struct {
	now      time.Time
	cache    *cache.MemoryCache
	users    *fakeuserrepo.FakeUserRepo
	outbox   *mailfake.Outbox
	sessions *sessions.Manager
	service  *recovery.Service
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	ctx := context.Background()

	f := &testFixture{
		now:    time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		users:  fakeuserrepo.NewFakeUserRepo(),
		outbox: mailfake.NewOutbox(),
	}
	clock := func() time.Time { return f.now }
	f.cache = cache.NewMemoryCache(cache.WithNowTime(clock))

	hash, err := users.HashPassword(testPassword)
	require.NoError(t, err)
	require.NoError(t, f.users.Insert(ctx, &users.User{
		ID:           testUserID,
		Email:        testEmail,
		Username:     "JohnDoe",
		PasswordHash: hash,
		Roles:        []users.RoleType{users.RoleCustomer},
	}))

	f.sessions, err = sessions.NewManager(fakesessionrepo.NewFakeSessionRepo(), sessions.DefaultTTL, sessions.WithNowTime(clock))
	require.NoError(t, err)

	f.service, err = recovery.NewService(f.cache, f.users, f.outbox, recovery.WithSessionRevoker(f.sessions))
	require.NoError(t, err)
	return f
}

func (f *testFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// startReset runs RequestReset and returns the reset token with the emailed code.
func (f *testFixture) startReset(t *testing.T, identifier string) (string, string) {
	t.Helper()
	token, found, err := f.service.RequestReset(context.Background(), identifier)
	require.NoError(t, err)
	require.True(t, found)
	msg, ok := f.outbox.Last()
	require.True(t, ok)
	return token, msg.Code()
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := recovery.NewService(nil, fakeuserrepo.NewFakeUserRepo(), mailfake.NewOutbox())
	require.Error(t, err)
	_, err = recovery.NewService(cache.NewMemoryCache(), nil, mailfake.NewOutbox())
	require.Error(t, err)
	_, err = recovery.NewService(cache.NewMemoryCache(), fakeuserrepo.NewFakeUserRepo(), nil)
	require.Error(t, err)
}

func TestFullResetFlow(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	token, code := f.startReset(t, testEmail)
	require.NotEmpty(t, token)
	require.Len(t, code, 6)

	msg, _ := f.outbox.Last()
	require.Equal(t, testEmail, msg.To)

	access, ok, err := f.service.VerifyCode(ctx, token, code)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, access)

	require.NoError(t, f.service.Commit(ctx, newPassword, access))

	u, err := f.users.Get(ctx, testUserID)
	require.NoError(t, err)
	require.True(t, users.CheckPasswordHash(newPassword, u.PasswordHash))
	require.False(t, users.CheckPasswordHash(testPassword, u.PasswordHash))
}

func TestRequestResetByUsername(t *testing.T) {
	f := setupTestFixture(t)

	_, code := f.startReset(t, "johndoe")
	require.NotEmpty(t, code)
	msg, _ := f.outbox.Last()
	require.Equal(t, testEmail, msg.To)
}

func TestRequestResetUnknownIdentifier(t *testing.T) {
	f := setupTestFixture(t)

	token, found, err := f.service.RequestReset(context.Background(), "nobody@x.com")
	require.NoError(t, err)
	require.False(t, found)
	require.Empty(t, token)
	require.Empty(t, f.outbox.Messages())
	require.Zero(t, f.cache.Len())
}

func TestRequestResetMailFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.outbox.Err = errors.New("smtp down")

	_, found, err := f.service.RequestReset(context.Background(), testEmail)
	require.Error(t, err)
	require.False(t, found)
	require.Zero(t, f.cache.Len())
}

func TestVerifyCodeIsCaseInsensitive(t *testing.T) {
	f := setupTestFixture(t)

	token, code := f.startReset(t, testEmail)
	_, ok, err := f.service.VerifyCode(context.Background(), token, " "+strings.ToLower(code)+" ")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyCodeMismatchKeepsEntry(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	token, code := f.startReset(t, testEmail)
	wrong := "ZZZZZZ"
	if code == wrong {
		wrong = "YYYYYY"
	}

	_, ok, err := f.service.VerifyCode(ctx, token, wrong)
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = f.service.VerifyCode(ctx, token, code)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyCodeIsSingleUse(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	token, code := f.startReset(t, testEmail)
	_, ok, err := f.service.VerifyCode(ctx, token, code)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = f.service.VerifyCode(ctx, token, code)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyCodeExpires(t *testing.T) {
	f := setupTestFixture(t)

	token, code := f.startReset(t, testEmail)
	f.advance(recovery.DefaultCodeTTL + time.Second)

	_, ok, err := f.service.VerifyCode(context.Background(), token, code)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyCodeUnknownToken(t *testing.T) {
	f := setupTestFixture(t)

	_, ok, err := f.service.VerifyCode(context.Background(), "no-such-token", "ABC123")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyCodeCorruptEntry(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cache.Set(ctx, resetPrefixed+"tok", "not json", time.Minute))

	_, ok, err := f.service.VerifyCode(ctx, "tok", "ABC123")
	require.Error(t, err)
	require.False(t, ok)
}

func TestCommitAccessCodeIsSingleUse(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	token, code := f.startReset(t, testEmail)
	access, _, err := f.service.VerifyCode(ctx, token, code)
	require.NoError(t, err)

	require.NoError(t, f.service.Commit(ctx, newPassword, access))
	err = f.service.Commit(ctx, "Another123", access)
	require.ErrorIs(t, err, apperr.ErrInvalidOperation)
}

func TestCommitUnknownAccessCode(t *testing.T) {
	f := setupTestFixture(t)

	err := f.service.Commit(context.Background(), newPassword, "bogus")
	require.ErrorIs(t, err, apperr.ErrInvalidOperation)
}

func TestCommitAccessCodeExpires(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	token, code := f.startReset(t, testEmail)
	access, _, err := f.service.VerifyCode(ctx, token, code)
	require.NoError(t, err)

	f.advance(recovery.DefaultAccessTTL + time.Second)
	require.ErrorIs(t, f.service.Commit(ctx, newPassword, access), apperr.ErrInvalidOperation)
}

func TestCommitWeakPasswordConsumesAccessCode(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	token, code := f.startReset(t, testEmail)
	access, _, err := f.service.VerifyCode(ctx, token, code)
	require.NoError(t, err)

	require.ErrorIs(t, f.service.Commit(ctx, "weak", access), apperr.ErrInvalidOperation)
	require.ErrorIs(t, f.service.Commit(ctx, newPassword, access), apperr.ErrInvalidOperation)

	u, err := f.users.Get(ctx, testUserID)
	require.NoError(t, err)
	require.True(t, users.CheckPasswordHash(testPassword, u.PasswordHash))
}

func TestCommitUserDeletedMeanwhile(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	token, code := f.startReset(t, testEmail)
	access, _, err := f.service.VerifyCode(ctx, token, code)
	require.NoError(t, err)
	require.NoError(t, f.users.Delete(ctx, testUserID))

	require.ErrorIs(t, f.service.Commit(ctx, newPassword, access), apperr.ErrNotFound)
}

func TestCommitRevokesSessions(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	sid, err := f.sessions.IssueOrRefresh(ctx, testUserID, []users.RoleType{users.RoleCustomer},
		sessions.DeviceFingerprint{Browser: "Chrome", OS: "Windows", Device: "desktop"})
	require.NoError(t, err)

	token, code := f.startReset(t, testEmail)
	access, _, err := f.service.VerifyCode(ctx, token, code)
	require.NoError(t, err)
	require.NoError(t, f.service.Commit(ctx, newPassword, access))

	_, err = f.sessions.Validate(ctx, sid)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

// barrierCache holds every TryGet caller until all of them have read, so concurrent
// consumers all see the entry before any of them removes it.
type barrierCache struct {
	cache.Cache
	readers *sync.WaitGroup
}

func (b barrierCache) TryGet(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := b.Cache.TryGet(ctx, key)
	b.readers.Done()
	b.readers.Wait()
	return v, ok, err
}

func runConcurrently(n int, fn func() bool) int {
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if fn() {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return successes
}

func TestConcurrentConsumersUseEachSecretOnce(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	token, code := f.startReset(t, testEmail)

	const callers = 2
	readers := &sync.WaitGroup{}
	readers.Add(callers)
	racing, err := recovery.NewService(barrierCache{Cache: f.cache, readers: readers}, f.users, f.outbox)
	require.NoError(t, err)

	var accessCodes []string
	var mu sync.Mutex
	verified := runConcurrently(callers, func() bool {
		accessCode, ok, err := racing.VerifyCode(ctx, token, code)
		if err != nil || !ok {
			return false
		}
		mu.Lock()
		accessCodes = append(accessCodes, accessCode)
		mu.Unlock()
		return true
	})
	require.Equal(t, 1, verified, "one reset code mints exactly one access code")
	require.Len(t, accessCodes, 1)

	readers.Add(callers)
	committed := runConcurrently(callers, func() bool {
		return racing.Commit(ctx, newPassword, accessCodes[0]) == nil
	})
	require.Equal(t, 1, committed, "one access code commits exactly once")
	require.Equal(t, 0, f.cache.Len())
}
