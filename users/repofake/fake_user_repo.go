package fakeuserrepo

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	apperr "github.com/clone-prom-team-2025/server/internal/errors"
	"github.com/clone-prom-team-2025/server/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

// FakeUserRepo keeps users in memory. Records are copied in and out so callers must
// Update to persist a change, as with a real document store.
type FakeUserRepo struct {
	users     map[string]*users.User
	emailIds  map[string]string // email to user id
	nameIds   map[string]string // lower-cased username to user id
	lock      sync.RWMutex
	failWrite bool
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:    make(map[string]*users.User),
		emailIds: make(map[string]string),
		nameIds:  make(map[string]string),
	}
}

// FailWrites makes every subsequent write report ErrOperationFailed.
func (ur *FakeUserRepo) FailWrites(fail bool) {
	ur.lock.Lock()
	defer ur.lock.Unlock()
	ur.failWrite = fail
}

func (ur *FakeUserRepo) Insert(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if ur.failWrite {
		return apperr.ErrOperationFailed
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if _, ok := ur.users[user.ID]; ok {
		return apperr.Wrapf(apperr.ErrInvalidOperation, "user %s already exists", user.ID)
	}
	ur.put(user)
	return nil
}

func (ur *FakeUserRepo) Update(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if ur.failWrite {
		return apperr.ErrOperationFailed
	}
	old, ok := ur.users[user.ID]
	if !ok {
		return apperr.ErrNotFound
	}
	delete(ur.emailIds, old.Email)
	delete(ur.nameIds, strings.ToLower(old.Username))
	ur.put(user)
	return nil
}

func (ur *FakeUserRepo) Delete(_ context.Context, id string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if ur.failWrite {
		return apperr.ErrOperationFailed
	}
	user, ok := ur.users[id]
	if !ok {
		return apperr.ErrNotFound
	}
	delete(ur.emailIds, user.Email)
	delete(ur.nameIds, strings.ToLower(user.Username))
	delete(ur.users, id)
	return nil
}

func (ur *FakeUserRepo) Get(_ context.Context, id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return clone(user), nil
}

func (ur *FakeUserRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIds[email]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return clone(ur.users[id]), nil
}

func (ur *FakeUserRepo) GetByUsername(_ context.Context, username string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.nameIds[strings.ToLower(username)]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return clone(ur.users[id]), nil
}

func (ur *FakeUserRepo) put(user *users.User) {
	ur.users[user.ID] = clone(user)
	ur.emailIds[user.Email] = user.ID
	if user.Username != "" {
		ur.nameIds[strings.ToLower(user.Username)] = user.ID
	}
}

func clone(u *users.User) *users.User {
	c := *u
	c.Roles = slices.Clone(u.Roles)
	return &c
}
