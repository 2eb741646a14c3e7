package fakesessionrepo

import (
	"context"
	"sync"
	"time"

	apperr "github.com/clone-prom-team-2025/server/internal/errors"
	"github.com/clone-prom-team-2025/server/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo is an in-memory session store. Sessions are copied in and out.
type FakeSessionRepo struct {
	sessions  map[string]*sessions.Session
	byUser    map[string][]string // userID to session ids, insertion order
	lock      sync.RWMutex
	failWrite bool
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		sessions: make(map[string]*sessions.Session),
		byUser:   make(map[string][]string),
	}
}

// FailWrites makes every subsequent write report ErrOperationFailed.
func (sr *FakeSessionRepo) FailWrites(fail bool) {
	sr.lock.Lock()
	defer sr.lock.Unlock()
	sr.failWrite = fail
}

func (sr *FakeSessionRepo) Get(_ context.Context, id string) (*sessions.Session, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	s, ok := sr.sessions[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return s.Clone(), nil
}

func (sr *FakeSessionRepo) ListByUser(_ context.Context, userID string) ([]*sessions.Session, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	ids := sr.byUser[userID]
	out := make([]*sessions.Session, 0, len(ids))
	for _, id := range ids {
		out = append(out, sr.sessions[id].Clone())
	}
	return out, nil
}

func (sr *FakeSessionRepo) Insert(_ context.Context, s *sessions.Session) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	if sr.failWrite {
		return apperr.ErrOperationFailed
	}
	if _, ok := sr.sessions[s.ID]; ok {
		return apperr.Wrapf(apperr.ErrOperationFailed, "duplicate session %s", s.ID)
	}
	sr.sessions[s.ID] = s.Clone()
	sr.byUser[s.UserID] = append(sr.byUser[s.UserID], s.ID)
	return nil
}

func (sr *FakeSessionRepo) Update(_ context.Context, s *sessions.Session) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	if sr.failWrite {
		return apperr.ErrOperationFailed
	}
	if _, ok := sr.sessions[s.ID]; !ok {
		return apperr.ErrNotFound
	}
	sr.sessions[s.ID] = s.Clone()
	return nil
}

func (sr *FakeSessionRepo) UpdateMany(_ context.Context, list []*sessions.Session) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	if sr.failWrite {
		return apperr.ErrOperationFailed
	}
	for _, s := range list {
		if _, ok := sr.sessions[s.ID]; !ok {
			return apperr.Wrapf(apperr.ErrNotFound, "session %s", s.ID)
		}
	}
	for _, s := range list {
		sr.sessions[s.ID] = s.Clone()
	}
	return nil
}

func (sr *FakeSessionRepo) DeleteByUser(_ context.Context, userID string) (int64, error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	if sr.failWrite {
		return 0, apperr.ErrOperationFailed
	}
	ids := sr.byUser[userID]
	for _, id := range ids {
		delete(sr.sessions, id)
	}
	delete(sr.byUser, userID)
	return int64(len(ids)), nil
}

func (sr *FakeSessionRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	if sr.failWrite {
		return 0, apperr.ErrOperationFailed
	}
	var removed int64
	for userID, ids := range sr.byUser {
		kept := ids[:0]
		for _, id := range ids {
			if sr.sessions[id].ExpiresAt.Before(before) {
				delete(sr.sessions, id)
				removed++
				continue
			}
			kept = append(kept, id)
		}
		if len(kept) == 0 {
			delete(sr.byUser, userID)
		} else {
			sr.byUser[userID] = kept
		}
	}
	return removed, nil
}

// Count returns the number of stored sessions.
func (sr *FakeSessionRepo) Count() int {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	return len(sr.sessions)
}
