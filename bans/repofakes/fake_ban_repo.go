package fakebanrepo

import (
	"context"
	"sync"

	"github.com/clone-prom-team-2025/server/bans"
	apperr "github.com/clone-prom-team-2025/server/internal/errors"
)

var _ bans.Repo = (*FakeBanRepo)(nil)

type FakeBanRepo struct {
	bans  map[string]*bans.Ban
	order []string
	lock  sync.RWMutex
}

func NewFakeBanRepo() *FakeBanRepo {
	return &FakeBanRepo{
		bans: make(map[string]*bans.Ban),
	}
}

func (br *FakeBanRepo) Get(_ context.Context, id string) (*bans.Ban, error) {
	br.lock.RLock()
	defer br.lock.RUnlock()

	b, ok := br.bans[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	c := *b
	return &c, nil
}

func (br *FakeBanRepo) Insert(_ context.Context, ban *bans.Ban) error {
	br.lock.Lock()
	defer br.lock.Unlock()

	if _, ok := br.bans[ban.ID]; ok {
		return apperr.Wrapf(apperr.ErrOperationFailed, "duplicate ban %s", ban.ID)
	}
	c := *ban
	br.bans[ban.ID] = &c
	br.order = append(br.order, ban.ID)
	return nil
}

func (br *FakeBanRepo) Delete(_ context.Context, id string) error {
	br.lock.Lock()
	defer br.lock.Unlock()

	if _, ok := br.bans[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(br.bans, id)
	for i, bid := range br.order {
		if bid == id {
			br.order = append(br.order[:i], br.order[i+1:]...)
			break
		}
	}
	return nil
}

func (br *FakeBanRepo) ListByUser(_ context.Context, userID string) ([]*bans.Ban, error) {
	br.lock.RLock()
	defer br.lock.RUnlock()

	out := make([]*bans.Ban, 0)
	for _, id := range br.order {
		if b := br.bans[id]; b.UserID == userID {
			c := *b
			out = append(out, &c)
		}
	}
	return out, nil
}
