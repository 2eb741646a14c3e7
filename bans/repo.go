package bans

import "context"

type Repo interface {
	Get(ctx context.Context, id string) (*Ban, error)
	Insert(ctx context.Context, ban *Ban) error
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string) ([]*Ban, error)
}
