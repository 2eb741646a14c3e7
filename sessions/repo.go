package sessions

import (
	"context"
	"time"
)

// Repo is the durable session store. A missing session is reported as
// internal/errors.ErrNotFound and an unacknowledged write as ErrOperationFailed.
type Repo interface {
	// Get returns the session with id.
	Get(ctx context.Context, id string) (*Session, error)

	// ListByUser returns every session owned by userID, revoked and expired ones included.
	ListByUser(ctx context.Context, userID string) ([]*Session, error)

	// Insert stores a new session.
	Insert(ctx context.Context, s *Session) error

	// Update replaces a stored session.
	Update(ctx context.Context, s *Session) error

	// UpdateMany replaces a batch of stored sessions in one write.
	UpdateMany(ctx context.Context, list []*Session) error

	// DeleteByUser physically removes all sessions of userID and returns how many were removed.
	DeleteByUser(ctx context.Context, userID string) (int64, error)

	// DeleteExpired removes sessions whose expiry is before the given time.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
