package users

import (
	"context"
	"strings"

	apperr "github.com/clone-prom-team-2025/server/internal/errors"
)

// UserRepo is the user collaborator. Missing users are reported as
// internal/errors.ErrNotFound; unacknowledged writes as ErrOperationFailed.
type UserRepo interface {
	Get(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Insert(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error
}

// FindByIdentifier resolves a login identifier that is either an email address or a
// username. It returns (nil, nil) when no user matches.
func FindByIdentifier(ctx context.Context, repo UserRepo, identifier string) (*User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, nil
	}

	var (
		user *User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = repo.GetByEmail(ctx, NormalizeEmail(identifier))
	} else {
		user, err = repo.GetByUsername(ctx, identifier)
	}
	if apperr.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
