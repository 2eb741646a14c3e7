// Package docstore connects to the MongoDB document store behind the user, session
// and ban repositories and maps driver errors onto the service error classes.
package docstore

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	apperr "github.com/clone-prom-team-2025/server/internal/errors"
)

// Collection names.
const (
	UsersCollection    = "users"
	SessionsCollection = "user_sessions"
	BansCollection     = "user_bans"
)

// Connect opens a client for uri, pings the primary and returns the named database.
// The returned close function disconnects the client.
func Connect(ctx context.Context, uri, database string) (*mongo.Database, func(context.Context) error, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, errors.Wrap(err, "[docstore.Connect] connect")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, errors.Wrap(err, "[docstore.Connect] ping")
	}
	return client.Database(database), client.Disconnect, nil
}

// ReadErr maps a read failure: no documents becomes ErrNotFound, anything else is
// returned wrapped with op.
func ReadErr(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return errors.Wrap(apperr.ErrNotFound, op)
	}
	return errors.Wrap(err, op)
}

// WriteErr maps a write failure onto ErrOperationFailed. The driver error is kept
// in the message only.
func WriteErr(err error, op string) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(apperr.ErrOperationFailed, "%s: %v", op, err)
}
