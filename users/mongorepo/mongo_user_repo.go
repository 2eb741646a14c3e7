package mongouserrepo

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/clone-prom-team-2025/server/internal/docstore"
	apperr "github.com/clone-prom-team-2025/server/internal/errors"
	"github.com/clone-prom-team-2025/server/users"
)

var _ users.UserRepo = (*Repo)(nil)

// caseInsensitive is used for username lookups and the matching unique index.
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

type Repo struct {
	coll *mongo.Collection
}

func New(db *mongo.Database) *Repo {
	return &Repo{coll: db.Collection(docstore.UsersCollection)}
}

// EnsureIndexes creates unique indexes on email and (case-insensitively) username.
func (r *Repo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetCollation(caseInsensitive)},
	})
	return docstore.WriteErr(err, "[mongouserrepo.EnsureIndexes]")
}

func (r *Repo) Get(ctx context.Context, id string) (*users.User, error) {
	return r.findOne(ctx, bson.M{"_id": id}, "[mongouserrepo.Get]")
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.findOne(ctx, bson.M{"email": email}, "[mongouserrepo.GetByEmail]")
}

func (r *Repo) GetByUsername(ctx context.Context, username string) (*users.User, error) {
	return r.findOne(ctx, bson.M{"username": username}, "[mongouserrepo.GetByUsername]", options.FindOne().SetCollation(caseInsensitive))
}

func (r *Repo) findOne(ctx context.Context, filter bson.M, op string, opts ...options.Lister[options.FindOneOptions]) (*users.User, error) {
	var u users.User
	if err := r.coll.FindOne(ctx, filter, opts...).Decode(&u); err != nil {
		return nil, docstore.ReadErr(err, op)
	}
	return &u, nil
}

func (r *Repo) Insert(ctx context.Context, user *users.User) error {
	_, err := r.coll.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return apperr.Wrapf(apperr.ErrInvalidOperation, "[mongouserrepo.Insert] user already exists")
	}
	return docstore.WriteErr(err, "[mongouserrepo.Insert]")
}

func (r *Repo) Update(ctx context.Context, user *users.User) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		return docstore.WriteErr(err, "[mongouserrepo.Update]")
	}
	if res.MatchedCount == 0 {
		return apperr.Wrapf(apperr.ErrNotFound, "[mongouserrepo.Update] user %s", user.ID)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return docstore.WriteErr(err, "[mongouserrepo.Delete]")
	}
	if res.DeletedCount == 0 {
		return apperr.Wrapf(apperr.ErrNotFound, "[mongouserrepo.Delete] user %s", id)
	}
	return nil
}
