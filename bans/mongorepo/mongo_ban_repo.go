package mongobanrepo

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/clone-prom-team-2025/server/bans"
	"github.com/clone-prom-team-2025/server/internal/docstore"
	apperr "github.com/clone-prom-team-2025/server/internal/errors"
)

var _ bans.Repo = (*Repo)(nil)

// Repo stores bans in the user_bans collection.
type Repo struct {
	coll *mongo.Collection
}

func New(db *mongo.Database) *Repo {
	return &Repo{coll: db.Collection(docstore.BansCollection)}
}

func (r *Repo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "banned_at", Value: 1}},
	})
	return docstore.WriteErr(err, "[mongobanrepo.EnsureIndexes]")
}

func (r *Repo) Get(ctx context.Context, id string) (*bans.Ban, error) {
	var b bans.Ban
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		return nil, docstore.ReadErr(err, "[mongobanrepo.Get]")
	}
	return &b, nil
}

func (r *Repo) Insert(ctx context.Context, ban *bans.Ban) error {
	_, err := r.coll.InsertOne(ctx, ban)
	return docstore.WriteErr(err, "[mongobanrepo.Insert]")
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return docstore.WriteErr(err, "[mongobanrepo.Delete]")
	}
	if res.DeletedCount == 0 {
		return apperr.Wrapf(apperr.ErrNotFound, "[mongobanrepo.Delete] ban %s", id)
	}
	return nil
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]*bans.Ban, error) {
	cur, err := r.coll.Find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(bson.D{{Key: "banned_at", Value: 1}}))
	if err != nil {
		return nil, docstore.ReadErr(err, "[mongobanrepo.ListByUser]")
	}
	out := make([]*bans.Ban, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, docstore.ReadErr(err, "[mongobanrepo.ListByUser] decode")
	}
	return out, nil
}
