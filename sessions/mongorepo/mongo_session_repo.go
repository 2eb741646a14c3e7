package mongosessionrepo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/clone-prom-team-2025/server/internal/docstore"
	apperr "github.com/clone-prom-team-2025/server/internal/errors"
	"github.com/clone-prom-team-2025/server/sessions"
)

var _ sessions.Repo = (*Repo)(nil)

// Repo stores sessions in the user_sessions collection, one document per session.
type Repo struct {
	coll *mongo.Collection
}

func New(db *mongo.Database) *Repo {
	return &Repo{coll: db.Collection(docstore.SessionsCollection)}
}

// EnsureIndexes creates the user_id lookup index and the expiry index used by DeleteExpired.
func (r *Repo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}},
	})
	return docstore.WriteErr(err, "[mongosessionrepo.EnsureIndexes]")
}

func (r *Repo) Get(ctx context.Context, id string) (*sessions.Session, error) {
	var s sessions.Session
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		return nil, docstore.ReadErr(err, "[mongosessionrepo.Get]")
	}
	return &s, nil
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]*sessions.Session, error) {
	cur, err := r.coll.Find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, docstore.ReadErr(err, "[mongosessionrepo.ListByUser]")
	}
	out := make([]*sessions.Session, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, docstore.ReadErr(err, "[mongosessionrepo.ListByUser] decode")
	}
	return out, nil
}

func (r *Repo) Insert(ctx context.Context, s *sessions.Session) error {
	_, err := r.coll.InsertOne(ctx, s)
	return docstore.WriteErr(err, "[mongosessionrepo.Insert]")
}

func (r *Repo) Update(ctx context.Context, s *sessions.Session) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": s.ID}, s)
	if err != nil {
		return docstore.WriteErr(err, "[mongosessionrepo.Update]")
	}
	if res.MatchedCount == 0 {
		return apperr.Wrapf(apperr.ErrNotFound, "[mongosessionrepo.Update] session %s", s.ID)
	}
	return nil
}

func (r *Repo) UpdateMany(ctx context.Context, list []*sessions.Session) error {
	if len(list) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(list))
	for _, s := range list {
		models = append(models, mongo.NewReplaceOneModel().SetFilter(bson.M{"_id": s.ID}).SetReplacement(s))
	}
	res, err := r.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return docstore.WriteErr(err, "[mongosessionrepo.UpdateMany]")
	}
	if res.MatchedCount < int64(len(list)) {
		return apperr.Wrapf(apperr.ErrNotFound, "[mongosessionrepo.UpdateMany] matched %d of %d", res.MatchedCount, len(list))
	}
	return nil
}

func (r *Repo) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, docstore.WriteErr(err, "[mongosessionrepo.DeleteByUser]")
	}
	return res.DeletedCount, nil
}

func (r *Repo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": before}})
	if err != nil {
		return 0, docstore.WriteErr(err, "[mongosessionrepo.DeleteExpired]")
	}
	return res.DeletedCount, nil
}
