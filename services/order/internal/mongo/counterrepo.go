package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CounterRepo is a sequence store backed by one document per key. The
// increment is a single atomic upsert.
type CounterRepo struct {
	collection *mongo.Collection
}

func NewCounterRepo(db *mongo.Database) *CounterRepo {
	return &CounterRepo{
		collection: db.Collection(CountersCollection),
	}
}

type counter struct {
	Key   string `bson:"_id"`
	Value int64  `bson:"value"`
}

func (r *CounterRepo) Increment(ctx context.Context, key string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var c counter
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": key}, bson.M{"$inc": bson.M{"value": int64(1)}}, opts).Decode(&c)
	if err != nil {
		return 0, fmt.Errorf("cannot increment counter %s: %w", key, err)
	}
	return c.Value, nil
}
