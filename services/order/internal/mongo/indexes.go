package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

const (
	TablesCollection   = "tables"
	SessionsCollection = "sessions"
	OrdersCollection   = "orders"
	TicketsCollection  = "tickets"
	BillsCollection    = "bills"
	CountersCollection = "counters"
)

func unique(keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true)}
}

func plain(keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys}
}

var indexes = map[string][]mongo.IndexModel{
	TablesCollection: {
		unique(bson.D{{Key: "number", Value: 1}}),
	},
	SessionsCollection: {
		unique(bson.D{{Key: "number", Value: 1}}),
		plain(bson.D{{Key: "table_id", Value: 1}, {Key: "closed_at", Value: 1}}),
	},
	OrdersCollection: {
		unique(bson.D{{Key: "number", Value: 1}}),
		plain(bson.D{{Key: "session_id", Value: 1}, {Key: "created_at", Value: 1}}),
		plain(bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}),
		plain(bson.D{{Key: "table_number", Value: 1}}),
	},
	TicketsCollection: {
		unique(bson.D{{Key: "order_id", Value: 1}}),
		plain(bson.D{{Key: "stage", Value: 1}, {Key: "confirmed_at", Value: 1}}),
	},
	BillsCollection: {
		unique(bson.D{{Key: "session_id", Value: 1}}),
		unique(bson.D{{Key: "number", Value: 1}}),
	},
}

// EnsureIndexes creates the indexes the repos rely on. Unique indexes back
// the duplicate checks of order, ticket and bill creation.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	g, ctx := errgroup.WithContext(ctx)
	for name, models := range indexes {
		g.Go(func() error {
			if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
				return fmt.Errorf("cannot create indexes on %s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}
