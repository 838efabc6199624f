package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/appetiteclub/apt"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type ResetOptions struct {
	URL      string
	Database string
	Confirm  bool
}

// ResetDB drops the service database. Tables, sessions, orders, tickets,
// bills, counters and seed records are all lost.
func ResetDB(ctx context.Context, opts ResetOptions, logger apt.Logger) error {
	if !opts.Confirm {
		return errors.New("refusing to drop the database without --yes")
	}
	logger.Infof("⚠️  Dropping database %s, this cannot be undone", opts.Database)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URL))
	if err != nil {
		return fmt.Errorf("connect to mongodb: %w", err)
	}
	defer client.Disconnect(ctx)

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongodb: %w", err)
	}

	if err := client.Database(opts.Database).Drop(ctx); err != nil {
		return fmt.Errorf("drop database %s: %w", opts.Database, err)
	}

	logger.Info("database dropped", "database", opts.Database)
	return nil
}
