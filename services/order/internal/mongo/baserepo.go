package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	DefaultURL      = "mongodb://localhost:27017"
	DefaultDatabase = "tableside"
)

// BaseRepo owns the client shared by every collection repo. It is started
// and stopped by the service lifecycle.
type BaseRepo struct {
	client *mongo.Client
	db     *mongo.Database
	logger apt.Logger
	config *apt.Config
}

func NewBaseRepo(config *apt.Config, logger apt.Logger) *BaseRepo {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &BaseRepo{
		logger: logger,
		config: config,
	}
}

func (r *BaseRepo) Start(ctx context.Context) error {
	url := r.config.GetStringOrDef("db.mongo.url", DefaultURL)
	dbName := r.config.GetStringOrDef("db.mongo.name", DefaultDatabase)

	clientOptions := options.Client().ApplyURI(url).
		SetRegistry(NewRegistry()).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("cannot connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	r.client = client
	r.db = client.Database(dbName)

	if err := EnsureIndexes(ctx, r.db); err != nil {
		return err
	}

	r.logger.Info("connected to MongoDB", "database", dbName)
	return nil
}

func (r *BaseRepo) Stop(ctx context.Context) error {
	if r.client != nil {
		if err := r.client.Disconnect(ctx); err != nil {
			return fmt.Errorf("cannot disconnect from MongoDB: %w", err)
		}
		r.logger.Info("disconnected from MongoDB")
	}
	return nil
}

// Ping backs the readiness check.
func (r *BaseRepo) Ping(ctx context.Context) error {
	if r.client == nil {
		return errors.New("mongo not connected")
	}
	return r.client.Ping(ctx, readpref.Primary())
}

func (r *BaseRepo) GetDatabase() *mongo.Database {
	return r.db
}

// Drop removes every collection of the database.
func (r *BaseRepo) Drop(ctx context.Context) error {
	if r.db == nil {
		return errors.New("mongo not connected")
	}
	if err := r.db.Drop(ctx); err != nil {
		return fmt.Errorf("cannot drop database: %w", err)
	}
	return nil
}
