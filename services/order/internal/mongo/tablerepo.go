package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/appetiteclub/tableside/services/order/internal/tables"
)

type TableRepo struct {
	collection *mongo.Collection
}

func NewTableRepo(db *mongo.Database) *TableRepo {
	return &TableRepo{
		collection: db.Collection(TablesCollection),
	}
}

func (r *TableRepo) Create(ctx context.Context, t *tables.Table) error {
	if t == nil {
		return fmt.Errorf("table is nil")
	}

	if _, err := r.collection.InsertOne(ctx, t); err != nil {
		return fmt.Errorf("cannot create table: %w", err)
	}

	return nil
}

func (r *TableRepo) Get(ctx context.Context, id uuid.UUID) (*tables.Table, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *TableRepo) GetByNumber(ctx context.Context, number string) (*tables.Table, error) {
	return r.findOne(ctx, bson.M{"number": number})
}

func (r *TableRepo) findOne(ctx context.Context, filter bson.M) (*tables.Table, error) {
	var t tables.Table
	err := r.collection.FindOne(ctx, filter).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get table: %w", err)
	}
	return &t, nil
}

func (r *TableRepo) List(ctx context.Context) ([]*tables.Table, error) {
	opts := options.Find().SetSort(bson.D{{Key: "number", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list tables: %w", err)
	}
	defer cursor.Close(ctx)

	result := []*tables.Table{}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode tables: %w", err)
	}

	return result, nil
}

func (r *TableRepo) Claim(ctx context.Context, tableID, sessionID uuid.UUID) (bool, error) {
	filter := bson.M{"_id": tableID, "current_session_id": nil}
	update := bson.M{"$set": bson.M{
		"current_session_id": sessionID,
		"status":             tables.StatusOccupied,
		"updated_at":         time.Now(),
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("cannot claim table: %w", err)
	}
	return result.ModifiedCount == 1, nil
}

func (r *TableRepo) Release(ctx context.Context, tableID, sessionID uuid.UUID) (bool, error) {
	filter := bson.M{"_id": tableID, "current_session_id": sessionID}
	update := bson.M{"$set": bson.M{
		"current_session_id": nil,
		"status":             tables.StatusAvailable,
		"updated_at":         time.Now(),
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("cannot release table: %w", err)
	}
	return result.ModifiedCount == 1, nil
}
