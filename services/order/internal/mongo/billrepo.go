package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/appetiteclub/tableside/services/order/internal/billing"
)

// BillRepo relies on the unique session_id index to refuse a second bill
// for a session.
type BillRepo struct {
	collection *mongo.Collection
}

func NewBillRepo(db *mongo.Database) *BillRepo {
	return &BillRepo{
		collection: db.Collection(BillsCollection),
	}
}

func (r *BillRepo) Create(ctx context.Context, b *billing.Bill) error {
	if b == nil {
		return fmt.Errorf("bill is nil")
	}

	if _, err := r.collection.InsertOne(ctx, b); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return billing.ErrDuplicate
		}
		return fmt.Errorf("cannot create bill: %w", err)
	}

	return nil
}

func (r *BillRepo) Get(ctx context.Context, id uuid.UUID) (*billing.Bill, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *BillRepo) GetBySession(ctx context.Context, sessionID uuid.UUID) (*billing.Bill, error) {
	return r.findOne(ctx, bson.M{"session_id": sessionID})
}

func (r *BillRepo) findOne(ctx context.Context, filter bson.M) (*billing.Bill, error) {
	var b billing.Bill
	err := r.collection.FindOne(ctx, filter).Decode(&b)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get bill: %w", err)
	}
	return &b, nil
}
