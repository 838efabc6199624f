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

	"github.com/appetiteclub/tableside/pkg/enums/cookstage"
	"github.com/appetiteclub/tableside/services/order/internal/kitchen"
)

type TicketRepo struct {
	collection *mongo.Collection
}

func NewTicketRepo(db *mongo.Database) *TicketRepo {
	return &TicketRepo{
		collection: db.Collection(TicketsCollection),
	}
}

func (r *TicketRepo) Create(ctx context.Context, t *kitchen.Ticket) error {
	if t == nil {
		return fmt.Errorf("ticket is nil")
	}

	if _, err := r.collection.InsertOne(ctx, t); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return kitchen.ErrDuplicate
		}
		return fmt.Errorf("cannot create ticket: %w", err)
	}

	return nil
}

func (r *TicketRepo) Get(ctx context.Context, id uuid.UUID) (*kitchen.Ticket, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *TicketRepo) GetByOrder(ctx context.Context, orderID uuid.UUID) (*kitchen.Ticket, error) {
	return r.findOne(ctx, bson.M{"order_id": orderID})
}

func (r *TicketRepo) findOne(ctx context.Context, filter bson.M) (*kitchen.Ticket, error) {
	var t kitchen.Ticket
	err := r.collection.FindOne(ctx, filter).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get ticket: %w", err)
	}
	return &t, nil
}

func (r *TicketRepo) List(ctx context.Context, f kitchen.TicketFilter) ([]*kitchen.Ticket, error) {
	filter := bson.M{}
	if len(f.Stages) > 0 {
		filter["stage"] = bson.M{"$in": f.Stages}
	}
	if f.TableNumber != "" {
		filter["table_number"] = f.TableNumber
	}
	if f.SessionID != nil {
		filter["session_id"] = *f.SessionID
	}

	opts := options.Find().SetSort(bson.D{{Key: "confirmed_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list tickets: %w", err)
	}
	defer cursor.Close(ctx)

	result := []*kitchen.Ticket{}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode tickets: %w", err)
	}

	return result, nil
}

func (r *TicketRepo) UpdateStage(ctx context.Context, id uuid.UUID, from, next string, at time.Time) (bool, error) {
	set := bson.M{"stage": next, "updated_at": at}
	switch next {
	case cookstage.Stages.Cooking.Name:
		set["started_at"] = at
	case cookstage.Stages.Ready.Name:
		set["ready_at"] = at
	case cookstage.Stages.Cancelled.Name:
		set["cancelled_at"] = at
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "stage": from}, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("cannot update ticket stage: %w", err)
	}
	return result.ModifiedCount == 1, nil
}

func (r *TicketRepo) IncrementReprint(ctx context.Context, id uuid.UUID, at time.Time) (*kitchen.Ticket, error) {
	update := bson.M{
		"$inc": bson.M{"reprint_count": 1},
		"$set": bson.M{"last_printed_at": at},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var t kitchen.Ticket
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot record reprint: %w", err)
	}
	return &t, nil
}
