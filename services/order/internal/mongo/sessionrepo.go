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

type SessionRepo struct {
	collection *mongo.Collection
}

func NewSessionRepo(db *mongo.Database) *SessionRepo {
	return &SessionRepo{
		collection: db.Collection(SessionsCollection),
	}
}

func (r *SessionRepo) Create(ctx context.Context, s *tables.Session) error {
	if s == nil {
		return fmt.Errorf("session is nil")
	}

	if _, err := r.collection.InsertOne(ctx, s); err != nil {
		return fmt.Errorf("cannot create session: %w", err)
	}

	return nil
}

func (r *SessionRepo) Get(ctx context.Context, id uuid.UUID) (*tables.Session, error) {
	var s tables.Session
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get session: %w", err)
	}
	return &s, nil
}

func (r *SessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("cannot delete session: %w", err)
	}
	return nil
}

// AttachOrder adds the order to the session while it is open and not held
// for billing. The order id is added at most once, so retries keep the
// original position.
func (r *SessionRepo) AttachOrder(ctx context.Context, sessionID, orderID uuid.UUID) (*tables.Session, error) {
	filter := bson.M{"_id": sessionID, "closed_at": nil, "billing_hold": nil}
	update := bson.M{"$addToSet": bson.M{"order_ids": orderID}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var s tables.Session
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&s)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("cannot attach order: %w", err)
		}
		current, gerr := r.Get(ctx, sessionID)
		if gerr == nil && current != nil && current.IsOpen() && current.IsHeld() {
			return nil, tables.ErrSessionHeld
		}
		return nil, tables.ErrSessionClosed
	}
	return &s, nil
}

func (r *SessionRepo) DetachOrder(ctx context.Context, sessionID, orderID uuid.UUID) error {
	update := bson.M{"$pull": bson.M{"order_ids": orderID}}
	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": sessionID}, update); err != nil {
		return fmt.Errorf("cannot detach order: %w", err)
	}
	return nil
}

func (r *SessionRepo) Hold(ctx context.Context, sessionID, holdID uuid.UUID, at, staleBefore time.Time) (*tables.Session, error) {
	filter := bson.M{
		"_id":       sessionID,
		"closed_at": nil,
		"$or": bson.A{
			bson.M{"billing_hold": nil},
			bson.M{"billing_hold": holdID},
			bson.M{"billing_held_at": bson.M{"$lt": staleBefore}},
		},
	}
	update := bson.M{"$set": bson.M{"billing_hold": holdID, "billing_held_at": at}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var s tables.Session
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot hold session: %w", err)
	}
	return &s, nil
}

func (r *SessionRepo) Unhold(ctx context.Context, sessionID, holdID uuid.UUID) error {
	filter := bson.M{"_id": sessionID, "billing_hold": holdID}
	update := bson.M{"$unset": bson.M{"billing_hold": "", "billing_held_at": ""}}
	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("cannot release session hold: %w", err)
	}
	return nil
}

func (r *SessionRepo) Close(ctx context.Context, sessionID uuid.UUID, billID *uuid.UUID, closedAt time.Time) (bool, error) {
	filter := bson.M{"_id": sessionID, "closed_at": nil}
	set := bson.M{"closed_at": closedAt}
	if billID != nil {
		set["bill_id"] = *billID
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("cannot close session: %w", err)
	}
	return result.ModifiedCount == 1, nil
}
