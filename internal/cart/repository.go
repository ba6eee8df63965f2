package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrCartNotFound = errors.New("cart not found")

// Repository defines the cart persistence operations used by Service.
type Repository interface {
	GetCart(ctx context.Context, ownerID string) (*Cart, error)
	SetItem(ctx context.Context, ownerID string, productID int64, quantity int32) error
	RemoveItem(ctx context.Context, ownerID string, productID int64) error
	DeleteCart(ctx context.Context, ownerID string) error
}

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("carts"),
	}
}

func (m *MongoRepository) GetCart(ctx context.Context, ownerID string) (*Cart, error) {
	var cart Cart

	err := m.collection.FindOne(ctx, bson.M{"owner_id": ownerID}).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return &cart, nil
}

// SetItem sets the quantity of a line, creating the line and the cart when
// they do not exist yet.
func (m *MongoRepository) SetItem(ctx context.Context, ownerID string, productID int64, quantity int32) error {
	for attempt := 0; attempt < 2; attempt++ {
		updated, err := m.updateItem(ctx, ownerID, productID, quantity)
		if err != nil {
			return err
		}
		if updated {
			return nil
		}

		err = m.pushItem(ctx, ownerID, productID, quantity)
		if err == nil {
			return nil
		}
		// A concurrent writer created the cart or the line first.
		if !mongo.IsDuplicateKeyError(err) {
			return err
		}
	}
	return fmt.Errorf("failed to set cart item: concurrent update on cart %s", ownerID)
}

func (m *MongoRepository) updateItem(ctx context.Context, ownerID string, productID int64, quantity int32) (bool, error) {
	now := time.Now()
	filter := bson.M{
		"owner_id":         ownerID,
		"items.product_id": productID,
	}
	update := bson.M{
		"$set": bson.M{
			"items.$[elem].quantity": quantity,
			"updated_at":             now,
		},
	}
	arrayFilters := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"elem.product_id": productID},
		},
	})

	result, err := m.collection.UpdateOne(ctx, filter, update, arrayFilters)
	if err != nil {
		return false, fmt.Errorf("failed to update existing item: %w", err)
	}
	return result.MatchedCount > 0, nil
}

func (m *MongoRepository) pushItem(ctx context.Context, ownerID string, productID int64, quantity int32) error {
	now := time.Now()
	filter := bson.M{
		"owner_id":         ownerID,
		"items.product_id": bson.M{"$ne": productID},
	}
	update := bson.M{
		"$push":        bson.M{"items": Item{ProductID: productID, Quantity: quantity, AddedAt: now}},
		"$set":         bson.M{"updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}

	_, err := m.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to add new item: %w", err)
	}
	return nil
}

func (m *MongoRepository) RemoveItem(ctx context.Context, ownerID string, productID int64) error {
	filter := bson.M{"owner_id": ownerID}
	update := bson.M{
		"$pull": bson.M{
			"items": bson.M{"product_id": productID},
		},
		"$set": bson.M{"updated_at": time.Now()},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to remove item: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrCartNotFound
	}

	return nil
}

func (m *MongoRepository) DeleteCart(ctx context.Context, ownerID string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}

	return nil
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // abandoned carts
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}
