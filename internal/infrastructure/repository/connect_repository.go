package repository

import (
	"context"
	"fmt"
	"time"

	"shopify-hubspot-sync/internal/domain"
	"shopify-hubspot-sync/internal/infrastructure/repository/entity"
	"shopify-hubspot-sync/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConnectRepository implements ConnectRepository using MongoDB
type MongoConnectRepository struct {
	collection *mongo.Collection
}

// NewMongoConnectRepository creates a new MongoDB connect repository
func NewMongoConnectRepository(db *mongo.Database) *MongoConnectRepository {
	return &MongoConnectRepository{
		collection: db.Collection("connects"),
	}
}

var _ ports.ConnectRepository = (*MongoConnectRepository)(nil)

// EnsureIndexes creates the lookup index used by pair checks
func (r *MongoConnectRepository) EnsureIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "from", Value: 1}, {Key: "to", Value: 1}},
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("failed to create connect index: %w", err)
	}
	return nil
}

// Create inserts a new connect and assigns its id
func (r *MongoConnectRepository) Create(ctx context.Context, connect *domain.Connect) error {
	doc := entity.MongoConnectDocFromDomain(connect)
	doc.ID = primitive.NewObjectID()
	doc.UpdatedAt = time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create connect: %w", err)
	}

	connect.ID = doc.ID.Hex()
	connect.CreatedAt = doc.CreatedAt
	connect.UpdatedAt = doc.UpdatedAt
	return nil
}

// Get retrieves a live connect by id
func (r *MongoConnectRepository) Get(ctx context.Context, id string) (*domain.Connect, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var doc entity.MongoConnectDoc
	err = r.collection.FindOne(ctx, bson.M{"_id": objID, "isDeleted": bson.M{"$ne": true}}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connect: %w", err)
	}

	return doc.ToDomain(), nil
}

// ListByUser retrieves all live connects of a user
func (r *MongoConnectRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Connect, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return r.find(ctx, bson.M{"user": userID, "isDeleted": bson.M{"$ne": true}}, opts)
}

// FindPair returns a live connect between two apps in either direction
func (r *MongoConnectRepository) FindPair(ctx context.Context, userID string, appA string, appB string) (*domain.Connect, error) {
	a := entity.ObjectIDOrZero(appA)
	b := entity.ObjectIDOrZero(appB)
	filter := bson.M{
		"user":      userID,
		"isDeleted": bson.M{"$ne": true},
		"$or": bson.A{
			bson.M{"from": a, "to": b},
			bson.M{"from": b, "to": a},
		},
	}

	var doc entity.MongoConnectDoc
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find connect pair: %w", err)
	}
	return doc.ToDomain(), nil
}

// CountByApp counts live connects referencing an app on either side
func (r *MongoConnectRepository) CountByApp(ctx context.Context, appID string) (int64, error) {
	id := entity.ObjectIDOrZero(appID)
	filter := bson.M{
		"isDeleted": bson.M{"$ne": true},
		"$or":       bson.A{bson.M{"from": id}, bson.M{"to": id}},
	}
	n, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count connects: %w", err)
	}
	return n, nil
}

// SetActive flips the webhook/sync enabled flag
func (r *MongoConnectRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.update(ctx, id, bson.M{"$set": bson.M{"isActive": active}})
}

// SetSyncing flips the bulk migration flag
func (r *MongoConnectRepository) SetSyncing(ctx context.Context, id string, syncing bool) error {
	return r.update(ctx, id, bson.M{"$set": bson.M{"isSyncing": syncing}})
}

// SetSyncMetafield flips the custom field transfer flag
func (r *MongoConnectRepository) SetSyncMetafield(ctx context.Context, id string, enabled bool) error {
	return r.update(ctx, id, bson.M{"$set": bson.M{"syncMetafield": enabled}})
}

// UpdateName renames a connect
func (r *MongoConnectRepository) UpdateName(ctx context.Context, id string, name string) error {
	return r.update(ctx, id, bson.M{"$set": bson.M{"name": name}})
}

// ResetCounters sets the given counters to zero
func (r *MongoConnectRepository) ResetCounters(ctx context.Context, id string, counters []domain.Counter) error {
	if len(counters) == 0 {
		return nil
	}
	fields := bson.M{}
	for _, c := range counters {
		fields[string(c)] = 0
	}
	return r.update(ctx, id, bson.M{"$set": fields})
}

// IncrementCounter adds one to a counter with a store-side $inc
func (r *MongoConnectRepository) IncrementCounter(ctx context.Context, id string, counter domain.Counter) error {
	return r.update(ctx, id, bson.M{"$inc": bson.M{string(counter): 1}})
}

// SoftDelete marks a connect deleted
func (r *MongoConnectRepository) SoftDelete(ctx context.Context, id string) error {
	now := time.Now()
	return r.update(ctx, id, bson.M{"$set": bson.M{"isDeleted": true, "deletedAt": now}})
}

func (r *MongoConnectRepository) update(ctx context.Context, id string, update bson.M) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: connect %s", domain.ErrNotFound, id)
	}

	set, _ := update["$set"].(bson.M)
	if set == nil {
		set = bson.M{}
		update["$set"] = set
	}
	set["updatedAt"] = time.Now()

	filter := bson.M{"_id": objID, "isDeleted": bson.M{"$ne": true}}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update connect: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: connect %s", domain.ErrNotFound, id)
	}
	return nil
}

func (r *MongoConnectRepository) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]*domain.Connect, error) {
	cursor, err := r.collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to list connects: %w", err)
	}
	defer cursor.Close(ctx)

	var connects []*domain.Connect
	for cursor.Next(ctx) {
		var doc entity.MongoConnectDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode connect: %w", err)
		}
		connects = append(connects, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return connects, nil
}
