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

// MongoAppRepository implements AppRepository using MongoDB
type MongoAppRepository struct {
	collection *mongo.Collection
}

// NewMongoAppRepository creates a new MongoDB app repository
func NewMongoAppRepository(db *mongo.Database) ports.AppRepository {
	return &MongoAppRepository{
		collection: db.Collection("apps"),
	}
}

// GetApp retrieves a live app by id
func (r *MongoAppRepository) GetApp(ctx context.Context, id string) (*domain.App, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var doc entity.MongoAppDoc
	filter := bson.M{"_id": objID, "isDeleted": bson.M{"$ne": true}}
	err = r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get app: %w", err)
	}

	return doc.ToDomain()
}

// ListAppsByUser retrieves all live apps owned by a user
func (r *MongoAppRepository) ListAppsByUser(ctx context.Context, userID string) ([]*domain.App, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"user": userID, "isDeleted": bson.M{"$ne": true}})
	if err != nil {
		return nil, fmt.Errorf("failed to list apps: %w", err)
	}
	defer cursor.Close(ctx)

	var apps []*domain.App
	for cursor.Next(ctx) {
		var doc entity.MongoAppDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode app: %w", err)
		}
		app, err := doc.ToDomain()
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return apps, nil
}

// SaveApp inserts or replaces an app
func (r *MongoAppRepository) SaveApp(ctx context.Context, app *domain.App) error {
	doc, err := entity.MongoAppDocFromDomain(app)
	if err != nil {
		return err
	}
	doc.UpdatedAt = time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"_id": doc.ID}
	update := bson.M{"$set": doc}

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save app: %w", err)
	}

	app.ID = doc.ID.Hex()
	app.CreatedAt = doc.CreatedAt
	app.UpdatedAt = doc.UpdatedAt
	return nil
}

// UpdateCredentials replaces the credential blob of an app
func (r *MongoAppRepository) UpdateCredentials(ctx context.Context, appID string, creds domain.PlatformCredential) error {
	raw, err := entity.CredentialsToRaw(creds)
	if err != nil {
		return err
	}
	return r.set(ctx, appID, bson.M{"credentials": raw}, "failed to update credentials")
}

// SetActive flips the active flag of an app
func (r *MongoAppRepository) SetActive(ctx context.Context, appID string, active bool) error {
	return r.set(ctx, appID, bson.M{"isActive": active}, "failed to set app active")
}

// AddWebhookIDs appends registered webhook ids to an app
func (r *MongoAppRepository) AddWebhookIDs(ctx context.Context, appID string, webhookIDs []string) error {
	if len(webhookIDs) == 0 {
		return nil
	}
	objID, err := primitive.ObjectIDFromHex(appID)
	if err != nil {
		return fmt.Errorf("%w: app %s", domain.ErrNotFound, appID)
	}

	update := bson.M{
		"$push": bson.M{"webhookIds": bson.M{"$each": webhookIDs}},
		"$set":  bson.M{"updatedAt": time.Now()},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		return fmt.Errorf("failed to add webhook ids: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: app %s", domain.ErrNotFound, appID)
	}
	return nil
}

// ClearWebhookIDs empties the webhook id list of an app
func (r *MongoAppRepository) ClearWebhookIDs(ctx context.Context, appID string) error {
	return r.set(ctx, appID, bson.M{"webhookIds": []string{}}, "failed to clear webhook ids")
}

func (r *MongoAppRepository) set(ctx context.Context, appID string, fields bson.M, msg string) error {
	objID, err := primitive.ObjectIDFromHex(appID)
	if err != nil {
		return fmt.Errorf("%w: app %s", domain.ErrNotFound, appID)
	}
	fields["updatedAt"] = time.Now()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: app %s", domain.ErrNotFound, appID)
	}
	return nil
}
