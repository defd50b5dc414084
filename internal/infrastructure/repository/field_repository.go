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

// MongoFieldRepository implements FieldRepository and ModuleAppRepository using MongoDB
type MongoFieldRepository struct {
	fields     *mongo.Collection
	moduleApps *mongo.Collection
}

// NewMongoFieldRepository creates a new MongoDB field repository
func NewMongoFieldRepository(db *mongo.Database) *MongoFieldRepository {
	return &MongoFieldRepository{
		fields:     db.Collection("fields"),
		moduleApps: db.Collection("module_apps"),
	}
}

var (
	_ ports.FieldRepository     = (*MongoFieldRepository)(nil)
	_ ports.ModuleAppRepository = (*MongoFieldRepository)(nil)
)

// EnsureIndexes creates the scope index for field discovery and the
// unique (app, type) index for module inventories
func (r *MongoFieldRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.fields.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "app", Value: 1}, {Key: "connect", Value: 1}, {Key: "moduletype", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create field index: %w", err)
	}
	_, err = r.moduleApps.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "app", Value: 1}, {Key: "type", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create module app index: %w", err)
	}
	return nil
}

// GetField retrieves a field by id
func (r *MongoFieldRepository) GetField(ctx context.Context, id string) (*domain.Field, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var doc entity.MongoFieldDoc
	err = r.fields.FindOne(ctx, bson.M{"_id": objID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get field: %w", err)
	}
	return doc.ToDomain(), nil
}

// ListFields retrieves fields by id
func (r *MongoFieldRepository) ListFields(ctx context.Context, ids []string) ([]*domain.Field, error) {
	objIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if objID, err := primitive.ObjectIDFromHex(id); err == nil {
			objIDs = append(objIDs, objID)
		}
	}
	if len(objIDs) == 0 {
		return nil, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": objIDs}})
}

// ListScoped retrieves the fields known for one app, connect and module
func (r *MongoFieldRepository) ListScoped(ctx context.Context, appID string, connectID string, module domain.ModuleType) ([]*domain.Field, error) {
	filter := bson.M{
		"app":        entity.ObjectIDOrZero(appID),
		"connect":    entity.ObjectIDOrZero(connectID),
		"moduletype": string(module),
	}
	return r.find(ctx, filter)
}

// InsertFields inserts new fields and assigns their ids
func (r *MongoFieldRepository) InsertFields(ctx context.Context, fields []*domain.Field) error {
	if len(fields) == 0 {
		return nil
	}

	now := time.Now()
	docs := make([]interface{}, 0, len(fields))
	for _, f := range fields {
		doc := entity.MongoFieldDocFromDomain(f)
		doc.ID = primitive.NewObjectID()
		doc.CreatedAt = now
		doc.UpdatedAt = now
		docs = append(docs, doc)

		f.ID = doc.ID.Hex()
		f.CreatedAt = now
		f.UpdatedAt = now
	}

	if _, err := r.fields.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert fields: %w", err)
	}
	return nil
}

// DeleteFields removes fields by id
func (r *MongoFieldRepository) DeleteFields(ctx context.Context, ids []string) error {
	objIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if objID, err := primitive.ObjectIDFromHex(id); err == nil {
			objIDs = append(objIDs, objID)
		}
	}
	if len(objIDs) == 0 {
		return nil
	}

	if _, err := r.fields.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": objIDs}}); err != nil {
		return fmt.Errorf("failed to delete fields: %w", err)
	}
	return nil
}

// UpdateMapping sets the used flag and partner of a field. An empty
// mappingField stores null.
func (r *MongoFieldRepository) UpdateMapping(ctx context.Context, id string, isUsed bool, mappingField string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: field %s", domain.ErrNotFound, id)
	}

	update := bson.M{"$set": bson.M{
		"isUsed":       isUsed,
		"mappingField": entity.ObjectIDPtr(mappingField),
		"updatedAt":    time.Now(),
	}}
	result, err := r.fields.UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		return fmt.Errorf("failed to update field mapping: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: field %s", domain.ErrNotFound, id)
	}
	return nil
}

// GetModuleApp retrieves the field inventory of one app module
func (r *MongoFieldRepository) GetModuleApp(ctx context.Context, appID string, module domain.ModuleType) (*domain.ModuleApp, error) {
	var doc entity.MongoModuleAppDoc
	filter := bson.M{"app": entity.ObjectIDOrZero(appID), "type": string(module)}

	err := r.moduleApps.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get module app: %w", err)
	}
	return doc.ToDomain(), nil
}

// SaveModuleApp upserts the field inventory of one app module
func (r *MongoFieldRepository) SaveModuleApp(ctx context.Context, moduleApp *domain.ModuleApp) error {
	doc := entity.MongoModuleAppDocFromDomain(moduleApp)

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"app": doc.App, "type": doc.Type}
	update := bson.M{"$set": bson.M{
		"displayName": doc.DisplayName,
		"platform":    doc.Platform,
		"fields":      doc.Fields,
	}}

	result, err := r.moduleApps.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to save module app: %w", err)
	}
	if id, ok := result.UpsertedID.(primitive.ObjectID); ok {
		moduleApp.ID = id.Hex()
	}
	return nil
}

func (r *MongoFieldRepository) find(ctx context.Context, filter bson.M) ([]*domain.Field, error) {
	cursor, err := r.fields.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list fields: %w", err)
	}
	defer cursor.Close(ctx)

	var fields []*domain.Field
	for cursor.Next(ctx) {
		var doc entity.MongoFieldDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode field: %w", err)
		}
		fields = append(fields, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return fields, nil
}
