package repository

import (
	"context"
	"fmt"
	"time"

	"shopify-hubspot-sync/internal/domain"
	"shopify-hubspot-sync/internal/infrastructure/repository/entity"
	"shopify-hubspot-sync/internal/ports"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoSyncLogRepository implements SyncLogRepository using MongoDB
type MongoSyncLogRepository struct {
	collection *mongo.Collection
}

// NewMongoSyncLogRepository creates a new MongoDB sync log repository
func NewMongoSyncLogRepository(db *mongo.Database) ports.SyncLogRepository {
	return &MongoSyncLogRepository{
		collection: db.Collection("sync_logs"),
	}
}

// LogSync stores one record sync outcome
func (r *MongoSyncLogRepository) LogSync(ctx context.Context, entry *domain.SyncLog) error {
	doc := entity.MongoSyncLogDocFromDomain(entry)
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to log sync: %w", err)
	}
	entry.ID = doc.ID.Hex()
	return nil
}
