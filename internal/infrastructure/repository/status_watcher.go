package repository

import (
	"context"
	"fmt"

	"shopify-hubspot-sync/internal/infrastructure/repository/entity"
	"shopify-hubspot-sync/internal/ports"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StatusWatcher follows the connects change stream and republishes every
// updated Connect as a status snapshot. Requires a replica set.
type StatusWatcher struct {
	collection *mongo.Collection
	publisher  ports.StatusPublisher
	logger     zerolog.Logger
}

// NewStatusWatcher creates a new connect change stream watcher
func NewStatusWatcher(db *mongo.Database, publisher ports.StatusPublisher, logger zerolog.Logger) *StatusWatcher {
	return &StatusWatcher{
		collection: db.Collection("connects"),
		publisher:  publisher,
		logger:     logger,
	}
}

type connectChangeEvent struct {
	OperationType string                  `bson:"operationType"`
	FullDocument  *entity.MongoConnectDoc `bson:"fullDocument"`
}

// Run blocks until ctx is cancelled or the stream fails
func (w *StatusWatcher) Run(ctx context.Context) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "operationType", Value: bson.D{{Key: "$in", Value: bson.A{"update", "replace"}}}},
		}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	stream, err := w.collection.Watch(ctx, pipeline, opts)
	if err != nil {
		return fmt.Errorf("failed to watch connects: %w", err)
	}
	defer stream.Close(context.WithoutCancel(ctx))

	w.logger.Info().Msg("Watching connect status changes")

	for stream.Next(ctx) {
		var event connectChangeEvent
		if err := stream.Decode(&event); err != nil {
			w.logger.Warn().Err(err).Msg("Failed to decode connect change event")
			continue
		}
		if event.FullDocument == nil || event.FullDocument.IsDeleted {
			continue
		}
		w.publisher.Publish(event.FullDocument.ToDomain().Status())
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("connect change stream failed: %w", err)
	}
	return nil
}
