package entity

import (
	"time"

	"shopify-hubspot-sync/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoSyncLogDoc represents one record sync outcome in MongoDB
type MongoSyncLogDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Status    bool               `bson:"status"`
	Connect   primitive.ObjectID `bson:"connect"`
	UserID    string             `bson:"user"`
	Module    string             `bson:"module"`
	DataPush  interface{}        `bson:"dataPush,omitempty"`
	Message   string             `bson:"message"`
	Label     string             `bson:"label"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// MongoSyncLogDocFromDomain converts a domain entity to a MongoDB document
func MongoSyncLogDocFromDomain(entry *domain.SyncLog) *MongoSyncLogDoc {
	return &MongoSyncLogDoc{
		ID:        ObjectIDOrZero(entry.ID),
		Status:    entry.Status,
		Connect:   ObjectIDOrZero(entry.ConnectID),
		UserID:    entry.UserID,
		Module:    string(entry.Module),
		DataPush:  entry.Payload,
		Message:   entry.Message,
		Label:     entry.Label,
		CreatedAt: entry.CreatedAt,
	}
}
