package entity

import (
	"time"

	"shopify-hubspot-sync/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoConnectDoc represents a Connect in MongoDB
type MongoConnectDoc struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	UserID           string             `bson:"user"`
	From             primitive.ObjectID `bson:"from"`
	To               primitive.ObjectID `bson:"to"`
	Name             string             `bson:"name"`
	IsActive         bool               `bson:"isActive"`
	IsSyncing        bool               `bson:"isSyncing"`
	SyncMetafield    bool               `bson:"syncMetafield"`
	MigratedContacts int                `bson:"migratedContacts"`
	MigratedProducts int                `bson:"migratedProducts"`
	MigratedOrders   int                `bson:"migratedOrders"`
	IsDeleted        bool               `bson:"isDeleted"`
	DeletedAt        *time.Time         `bson:"deletedAt,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoConnectDoc) ToDomain() *domain.Connect {
	return &domain.Connect{
		ID:               d.ID.Hex(),
		UserID:           d.UserID,
		FromAppID:        d.From.Hex(),
		ToAppID:          d.To.Hex(),
		Name:             d.Name,
		IsActive:         d.IsActive,
		IsSyncing:        d.IsSyncing,
		SyncMetafield:    d.SyncMetafield,
		MigratedContacts: d.MigratedContacts,
		MigratedProducts: d.MigratedProducts,
		MigratedOrders:   d.MigratedOrders,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

// MongoConnectDocFromDomain converts a domain entity to a MongoDB document
func MongoConnectDocFromDomain(connect *domain.Connect) *MongoConnectDoc {
	doc := &MongoConnectDoc{
		UserID:           connect.UserID,
		From:             ObjectIDOrZero(connect.FromAppID),
		To:               ObjectIDOrZero(connect.ToAppID),
		Name:             connect.Name,
		IsActive:         connect.IsActive,
		IsSyncing:        connect.IsSyncing,
		SyncMetafield:    connect.SyncMetafield,
		MigratedContacts: connect.MigratedContacts,
		MigratedProducts: connect.MigratedProducts,
		MigratedOrders:   connect.MigratedOrders,
		CreatedAt:        connect.CreatedAt,
		UpdatedAt:        connect.UpdatedAt,
	}
	doc.ID = ObjectIDOrZero(connect.ID)
	return doc
}

// ObjectIDOrZero parses a hex id, returning the zero ObjectID when it is not valid
func ObjectIDOrZero(id string) primitive.ObjectID {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID
	}
	return objID
}
