package entity

import (
	"fmt"
	"time"

	"shopify-hubspot-sync/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoAppDoc represents an App in MongoDB. Credentials are stored as an
// embedded document whose shape depends on Platform.
type MongoAppDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      string             `bson:"user"`
	Platform    string             `bson:"platform"`
	Name        string             `bson:"name"`
	IsActive    bool               `bson:"isActive"`
	Credentials bson.Raw           `bson:"credentials,omitempty"`
	WebhookIDs  []string           `bson:"webhookIds"`
	IsDeleted   bool               `bson:"isDeleted"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoAppDoc) ToDomain() (*domain.App, error) {
	creds, err := CredentialsFromRaw(domain.Platform(d.Platform), d.Credentials)
	if err != nil {
		return nil, err
	}
	webhookIDs := d.WebhookIDs
	if webhookIDs == nil {
		webhookIDs = []string{}
	}
	return &domain.App{
		ID:          d.ID.Hex(),
		UserID:      d.UserID,
		Platform:    domain.Platform(d.Platform),
		Name:        d.Name,
		IsActive:    d.IsActive,
		Credentials: creds,
		WebhookIDs:  webhookIDs,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

// MongoAppDocFromDomain converts a domain entity to a MongoDB document
func MongoAppDocFromDomain(app *domain.App) (*MongoAppDoc, error) {
	raw, err := CredentialsToRaw(app.Credentials)
	if err != nil {
		return nil, err
	}
	doc := &MongoAppDoc{
		UserID:      app.UserID,
		Platform:    string(app.Platform),
		Name:        app.Name,
		IsActive:    app.IsActive,
		Credentials: raw,
		WebhookIDs:  app.WebhookIDs,
		CreatedAt:   app.CreatedAt,
		UpdatedAt:   app.UpdatedAt,
	}
	if doc.WebhookIDs == nil {
		doc.WebhookIDs = []string{}
	}
	if app.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(app.ID); err == nil {
			doc.ID = objID
		}
	}
	return doc, nil
}

// CredentialsFromRaw decodes the credential variant matching platform
func CredentialsFromRaw(platform domain.Platform, raw bson.Raw) (domain.PlatformCredential, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var creds domain.PlatformCredential
	switch platform {
	case domain.PlatformShopify:
		creds = &domain.ShopifyCredentials{}
	case domain.PlatformHubSpot:
		creds = &domain.HubspotCredentials{}
	case domain.PlatformGoogleDrive:
		creds = &domain.GoogleDriveCredentials{}
	default:
		return nil, fmt.Errorf("unknown platform %q", platform)
	}
	if err := bson.Unmarshal(raw, creds); err != nil {
		return nil, fmt.Errorf("failed to decode %s credentials: %w", platform, err)
	}
	return creds, nil
}

// CredentialsToRaw encodes a credential variant as an embedded document
func CredentialsToRaw(creds domain.PlatformCredential) (bson.Raw, error) {
	if creds == nil {
		return nil, nil
	}
	raw, err := bson.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s credentials: %w", creds.Platform(), err)
	}
	return raw, nil
}
