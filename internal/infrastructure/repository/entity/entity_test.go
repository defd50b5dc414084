package entity

import (
	"testing"
	"time"

	"shopify-hubspot-sync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMongoAppDoc_CredentialsFollowPlatform(t *testing.T) {
	updated := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	app := &domain.App{
		ID:       primitive.NewObjectID().Hex(),
		UserID:   "user-1",
		Platform: domain.PlatformHubSpot,
		Credentials: &domain.HubspotCredentials{
			Token:        "access",
			RefreshToken: "refresh",
			HubID:        "42",
			Prefix:       "Acme",
			UpdatedAt:    updated,
		},
	}

	doc, err := MongoAppDocFromDomain(app)
	require.NoError(t, err)
	assert.Equal(t, []string{}, doc.WebhookIDs)

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	var decoded MongoAppDoc
	require.NoError(t, bson.Unmarshal(raw, &decoded))

	got, err := decoded.ToDomain()
	require.NoError(t, err)
	assert.Equal(t, app.ID, got.ID)
	creds, ok := got.Credentials.(*domain.HubspotCredentials)
	require.True(t, ok)
	assert.Equal(t, "refresh", creds.RefreshToken)
	assert.Equal(t, "acme", creds.KeyPrefix())
	assert.True(t, updated.Equal(creds.UpdatedAt))
}

func TestCredentialsFromRaw(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"shopUrl": "https://acme.myshopify.com", "accessToken": "shpat"})
	require.NoError(t, err)

	creds, err := CredentialsFromRaw(domain.PlatformShopify, raw)
	require.NoError(t, err)
	shop, ok := creds.(*domain.ShopifyCredentials)
	require.True(t, ok)
	assert.Equal(t, "acme.myshopify.com", shop.ShopDomain())
	assert.Equal(t, "shpat", shop.AccessToken())

	empty, err := CredentialsFromRaw(domain.PlatformShopify, nil)
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = CredentialsFromRaw(domain.Platform("Woo"), raw)
	assert.Error(t, err)
}

func TestMongoConnectDoc_RoundTrip(t *testing.T) {
	from, to := primitive.NewObjectID(), primitive.NewObjectID()
	connect := &domain.Connect{
		UserID:           "user-1",
		FromAppID:        from.Hex(),
		ToAppID:          to.Hex(),
		Name:             "store",
		IsActive:         true,
		MigratedContacts: 7,
	}

	doc := MongoConnectDocFromDomain(connect)
	assert.True(t, doc.ID.IsZero())
	assert.Equal(t, from, doc.From)

	got := doc.ToDomain()
	assert.Equal(t, from.Hex(), got.FromAppID)
	assert.Equal(t, to.Hex(), got.ToAppID)
	assert.Equal(t, 7, got.MigratedContacts)
	assert.True(t, got.IsActive)
}

func TestObjectIDOrZero(t *testing.T) {
	id := primitive.NewObjectID()
	assert.Equal(t, id, ObjectIDOrZero(id.Hex()))
	assert.Equal(t, primitive.NilObjectID, ObjectIDOrZero("not-an-id"))
	assert.Equal(t, primitive.NilObjectID, ObjectIDOrZero(""))
}
