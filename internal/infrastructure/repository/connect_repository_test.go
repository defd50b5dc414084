package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"shopify-hubspot-sync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoConnectRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("get decodes a live connect", func(mt *mtest.T) {
		repo := &MongoConnectRepository{collection: mt.Coll}
		id, from := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.connects", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "user", Value: "user-1"},
			{Key: "from", Value: from},
			{Key: "isSyncing", Value: true},
			{Key: "migratedOrders", Value: 4},
			{Key: "createdAt", Value: time.Now()},
		}))

		connect, err := repo.Get(context.Background(), id.Hex())
		require.NoError(t, err)
		require.NotNil(t, connect)
		assert.Equal(t, id.Hex(), connect.ID)
		assert.Equal(t, from.Hex(), connect.FromAppID)
		assert.True(t, connect.IsSyncing)
		assert.Equal(t, 4, connect.MigratedOrders)
	})

	mt.Run("get returns nil when missing", func(mt *mtest.T) {
		repo := &MongoConnectRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.connects", mtest.FirstBatch))

		connect, err := repo.Get(context.Background(), primitive.NewObjectID().Hex())
		require.NoError(t, err)
		assert.Nil(t, connect)

		connect, err = repo.Get(context.Background(), "not-an-id")
		require.NoError(t, err)
		assert.Nil(t, connect)
	})

	mt.Run("create assigns an id", func(mt *mtest.T) {
		repo := &MongoConnectRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		connect := &domain.Connect{UserID: "user-1", Name: "store"}
		require.NoError(t, repo.Create(context.Background(), connect))
		_, err := primitive.ObjectIDFromHex(connect.ID)
		assert.NoError(t, err)
		assert.False(t, connect.CreatedAt.IsZero())
	})

	mt.Run("increment on a missing connect is not found", func(mt *mtest.T) {
		repo := &MongoConnectRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		err := repo.IncrementCounter(context.Background(), primitive.NewObjectID().Hex(), domain.CounterOrders)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	mt.Run("increment matches", func(mt *mtest.T) {
		repo := &MongoConnectRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		assert.NoError(t, repo.IncrementCounter(context.Background(), primitive.NewObjectID().Hex(), domain.CounterContacts))
	})

	mt.Run("update with a malformed id is not found", func(mt *mtest.T) {
		repo := &MongoConnectRepository{collection: mt.Coll}

		err := repo.SetSyncing(context.Background(), "bogus", true)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	mt.Run("count by app", func(mt *mtest.T) {
		repo := &MongoConnectRepository{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.connects", mtest.FirstBatch, bson.D{{Key: "n", Value: int32(2)}}))

		n, err := repo.CountByApp(context.Background(), primitive.NewObjectID().Hex())
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	mt.Run("reset with no counters is a no-op", func(mt *mtest.T) {
		repo := &MongoConnectRepository{collection: mt.Coll}

		assert.NoError(t, repo.ResetCounters(context.Background(), primitive.NewObjectID().Hex(), nil))
	})
}
