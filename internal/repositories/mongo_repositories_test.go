package repositories_test

import (
	"context"
	"testing"

	"farmverse/internal/models"
	"farmverse/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newMockMongo(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func duplicateKey() bson.D {
	return mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"})
}

func TestMongoProductRepository(t *testing.T) {
	mt := newMockMongo(t)
	ctx := context.Background()

	mt.Run("create assigns id and defaults", func(mt *mtest.T) {
		repo := repositories.NewMongoProductRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		product := &models.Product{Name: "Organic Tomatoes", Price: 40}
		require.NoError(mt, repo.Create(ctx, product))
		assert.NotEmpty(mt, product.ID)
		assert.Equal(mt, models.DefaultStock, product.Stock)
		assert.False(mt, product.CreatedAt.IsZero())

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "insert", evt.CommandName)
		assert.Equal(mt, product.ID, evt.Command.Lookup("documents", "0", "_id").StringValue())
	})

	mt.Run("create duplicate", func(mt *mtest.T) {
		repo := repositories.NewMongoProductRepository(mt.DB)
		mt.AddMockResponses(duplicateKey())

		err := repo.Create(ctx, &models.Product{ID: "p-1", Name: "Apples", Price: 120})
		assert.ErrorIs(mt, err, repositories.ErrDuplicate)
	})

	mt.Run("get all", func(mt *mtest.T) {
		repo := repositories.NewMongoProductRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "farmverse.products", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "p-1"}, {Key: "name", Value: "Basmati Rice"}, {Key: "price", Value: 90.5}},
			bson.D{{Key: "_id", Value: "p-2"}, {Key: "name", Value: "Fresh Milk"}, {Key: "price", Value: 60.0}},
		))

		products, err := repo.GetAll(ctx)
		require.NoError(mt, err)
		require.Len(mt, products, 2)
		assert.Equal(mt, "p-1", products[0].ID)
		assert.Equal(mt, 90.5, products[0].Price)
		assert.Equal(mt, "Fresh Milk", products[1].Name)
	})

	mt.Run("get by id not found", func(mt *mtest.T) {
		repo := repositories.NewMongoProductRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "farmverse.products", mtest.FirstBatch))

		_, err := repo.GetByID(ctx, "missing")
		assert.ErrorIs(mt, err, repositories.ErrNotFound)
	})

	mt.Run("replace all", func(mt *mtest.T) {
		repo := repositories.NewMongoProductRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 3}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 2}),
		)

		created, err := repo.ReplaceAll(ctx, []models.Product{{Name: "Urea", Price: 1200, Category: models.CategorySupply}, {Name: "Jaggery", Price: 80}})
		require.NoError(mt, err)
		require.Len(mt, created, 2)
		assert.NotEmpty(mt, created[0].ID)
		assert.NotEqual(mt, created[0].ID, created[1].ID)
		assert.Equal(mt, models.CategoryProduce, created[1].Category)

		assert.Equal(mt, "delete", mt.GetStartedEvent().CommandName)
		insert := mt.GetStartedEvent()
		assert.Equal(mt, "insert", insert.CommandName)
		assert.Equal(mt, created[1].ID, insert.Command.Lookup("documents", "1", "_id").StringValue())
	})

	mt.Run("replace all with nothing only clears", func(mt *mtest.T) {
		repo := repositories.NewMongoProductRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		created, err := repo.ReplaceAll(ctx, nil)
		require.NoError(mt, err)
		assert.Empty(mt, created)
	})
}

func TestMongoOrderRepository(t *testing.T) {
	mt := newMockMongo(t)
	ctx := context.Background()

	mt.Run("create assigns id", func(mt *mtest.T) {
		repo := repositories.NewMongoOrderRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		order := &models.Order{Status: models.StatusConfirmed, TotalPrice: 200}
		require.NoError(mt, repo.Create(ctx, order))
		assert.NotEmpty(mt, order.ID)
		assert.False(mt, order.CreatedAt.IsZero())
	})

	mt.Run("update status", func(mt *mtest.T) {
		repo := repositories.NewMongoOrderRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		require.NoError(mt, repo.UpdateStatus(ctx, "o-1", models.StatusDelivered))
		evt := mt.GetStartedEvent()
		assert.Equal(mt, "update", evt.CommandName)
		set := evt.Command.Lookup("updates", "0", "u", "$set")
		assert.Equal(mt, string(models.StatusDelivered), set.Document().Lookup("status").StringValue())
		assert.True(mt, set.Document().Lookup("isDelivered").Boolean())
	})

	mt.Run("update status not found", func(mt *mtest.T) {
		repo := repositories.NewMongoOrderRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		err := repo.UpdateStatus(ctx, "missing", models.StatusShipped)
		assert.ErrorIs(mt, err, repositories.ErrNotFound)
	})
}

func TestMongoUserRepository(t *testing.T) {
	mt := newMockMongo(t)
	ctx := context.Background()

	mt.Run("create lower-cases email", func(mt *mtest.T) {
		repo := repositories.NewMongoUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		account := &models.Account{Email: "Asha@FarmVerse.in", Name: "Asha"}
		require.NoError(mt, repo.Create(ctx, account))
		assert.Equal(mt, "asha@farmverse.in", account.Email)
		assert.NotEmpty(mt, account.ID)
	})

	mt.Run("create duplicate email", func(mt *mtest.T) {
		repo := repositories.NewMongoUserRepository(mt.DB)
		mt.AddMockResponses(duplicateKey())

		err := repo.Create(ctx, &models.Account{Email: "asha@farmverse.in"})
		assert.ErrorIs(mt, err, repositories.ErrDuplicate)
	})

	mt.Run("get by email", func(mt *mtest.T) {
		repo := repositories.NewMongoUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "farmverse.users", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "u-1"}, {Key: "email", Value: "asha@farmverse.in"}, {Key: "name", Value: "Asha"}},
		))

		account, err := repo.GetByEmail(ctx, "ASHA@farmverse.in")
		require.NoError(mt, err)
		assert.Equal(mt, "u-1", account.ID)
		assert.Equal(mt, "asha@farmverse.in", mt.GetStartedEvent().Command.Lookup("filter", "email").StringValue())
	})

	mt.Run("get by id not found", func(mt *mtest.T) {
		repo := repositories.NewMongoUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "farmverse.users", mtest.FirstBatch))

		_, err := repo.GetByID(ctx, "missing")
		assert.ErrorIs(mt, err, repositories.ErrNotFound)
	})
}
