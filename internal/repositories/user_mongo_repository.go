package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"farmverse/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoUserRepository is a MongoDB implementation of UserRepository.
// Emails are stored lower-cased so the unique index is case-insensitive.
type MongoUserRepository struct {
	coll *mongo.Collection
}

// NewMongoUserRepository creates a new instance of MongoUserRepository.
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection(usersCollection)}
}

// Create inserts a new account document.
func (r *MongoUserRepository) Create(ctx context.Context, account *models.Account) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	account.Email = strings.ToLower(account.Email)
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	if _, err := r.coll.InsertOne(ctx, account); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("account with email %s: %w", account.Email, ErrDuplicate)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetByEmail retrieves an account by its email.
func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(email)}, "email "+email)
}

// GetByID retrieves an account by its ID.
func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return r.findOne(ctx, bson.M{"_id": id}, "ID "+id)
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M, what string) (*models.Account, error) {
	var account models.Account
	if err := r.coll.FindOne(ctx, filter).Decode(&account); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("account with %s: %w", what, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account with %s: %w", what, err)
	}
	return &account, nil
}
