package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/prepstack/identity-core/domain"
)

// CredentialRepository implements domain.CredentialRepository on MongoDB,
// backing the legacy email/password store.
type CredentialRepository struct {
	credentials *mongo.Collection
}

// NewCredentialRepository creates the repository and ensures its indexes.
func NewCredentialRepository(ctx context.Context, db *mongo.Database) (domain.CredentialRepository, error) {
	repo := &CredentialRepository{credentials: db.Collection(CredentialsCollection)}
	if err := repo.createIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to create credential indexes")
	}
	return repo, nil
}

func (r *CredentialRepository) createIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{
			// Case-insensitive unique email.
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetCollation(&options.Collation{Locale: "en", Strength: 2}),
		},
	}

	if _, err := r.credentials.Indexes().CreateMany(ctx, indexModels, options.CreateIndexes()); err != nil {
		return fmt.Errorf("failed to create indexes for credentials collection: %w", err)
	}
	return nil
}

// GetByEmail retrieves a legacy user by email.
func (r *CredentialRepository) GetByEmail(ctx context.Context, email string) (*domain.LegacyUser, error) {
	var user domain.LegacyUser
	err := r.credentials.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCredentialNotFound
		}
		log.Error().Err(err).Str("email", email).Msg("Error getting legacy user from MongoDB")
		return nil, err
	}
	return &user, nil
}

// Create inserts a legacy user. Duplicate emails map to
// domain.ErrCredentialExists.
func (r *CredentialRepository) Create(ctx context.Context, user *domain.LegacyUser) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	if _, err := r.credentials.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrCredentialExists
		}
		log.Error().Err(err).Str("email", user.Email).Msg("Error creating legacy user in MongoDB")
		return err
	}
	return nil
}

// TouchLogin records the last successful login time.
func (r *CredentialRepository) TouchLogin(ctx context.Context, id string) error {
	update := bson.M{"$set": bson.M{"last_login_at": time.Now().UTC()}}
	result, err := r.credentials.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("Error touching legacy user login time")
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrCredentialNotFound
	}
	return nil
}

var _ domain.CredentialRepository = (*CredentialRepository)(nil)
