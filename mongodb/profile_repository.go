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

// ProfileRepository implements domain.ProfileRepository on MongoDB.
type ProfileRepository struct {
	profiles *mongo.Collection
}

// NewProfileRepository creates the repository and ensures its indexes.
func NewProfileRepository(ctx context.Context, db *mongo.Database) (domain.ProfileRepository, error) {
	repo := &ProfileRepository{profiles: db.Collection(ProfilesCollection)}
	if err := repo.createIndexes(ctx); err != nil {
		// Index creation commonly fails when compatible indexes already
		// exist; not fatal for startup.
		log.Warn().Err(err).Msg("Failed to create profile indexes")
	}
	return repo, nil
}

func (r *ProfileRepository) createIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "provenance", Value: 1}},
			Options: options.Index().SetUnique(false),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetUnique(false),
		},
	}

	if _, err := r.profiles.Indexes().CreateMany(ctx, indexModels, options.CreateIndexes()); err != nil {
		return fmt.Errorf("failed to create indexes for profiles collection: %w", err)
	}
	return nil
}

// Create inserts a profile keyed by its mapped UUID. A duplicate key maps to
// domain.ErrProfileExists so the synchronizer can treat the race as a hit.
func (r *ProfileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	if profile.ID == "" {
		return errors.New("profile ID (mapped id) is required")
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now().UTC()
	}

	if _, err := r.profiles.InsertOne(ctx, profile); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrProfileExists
		}
		log.Error().Err(err).Str("mapped_id", profile.ID).Msg("Error creating profile in MongoDB")
		return err
	}
	return nil
}

// GetByID retrieves a profile by mapped UUID.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	var profile domain.Profile
	err := r.profiles.FindOne(ctx, bson.M{"_id": id}).Decode(&profile)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProfileNotFound
		}
		log.Error().Err(err).Str("mapped_id", id).Msg("Error getting profile from MongoDB")
		return nil, err
	}
	return &profile, nil
}

var _ domain.ProfileRepository = (*ProfileRepository)(nil)
