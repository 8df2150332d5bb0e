package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/prepstack/identity-core/domain"
)

// SubscriptionRepository implements domain.SubscriptionRepository on
// MongoDB. The collection is written by checkout flows outside this core;
// this repository only reads.
type SubscriptionRepository struct {
	subscriptions *mongo.Collection
}

// NewSubscriptionRepository creates the repository and ensures its indexes.
func NewSubscriptionRepository(ctx context.Context, db *mongo.Database) (domain.SubscriptionRepository, error) {
	repo := &SubscriptionRepository{subscriptions: db.Collection(SubscriptionsCollection)}
	if err := repo.createIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to create subscription indexes")
	}
	return repo, nil
}

func (r *SubscriptionRepository) createIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{
			// Serves the latest-by-profile query directly.
			Keys:    bson.D{{Key: "profile_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetUnique(false),
		},
	}

	if _, err := r.subscriptions.Indexes().CreateMany(ctx, indexModels, options.CreateIndexes()); err != nil {
		return fmt.Errorf("failed to create indexes for subscriptions collection: %w", err)
	}
	return nil
}

// LatestByProfileID returns the most recently created subscription for the
// mapped identity.
func (r *SubscriptionRepository) LatestByProfileID(ctx context.Context, profileID string) (*domain.Subscription, error) {
	findOptions := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var sub domain.Subscription
	err := r.subscriptions.FindOne(ctx, bson.M{"profile_id": profileID}, findOptions).Decode(&sub)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrSubscriptionNotFound
		}
		log.Error().Err(err).Str("profile_id", profileID).Msg("Error getting latest subscription from MongoDB")
		return nil, err
	}
	return &sub, nil
}

// ListByProfileID returns all subscriptions for the mapped identity, most
// recent first.
func (r *SubscriptionRepository) ListByProfileID(ctx context.Context, profileID string) ([]*domain.Subscription, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.subscriptions.Find(ctx, bson.M{"profile_id": profileID}, findOptions)
	if err != nil {
		log.Error().Err(err).Str("profile_id", profileID).Msg("Error listing subscriptions from MongoDB")
		return nil, err
	}
	defer cursor.Close(ctx)

	var subs []*domain.Subscription
	if err = cursor.All(ctx, &subs); err != nil {
		log.Error().Err(err).Msg("Error decoding listed subscriptions from MongoDB")
		return nil, err
	}
	return subs, nil
}

var _ domain.SubscriptionRepository = (*SubscriptionRepository)(nil)
