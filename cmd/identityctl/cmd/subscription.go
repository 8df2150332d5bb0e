package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/prepstack/identity-core/domain"
	"github.com/prepstack/identity-core/mongodb"
)

var (
	grantTier   string
	grantMonths int
)

var subscriptionCmd = &cobra.Command{
	Use:   "subscription",
	Short: "Inspect and grant subscription records",
}

var subscriptionStatusCmd = &cobra.Command{
	Use:   "status <profile-id>",
	Short: "Show the latest subscription and entitlement for a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMongo(cmd.Context(), func(ctx context.Context, db *mongo.Database) error {
			subs, err := mongodb.NewSubscriptionRepository(ctx, db)
			if err != nil {
				return fmt.Errorf("initializing subscription repository: %w", err)
			}
			sub, err := subs.LatestByProfileID(ctx, args[0])
			if errors.Is(err, domain.ErrSubscriptionNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), "no subscription record; not entitled")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tier=%s status=%s period_end=%s entitled=%t\n",
				sub.Tier, sub.Status, sub.PeriodEnd.UTC().Format(time.RFC3339), sub.Entitles(time.Now()))
			return nil
		})
	},
}

// The write path for subscriptions belongs to billing; this command is the
// operator backdoor and writes the collection directly.
var subscriptionGrantCmd = &cobra.Command{
	Use:   "grant <profile-id>",
	Short: "Insert a subscription record for a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tier := domain.PlanTier(grantTier)
		if tier != domain.PlanPro && tier != domain.PlanEnterprise && tier != domain.PlanFree {
			return fmt.Errorf("invalid tier %q (want free, pro or enterprise)", grantTier)
		}
		if grantMonths <= 0 {
			return fmt.Errorf("invalid duration %d months", grantMonths)
		}
		return withMongo(cmd.Context(), func(ctx context.Context, db *mongo.Database) error {
			now := time.Now()
			sub := &domain.Subscription{
				ID:          uuid.NewString(),
				ProfileID:   args[0],
				Tier:        tier,
				Status:      domain.SubscriptionActive,
				PeriodStart: now,
				PeriodEnd:   now.AddDate(0, grantMonths, 0),
				CreatedAt:   now,
			}
			if _, err := db.Collection(mongodb.SubscriptionsCollection).InsertOne(ctx, sub); err != nil {
				return fmt.Errorf("inserting subscription: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "granted %s until %s (id=%s)\n",
				sub.Tier, sub.PeriodEnd.UTC().Format(time.RFC3339), sub.ID)
			return nil
		})
	},
}

func init() {
	subscriptionGrantCmd.Flags().StringVar(&grantTier, "tier", string(domain.PlanPro), "plan tier (free, pro or enterprise)")
	subscriptionGrantCmd.Flags().IntVar(&grantMonths, "months", 1, "subscription length in months")

	subscriptionCmd.AddCommand(subscriptionStatusCmd)
	subscriptionCmd.AddCommand(subscriptionGrantCmd)
	rootCmd.AddCommand(subscriptionCmd)
}
