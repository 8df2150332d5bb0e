package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/prepstack/identity-core/config"
	"github.com/prepstack/identity-core/log"
	"github.com/prepstack/identity-core/mongodb"
)

var (
	appLogger log.Logger
	appConfig *config.ServerConfig
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "identityctl",
	Short: "identityctl is an operator CLI for the identity core",
	Long:  `A command-line interface for inspecting identity mappings, managing legacy credential accounts, and checking subscription entitlements.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := zerolog.WarnLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		appLogger = log.NewZerologAdapter(level, true)

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		appConfig = cfg
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// withMongo connects to the configured database, runs fn, and disconnects.
func withMongo(ctx context.Context, fn func(ctx context.Context, db *mongo.Database) error) error {
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := mongodb.InitMongoDB(connectCtx, appConfig.MongoURI, appConfig.MongoDBName); err != nil {
		return fmt.Errorf("connecting to mongodb: %w", err)
	}
	defer func() {
		disconnectCtx, cancelDisconnect := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelDisconnect()
		if err := mongodb.Disconnect(disconnectCtx); err != nil {
			appLogger.Warn(disconnectCtx, "mongodb disconnect failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	return fn(ctx, mongodb.GetDB())
}
