package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/prepstack/identity-core/domain"
	"github.com/prepstack/identity-core/internal/federation/legacy"
	"github.com/prepstack/identity-core/internal/idmap"
	"github.com/prepstack/identity-core/mongodb"
)

var (
	registerName     string
	registerEmail    string
	registerPassword string
	registerRole     string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage legacy credential accounts",
}

var userRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a legacy credential account",
	RunE: func(cmd *cobra.Command, args []string) error {
		role := domain.Role(registerRole)
		if role != domain.RoleStudent && role != domain.RoleAdmin {
			return fmt.Errorf("invalid role %q (want student or admin)", registerRole)
		}
		return withMongo(cmd.Context(), func(ctx context.Context, db *mongo.Database) error {
			creds, err := mongodb.NewCredentialRepository(ctx, db)
			if err != nil {
				return fmt.Errorf("initializing credential repository: %w", err)
			}
			provider := legacy.NewProvider(creds, nil, appLogger, 15*time.Second)
			if err := provider.Register(ctx, registerName, registerEmail, registerPassword, role); err != nil {
				return err
			}
			snap := provider.Snapshot()
			mapped := idmap.MustMap(snap.User.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s (id=%s mapped=%s role=%s)\n",
				snap.User.Email, snap.User.ID, mapped, snap.User.Role)
			return nil
		})
	},
}

func init() {
	userRegisterCmd.Flags().StringVar(&registerName, "name", "", "display name")
	userRegisterCmd.Flags().StringVar(&registerEmail, "email", "", "account email (required)")
	userRegisterCmd.Flags().StringVar(&registerPassword, "password", "", "account password (required)")
	userRegisterCmd.Flags().StringVar(&registerRole, "role", string(domain.RoleStudent), "account role (student or admin)")
	_ = userRegisterCmd.MarkFlagRequired("email")
	_ = userRegisterCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userRegisterCmd)
	rootCmd.AddCommand(userCmd)
}
