package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prepstack/identity-core/internal/idmap"
)

var mapCmd = &cobra.Command{
	Use:   "map <external-id>",
	Short: "Print the internal identity for a provider user id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mapped, err := idmap.Map(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), mapped.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mapCmd)
}
