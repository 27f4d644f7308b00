package commands

import (
	"github.com/spf13/cobra"

	"github.com/relic-io/relic/internal/tools"
)

var ownsCmd = &cobra.Command{
	Use:   "owns <resource-id-or-arn>",
	Short: "Find which Terraform state owns a resource",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		return a.call(cmd.Context(), "what_terraform_owns_resource", tools.OwnsParams{
			ResourceID: args[0],
		})
	},
}

func init() {
	rootCmd.AddCommand(ownsCmd)
}
