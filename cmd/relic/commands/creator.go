package commands

import (
	"github.com/spf13/cobra"

	"github.com/relic-io/relic/internal/tools"
)

var creatorCmd = &cobra.Command{
	Use:   "creator <resource-id> <resource-type>",
	Short: "Find who created a resource and how (ec2, rds, s3)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		return a.call(cmd.Context(), "who_created_resource", tools.CreatorParams{
			ResourceID:   args[0],
			ResourceType: args[1],
		})
	},
}

func init() {
	rootCmd.AddCommand(creatorCmd)
}
