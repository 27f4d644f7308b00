package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/relic-io/relic/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config

	flagRegion  string
	flagProfile string
	flagMode    string
	flagState   string
	flagJSON    bool
)

var rootCmd = &cobra.Command{
	Use:   "relic",
	Short: "Infrastructure archaeology for AWS",
	Long: `RELIC digs through Terraform state and CloudTrail history to answer
three questions about any AWS resource:

  relic owns <id>            which Terraform state declares it, and whether
                             multiple states fight over it
  relic creator <id> <type>  who created it, when, and how
  relic orphans              what is running that no state declares, ranked
                             by monthly cost with removal confidence`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.relic/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagRegion, "region", "", "AWS region")
	rootCmd.PersistentFlags().StringVar(&flagProfile, "profile", "", "AWS shared config profile")
	rootCmd.PersistentFlags().StringVar(&flagMode, "mode", "", "state discovery mode (explicit, local, remote, hybrid)")
	rootCmd.PersistentFlags().StringVar(&flagState, "state", "", "explicit state file path")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit raw JSON results")
}

func initConfig() error {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if flagRegion != "" {
		loaded.AWS.Region = flagRegion
	}
	if flagProfile != "" {
		loaded.AWS.Profile = flagProfile
	}
	if flagMode != "" {
		loaded.Discovery.Mode = flagMode
	}
	if flagState != "" {
		loaded.Discovery.StatePath = flagState
		if flagMode == "" {
			loaded.Discovery.Mode = "explicit"
		}
	}
	cfg = loaded
	return nil
}
