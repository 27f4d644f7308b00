package commands

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/relic-io/relic/internal/orphan"
	"github.com/relic-io/relic/internal/tools"
	"github.com/relic-io/relic/pkg/types"
)

var (
	orphanTypes    []string
	orphanFailFast bool
)

var orphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "Find resources not declared in any Terraform state, ranked by cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}

		params := tools.OrphansParams{
			ResourceTypes: orphanTypes,
			FailFast:      orphanFailFast,
		}
		if flagJSON {
			return a.call(cmd.Context(), "find_orphaned_resources", params)
		}

		raw, err := json.Marshal(params)
		if err != nil {
			return err
		}
		result, toolErr := a.registry.Call(cmd.Context(), "find_orphaned_resources", raw)
		if toolErr != nil {
			return fmt.Errorf("%s: %s", toolErr.Kind, toolErr.Message)
		}
		printReport(result.(*orphan.Report))
		return nil
	},
}

func init() {
	orphansCmd.Flags().StringSliceVar(&orphanTypes, "types", nil, "resource types to scan (default ec2,rds,s3)")
	orphansCmd.Flags().BoolVar(&orphanFailFast, "fail-fast", false, "abort on the first collaborator error instead of producing a partial report")
	rootCmd.AddCommand(orphansCmd)
}

func printReport(report *orphan.Report) {
	bold := color.New(color.Bold)
	bold.Printf("Orphaned resources in %s: %d", report.Region, report.TotalOrphaned)
	fmt.Printf("  (states checked: %d, est. monthly cost: $%.2f)\n\n", report.StatesChecked, report.TotalMonthlyCost)

	for _, c := range report.Candidates {
		printCandidate(c)
	}
}

func printCandidate(c types.OrphanCandidate) {
	label := color.GreenString("high")
	switch c.Confidence {
	case types.ConfidenceMedium:
		label = color.YellowString("medium")
	case types.ConfidenceLow:
		label = color.RedString("low")
	}

	cost := "cost unknown"
	if c.MonthlyCost != nil {
		cost = fmt.Sprintf("$%.2f/month", *c.MonthlyCost)
	}

	fmt.Printf("  %-22s %-4s %s  confidence: %s\n", c.ResourceID, c.ResourceType, cost, label)
	for _, reason := range c.Reasons {
		fmt.Printf("      - %s\n", reason)
	}
}
