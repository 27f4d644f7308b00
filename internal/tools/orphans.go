package tools

import (
	"context"
	"encoding/json"

	"github.com/relic-io/relic/internal/orphan"
	"github.com/relic-io/relic/internal/terraform"
)

// OrphansParams are the named parameters of the orphan report.
type OrphansParams struct {
	ResourceTypes []string `json:"resource_types,omitempty"`
	DiscoveryMode string   `json:"discovery_mode,omitempty"`
	StatePath     string   `json:"state_path,omitempty"`
	FailFast      bool     `json:"fail_fast,omitempty"`
}

// NewOrphansTool builds the find-orphaned-resources operation.
func NewOrphansTool(scorer *orphan.Scorer, region string, defaultMode terraform.Mode, defaultPath string) Tool {
	return Tool{
		Name:        "find_orphaned_resources",
		Description: "List live resources not declared in any discovered Terraform state, ranked by monthly cost with removal confidence",
		Handler: func(ctx context.Context, params json.RawMessage) (interface{}, error) {
			var p OrphansParams
			if err := decodeParams(params, &p); err != nil {
				return nil, err
			}

			opts := orphan.Options{
				Mode:          defaultMode,
				ExplicitPath:  defaultPath,
				ResourceTypes: p.ResourceTypes,
				Region:        region,
				FailFast:      p.FailFast,
			}
			if p.DiscoveryMode != "" {
				opts.Mode = terraform.Mode(p.DiscoveryMode)
			}
			if p.StatePath != "" {
				opts.ExplicitPath = p.StatePath
			}

			return scorer.Score(ctx, opts)
		},
	}
}
