package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/relic-io/relic/internal/correlate"
	"github.com/relic-io/relic/internal/terraform"
	"github.com/relic-io/relic/pkg/types"
)

// OwnsParams are the named parameters of the ownership lookup.
type OwnsParams struct {
	ResourceID    string `json:"resource_id"`
	DiscoveryMode string `json:"discovery_mode,omitempty"`
	StatePath     string `json:"state_path,omitempty"`
}

// OwnsResult reports whether and where state declares the resource.
type OwnsResult struct {
	ResourceID       string                 `json:"resource_id"`
	Service          string                 `json:"service"`
	TerraformManaged bool                   `json:"terraform_managed"`
	Conflict         bool                   `json:"conflict"`
	PrimaryMatch     *types.OwnershipMatch  `json:"primary_match,omitempty"`
	Conflicts        []types.OwnershipMatch `json:"conflicts,omitempty"`
	RecommendedSteps []string               `json:"recommended_action,omitempty"`
}

// NewOwnsTool builds the what-owns-this-resource operation.
func NewOwnsTool(correlator *correlate.Correlator, defaultMode terraform.Mode, defaultPath string) Tool {
	return Tool{
		Name:        "what_terraform_owns_resource",
		Description: "Check whether an AWS resource is declared in any discovered Terraform state and surface cross-state conflicts",
		Handler: func(ctx context.Context, params json.RawMessage) (interface{}, error) {
			var p OwnsParams
			if err := decodeParams(params, &p); err != nil {
				return nil, err
			}

			identifier, err := correlate.ParseIdentifier(p.ResourceID)
			if err != nil {
				return nil, err
			}

			mode := defaultMode
			if p.DiscoveryMode != "" {
				mode = terraform.Mode(p.DiscoveryMode)
			}
			path := defaultPath
			if p.StatePath != "" {
				path = p.StatePath
			}

			verdict, err := correlator.Resolve(ctx, identifier.Original, mode, path)
			if err != nil {
				return nil, err
			}

			result := &OwnsResult{
				ResourceID:       identifier.ResourceID,
				Service:          identifier.Service,
				TerraformManaged: verdict.Managed,
				Conflict:         verdict.Conflicted(),
				PrimaryMatch:     verdict.Primary,
				Conflicts:        verdict.Conflicts,
			}
			if verdict.Conflicted() {
				result.RecommendedSteps = conflictResolutionSteps(verdict)
			}
			return result, nil
		},
	}
}

// conflictResolutionSteps spells out the manual resolution workflow; the
// correlator itself never auto-resolves a conflict.
func conflictResolutionSteps(verdict *types.OwnershipVerdict) []string {
	sources := []string{verdict.Primary.Source}
	for _, c := range verdict.Conflicts {
		sources = append(sources, c.Source)
	}
	steps := []string{
		fmt.Sprintf("resource is claimed by %d state documents: decide which one should own it", len(sources)),
		"run 'terraform state rm' for the resource in every other state",
		"verify with 'terraform plan' in the owning workspace",
	}
	for _, s := range sources {
		steps = append(steps, "claimed by: "+s)
	}
	return steps
}
