package tools

import (
	"context"
	"encoding/json"

	"github.com/relic-io/relic/internal/audit"
	"github.com/relic-io/relic/pkg/types"
)

// Describer enriches a creator lookup with live resource details.
type Describer interface {
	Describe(ctx context.Context, resourceID, resourceType string) (map[string]interface{}, error)
}

// CreatorParams are the named parameters of the creator lookup.
type CreatorParams struct {
	ResourceID   string `json:"resource_id"`
	ResourceType string `json:"resource_type"`
}

// CreatorResult is the creator lookup answer.
type CreatorResult struct {
	ResourceID   string                 `json:"resource_id"`
	ResourceType string                 `json:"resource_type"`
	Creation     *types.CreationRecord  `json:"creation,omitempty"`
	Note         string                 `json:"note,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
}

// NewCreatorTool builds the who-created-this-resource operation.
func NewCreatorTool(classifier *audit.Classifier, describer Describer) Tool {
	return Tool{
		Name:        "who_created_resource",
		Description: "Find who created a cloud resource and how, from the audit event history",
		Handler: func(ctx context.Context, params json.RawMessage) (interface{}, error) {
			var p CreatorParams
			if err := decodeParams(params, &p); err != nil {
				return nil, err
			}

			record, err := classifier.FindCreationRecord(ctx, p.ResourceID, p.ResourceType)
			if err != nil {
				return nil, err
			}

			result := &CreatorResult{
				ResourceID:   p.ResourceID,
				ResourceType: p.ResourceType,
				Creation:     record,
			}
			if record == nil {
				result.Note = "no creation event found; the resource may predate the audit retention window"
			}

			// Enrichment is best-effort: a describe failure becomes a note.
			if describer != nil {
				details, err := describer.Describe(ctx, p.ResourceID, p.ResourceType)
				if err != nil {
					if result.Note != "" {
						result.Note += "; "
					}
					result.Note += "live resource details unavailable"
				} else {
					result.Details = details
				}
			}
			return result, nil
		},
	}
}
