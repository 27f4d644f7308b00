package aws

import (
	"context"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"

	relicerrors "github.com/relic-io/relic/internal/errors"
)

// CostExplorerAPI is the slice of the Cost Explorer client we use.
type CostExplorerAPI interface {
	GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error)
}

// CostEstimator implements the cost collaborator on Cost Explorer.
// Cost Explorer is a global service; resource-level data must be enabled on
// the account, so absent data is expected, not exceptional.
type CostEstimator struct {
	client CostExplorerAPI
	policy relicerrors.RetryPolicy
}

// NewCostEstimator creates a cost estimator.
func NewCostEstimator(client CostExplorerAPI) *CostEstimator {
	return &CostEstimator{client: client, policy: relicerrors.DefaultRetryPolicy()}
}

// EstimateMonthlyCosts returns the unblended cost over the trailing 30 days
// per resource id. IDs with no cost data are absent from the result.
func (e *CostEstimator) EstimateMonthlyCosts(ctx context.Context, resourceIDs []string) (map[string]float64, error) {
	if len(resourceIDs) == 0 {
		return map[string]float64{}, nil
	}

	end := time.Now()
	start := end.AddDate(0, 0, -30)

	input := &costexplorer.GetCostAndUsageInput{
		TimePeriod: &cetypes.DateInterval{
			Start: aws.String(start.Format("2006-01-02")),
			End:   aws.String(end.Format("2006-01-02")),
		},
		Granularity: cetypes.GranularityMonthly,
		Metrics:     []string{"UnblendedCost"},
		GroupBy: []cetypes.GroupDefinition{{
			Type: cetypes.GroupDefinitionTypeDimension,
			Key:  aws.String("RESOURCE_ID"),
		}},
		Filter: &cetypes.Expression{
			Dimensions: &cetypes.DimensionValues{
				Key:    cetypes.DimensionResourceId,
				Values: resourceIDs,
			},
		},
	}

	costs := make(map[string]float64)
	for {
		var out *costexplorer.GetCostAndUsageOutput
		err := relicerrors.Retry(ctx, e.policy, func() error {
			var callErr error
			out, callErr = e.client.GetCostAndUsage(ctx, input)
			return callErr
		})
		if err != nil {
			return nil, err
		}

		for _, result := range out.ResultsByTime {
			for _, group := range result.Groups {
				if len(group.Keys) == 0 {
					continue
				}
				metric, ok := group.Metrics["UnblendedCost"]
				if !ok || metric.Amount == nil {
					continue
				}
				amount, err := strconv.ParseFloat(aws.ToString(metric.Amount), 64)
				if err != nil {
					continue
				}
				costs[group.Keys[0]] += amount
			}
		}

		if out.NextPageToken == nil {
			return costs, nil
		}
		input.NextPageToken = out.NextPageToken
	}
}
