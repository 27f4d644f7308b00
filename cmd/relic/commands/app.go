package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/relic-io/relic/internal/audit"
	"github.com/relic-io/relic/internal/aws"
	"github.com/relic-io/relic/internal/correlate"
	"github.com/relic-io/relic/internal/logger"
	"github.com/relic-io/relic/internal/orphan"
	"github.com/relic-io/relic/internal/terraform"
	"github.com/relic-io/relic/internal/tools"
)

// app wires the collaborators behind the tool registry. Built once per
// command invocation.
type app struct {
	log      logger.Logger
	registry *tools.Registry
}

func newApp(ctx context.Context) (*app, error) {
	log := logger.NewLogrus(cfg.Logging.Level)

	clients, err := aws.NewClients(ctx, aws.ClientConfig{
		Region:  cfg.AWS.Region,
		Profile: cfg.AWS.Profile,
	})
	if err != nil {
		return nil, err
	}

	opts := []terraform.DiscoveryOption{
		terraform.WithLocalStore(terraform.NewFSStore(cfg.Discovery.LocalRoot)),
		terraform.WithCache(terraform.NewIDMapCache()),
		terraform.WithWorkers(cfg.Discovery.Workers),
	}
	if cfg.Discovery.RemoteBucket != "" {
		opts = append(opts, terraform.WithRemoteStore(
			aws.NewS3StateStore(clients.S3, cfg.Discovery.RemoteBucket, cfg.Discovery.RemotePrefix)))
	}
	discovery := terraform.NewDiscovery(log, opts...)
	correlator := correlate.NewCorrelator(discovery, log)

	classifier := audit.NewClassifier(
		aws.NewCloudTrailQuerier(clients.CloudTrail),
		time.Duration(cfg.Audit.LookbackDays)*24*time.Hour,
	)

	inventory := aws.NewInventory(clients, cfg.AWS.Region, log)
	scorer := orphan.NewScorer(
		correlator,
		inventory,
		aws.NewCostEstimator(clients.CostExplorer),
		aws.NewActivityProbe(clients.CloudWatch, clients.S3),
		log,
	)

	mode := terraform.Mode(cfg.Discovery.Mode)
	registry := tools.NewRegistry()
	registry.Register(tools.NewOwnsTool(correlator, mode, cfg.Discovery.StatePath))
	registry.Register(tools.NewCreatorTool(classifier, inventory))
	registry.Register(tools.NewOrphansTool(scorer, cfg.AWS.Region, mode, cfg.Discovery.StatePath))

	return &app{log: log, registry: registry}, nil
}

// call invokes one tool and prints its result or structured error.
func (a *app) call(ctx context.Context, name string, params interface{}) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}

	result, toolErr := a.registry.Call(ctx, name, raw)
	if toolErr != nil {
		out, _ := json.MarshalIndent(toolErr, "", "  ")
		fmt.Println(string(out))
		return fmt.Errorf("%s: %s", toolErr.Kind, toolErr.Message)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
