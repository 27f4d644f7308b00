package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	relicerrors "github.com/relic-io/relic/internal/errors"
)

// ClientConfig is threaded explicitly into every collaborator constructor;
// there is no ambient profile or region state.
type ClientConfig struct {
	Region     string
	Profile    string
	MaxRetries int
	Timeout    time.Duration
}

// Clients holds the AWS service clients the collaborators are built on.
type Clients struct {
	EC2          *ec2.Client
	RDS          *rds.Client
	S3           *s3.Client
	CloudTrail   *cloudtrail.Client
	CostExplorer *costexplorer.Client
	CloudWatch   *cloudwatch.Client
	STS          *sts.Client
	Config       aws.Config
}

// NewClients builds the service clients and validates that credentials
// actually resolve before any collaborator is used.
func NewClients(ctx context.Context, clientConfig ClientConfig) (*Clients, error) {
	if clientConfig.MaxRetries == 0 {
		clientConfig.MaxRetries = 3
	}
	if clientConfig.Timeout == 0 {
		clientConfig.Timeout = 30 * time.Second
	}

	var opts []func(*config.LoadOptions) error
	if clientConfig.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(clientConfig.Profile))
	}
	if clientConfig.Region != "" {
		opts = append(opts, config.WithRegion(clientConfig.Region))
	}
	opts = append(opts, config.WithRetryer(func() aws.Retryer {
		return retry.AddWithMaxAttempts(retry.NewStandard(), clientConfig.MaxRetries)
	}))

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, relicerrors.Wrap(relicerrors.KindPermission, "failed to load AWS config", err)
	}

	clients := &Clients{
		EC2:          ec2.NewFromConfig(cfg),
		RDS:          rds.NewFromConfig(cfg),
		S3:           s3.NewFromConfig(cfg),
		CloudTrail:   cloudtrail.NewFromConfig(cfg),
		CostExplorer: costexplorer.NewFromConfig(cfg),
		CloudWatch:   cloudwatch.NewFromConfig(cfg),
		STS:          sts.NewFromConfig(cfg),
		Config:       cfg,
	}

	if err := clients.validateCredentials(ctx, clientConfig.Timeout); err != nil {
		return nil, err
	}
	return clients, nil
}

// validateCredentials fails fast with a permission error when the resolved
// credentials cannot call STS.
func (c *Clients) validateCredentials(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := c.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{}); err != nil {
		return relicerrors.Wrap(relicerrors.KindPermission,
			fmt.Sprintf("AWS credentials invalid for region %s", c.Config.Region), err)
	}
	return nil
}
