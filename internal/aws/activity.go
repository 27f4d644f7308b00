package aws

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	relicerrors "github.com/relic-io/relic/internal/errors"
	"github.com/relic-io/relic/internal/orphan"
	"github.com/relic-io/relic/pkg/types"
)

// activityWindow is what "recent" means for the confidence ladder.
const activityWindow = 7 * 24 * time.Hour

// CloudWatchAPI is the slice of the CloudWatch client the probe uses.
type CloudWatchAPI interface {
	GetMetricStatistics(ctx context.Context, params *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error)
}

// S3VersioningAPI is the slice of the S3 client the probe uses.
type S3VersioningAPI interface {
	GetBucketVersioning(ctx context.Context, params *s3.GetBucketVersioningInput, optFns ...func(*s3.Options)) (*s3.GetBucketVersioningOutput, error)
}

// ActivityProbe implements the activity-signal collaborator: CloudWatch
// metric datapoints for EC2 and RDS, bucket versioning for S3.
type ActivityProbe struct {
	cloudwatchClient CloudWatchAPI
	s3Client         S3VersioningAPI
	policy           relicerrors.RetryPolicy
}

// NewActivityProbe creates a probe over the given clients.
func NewActivityProbe(cw CloudWatchAPI, s3c S3VersioningAPI) *ActivityProbe {
	return &ActivityProbe{
		cloudwatchClient: cw,
		s3Client:         s3c,
		policy:           relicerrors.DefaultRetryPolicy(),
	}
}

// RecentActivity reports whether a resource shows use within the window.
func (p *ActivityProbe) RecentActivity(ctx context.Context, res types.Resource) (orphan.ActivitySignal, error) {
	switch res.Type {
	case "ec2":
		return p.metricActivity(ctx, "AWS/EC2", "CPUUtilization", "InstanceId", res.ID)
	case "rds":
		return p.metricActivity(ctx, "AWS/RDS", "DatabaseConnections", "DBInstanceIdentifier", res.ID)
	case "s3":
		return p.bucketActivity(ctx, res.ID)
	default:
		return orphan.ActivityUnknown, nil
	}
}

func (p *ActivityProbe) metricActivity(ctx context.Context, namespace, metric, dimension, value string) (orphan.ActivitySignal, error) {
	end := time.Now()
	start := end.Add(-activityWindow)

	var out *cloudwatch.GetMetricStatisticsOutput
	err := relicerrors.Retry(ctx, p.policy, func() error {
		var callErr error
		out, callErr = p.cloudwatchClient.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
			Namespace:  aws.String(namespace),
			MetricName: aws.String(metric),
			Dimensions: []cwtypes.Dimension{{Name: aws.String(dimension), Value: aws.String(value)}},
			StartTime:  aws.Time(start),
			EndTime:    aws.Time(end),
			Period:     aws.Int32(86400),
			Statistics: []cwtypes.Statistic{cwtypes.StatisticMaximum},
		})
		return callErr
	})
	if err != nil {
		return orphan.ActivityUnknown, err
	}

	if len(out.Datapoints) > 0 {
		return orphan.ActivityRecent, nil
	}
	return orphan.ActivityNone, nil
}

// bucketActivity treats versioning as an in-use signal: versioned buckets
// are almost always deliberate.
func (p *ActivityProbe) bucketActivity(ctx context.Context, bucket string) (orphan.ActivitySignal, error) {
	var out *s3.GetBucketVersioningOutput
	err := relicerrors.Retry(ctx, p.policy, func() error {
		var callErr error
		out, callErr = p.s3Client.GetBucketVersioning(ctx, &s3.GetBucketVersioningInput{Bucket: aws.String(bucket)})
		return callErr
	})
	if err != nil {
		return orphan.ActivityUnknown, err
	}

	if out.Status == s3types.BucketVersioningStatusEnabled {
		return orphan.ActivityRecent, nil
	}
	return orphan.ActivityNone, nil
}
