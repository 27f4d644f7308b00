package aws

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relic-io/relic/internal/orphan"
	"github.com/relic-io/relic/pkg/types"
)

type fakeCloudWatch struct {
	datapoints []cwtypes.Datapoint
	err        error
	got        *cloudwatch.GetMetricStatisticsInput
}

func (f *fakeCloudWatch) GetMetricStatistics(ctx context.Context, params *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error) {
	f.got = params
	if f.err != nil {
		return nil, f.err
	}
	return &cloudwatch.GetMetricStatisticsOutput{Datapoints: f.datapoints}, nil
}

type fakeVersioning struct {
	status s3types.BucketVersioningStatus
	err    error
}

func (f *fakeVersioning) GetBucketVersioning(ctx context.Context, params *s3.GetBucketVersioningInput, optFns ...func(*s3.Options)) (*s3.GetBucketVersioningOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetBucketVersioningOutput{Status: f.status}, nil
}

func probeWith(cw CloudWatchAPI, s3c S3VersioningAPI) *ActivityProbe {
	p := NewActivityProbe(cw, s3c)
	p.policy.MaxAttempts = 1
	return p
}

func TestRecentActivityInstance(t *testing.T) {
	cw := &fakeCloudWatch{datapoints: []cwtypes.Datapoint{{Maximum: aws.Float64(42)}}}
	p := probeWith(cw, nil)

	signal, err := p.RecentActivity(context.Background(), types.Resource{ID: "i-0123", Type: "ec2"})
	require.NoError(t, err)
	assert.Equal(t, orphan.ActivityRecent, signal)

	assert.Equal(t, "AWS/EC2", aws.ToString(cw.got.Namespace))
	assert.Equal(t, "CPUUtilization", aws.ToString(cw.got.MetricName))
	require.Len(t, cw.got.Dimensions, 1)
	assert.Equal(t, "InstanceId", aws.ToString(cw.got.Dimensions[0].Name))
	assert.Equal(t, "i-0123", aws.ToString(cw.got.Dimensions[0].Value))
	assert.WithinDuration(t, time.Now().Add(-7*24*time.Hour), aws.ToTime(cw.got.StartTime), time.Minute)
}

func TestRecentActivityIdleInstance(t *testing.T) {
	p := probeWith(&fakeCloudWatch{}, nil)

	signal, err := p.RecentActivity(context.Background(), types.Resource{ID: "i-idle", Type: "ec2"})
	require.NoError(t, err)
	assert.Equal(t, orphan.ActivityNone, signal)
}

func TestRecentActivityDatabase(t *testing.T) {
	cw := &fakeCloudWatch{datapoints: []cwtypes.Datapoint{{Maximum: aws.Float64(3)}}}
	p := probeWith(cw, nil)

	signal, err := p.RecentActivity(context.Background(), types.Resource{ID: "prod-db", Type: "rds"})
	require.NoError(t, err)
	assert.Equal(t, orphan.ActivityRecent, signal)
	assert.Equal(t, "AWS/RDS", aws.ToString(cw.got.Namespace))
	assert.Equal(t, "DatabaseConnections", aws.ToString(cw.got.MetricName))
}

func TestRecentActivityBucket(t *testing.T) {
	tests := []struct {
		name   string
		status s3types.BucketVersioningStatus
		want   orphan.ActivitySignal
	}{
		{"versioned bucket counts as in use", s3types.BucketVersioningStatusEnabled, orphan.ActivityRecent},
		{"suspended versioning does not", s3types.BucketVersioningStatusSuspended, orphan.ActivityNone},
		{"unversioned bucket does not", "", orphan.ActivityNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := probeWith(nil, &fakeVersioning{status: tt.status})
			signal, err := p.RecentActivity(context.Background(), types.Resource{ID: "my-bucket", Type: "s3"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, signal)
		})
	}
}

func TestRecentActivityProbeFailure(t *testing.T) {
	p := probeWith(&fakeCloudWatch{err: errors.New("metric backend down")}, nil)

	signal, err := p.RecentActivity(context.Background(), types.Resource{ID: "i-0123", Type: "ec2"})
	require.Error(t, err)
	assert.Equal(t, orphan.ActivityUnknown, signal)
}

func TestRecentActivityUnknownType(t *testing.T) {
	p := probeWith(nil, nil)
	signal, err := p.RecentActivity(context.Background(), types.Resource{ID: "x", Type: "dynamodb"})
	require.NoError(t, err)
	assert.Equal(t, orphan.ActivityUnknown, signal)
}
