package aws

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	cttypes "github.com/aws/aws-sdk-go-v2/service/cloudtrail/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCloudTrail struct {
	pages []*cloudtrail.LookupEventsOutput
	calls int
	got   []*cloudtrail.LookupEventsInput
}

func (f *fakeCloudTrail) LookupEvents(ctx context.Context, params *cloudtrail.LookupEventsInput, optFns ...func(*cloudtrail.Options)) (*cloudtrail.LookupEventsOutput, error) {
	f.got = append(f.got, params)
	page := f.pages[f.calls]
	f.calls++
	return page, nil
}

func TestCloudTrailQuerierPagination(t *testing.T) {
	when := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	client := &fakeCloudTrail{
		pages: []*cloudtrail.LookupEventsOutput{
			{
				Events: []cttypes.Event{
					{EventName: aws.String("RunInstances"), EventId: aws.String("ev-1"), EventTime: aws.Time(when)},
				},
				NextToken: aws.String("more"),
			},
			{
				Events: []cttypes.Event{
					{EventName: aws.String("RunInstances"), EventId: aws.String("ev-2"), EventTime: aws.Time(when.Add(time.Hour))},
				},
			},
		},
	}

	q := NewCloudTrailQuerier(client)
	events, err := q.Query(context.Background(), []string{"RunInstances"}, "i-0123", when.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "ev-1", events[0].EventID)
	assert.Equal(t, "ev-2", events[1].EventID)

	require.Len(t, client.got, 2)
	attrs := client.got[0].LookupAttributes
	require.Len(t, attrs, 1)
	assert.Equal(t, cttypes.LookupAttributeKeyResourceName, attrs[0].AttributeKey)
	assert.Equal(t, "i-0123", aws.ToString(attrs[0].AttributeValue))
	assert.Equal(t, "more", aws.ToString(client.got[1].NextToken))
}

func TestConvertEvent(t *testing.T) {
	when := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	payload := `{
		"userAgent": "Terraform/1.5.0",
		"sourceIPAddress": "203.0.113.10",
		"responseElements": {"instancesSet": {"items": [{"instanceId": "i-0123"}]}},
		"userIdentity": {"arn": "arn:aws:iam::123456789012:user/alice", "userName": "alice"}
	}`

	got := convertEvent(cttypes.Event{
		EventName:       aws.String("RunInstances"),
		EventId:         aws.String("ev-1"),
		EventTime:       aws.Time(when),
		Username:        aws.String("alice"),
		CloudTrailEvent: aws.String(payload),
	})

	assert.Equal(t, "RunInstances", got.EventName)
	assert.Equal(t, "ev-1", got.EventID)
	assert.Equal(t, when, got.EventTime)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "Terraform/1.5.0", got.UserAgent)
	assert.Equal(t, "203.0.113.10", got.SourceIP)
	assert.Contains(t, got.ResponseElements, "i-0123")
}

func TestConvertEventUsernameFallbacks(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{
			name:    "userName",
			payload: `{"userIdentity": {"arn": "arn:aws:iam::1:user/alice", "userName": "alice"}}`,
			want:    "alice",
		},
		{
			name:    "assumed role session issuer",
			payload: `{"userIdentity": {"arn": "arn:aws:sts::1:assumed-role/deploy/x", "sessionContext": {"sessionIssuer": {"userName": "deploy"}}}}`,
			want:    "deploy",
		},
		{
			name:    "arn as last resort",
			payload: `{"userIdentity": {"arn": "arn:aws:iam::1:root"}}`,
			want:    "arn:aws:iam::1:root",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := convertEvent(cttypes.Event{CloudTrailEvent: aws.String(tt.payload)})
			assert.Equal(t, tt.want, got.Username)
		})
	}
}

func TestConvertEventMalformedPayload(t *testing.T) {
	got := convertEvent(cttypes.Event{
		EventName:       aws.String("RunInstances"),
		Username:        aws.String("alice"),
		CloudTrailEvent: aws.String(`{not json`),
	})
	assert.Equal(t, "RunInstances", got.EventName)
	assert.Equal(t, "alice", got.Username)
	assert.Empty(t, got.UserAgent)
}
