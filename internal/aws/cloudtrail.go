package aws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	cttypes "github.com/aws/aws-sdk-go-v2/service/cloudtrail/types"

	"github.com/relic-io/relic/internal/audit"
	relicerrors "github.com/relic-io/relic/internal/errors"
)

// CloudTrailAPI is the slice of the CloudTrail client the querier uses.
type CloudTrailAPI interface {
	LookupEvents(ctx context.Context, params *cloudtrail.LookupEventsInput, optFns ...func(*cloudtrail.Options)) (*cloudtrail.LookupEventsOutput, error)
}

// CloudTrailQuerier implements the audit-event collaborator on CloudTrail's
// LookupEvents API.
type CloudTrailQuerier struct {
	client  CloudTrailAPI
	policy  relicerrors.RetryPolicy
	maxPage int32
}

// NewCloudTrailQuerier creates a querier over the given client.
func NewCloudTrailQuerier(client CloudTrailAPI) *CloudTrailQuerier {
	return &CloudTrailQuerier{
		client:  client,
		policy:  relicerrors.DefaultRetryPolicy(),
		maxPage: 50,
	}
}

// rawTrailEvent is the part of the CloudTrail event JSON payload the
// classifier needs; LookupEvents only exposes user agent and response
// elements inside that raw document.
type rawTrailEvent struct {
	UserAgent        string          `json:"userAgent"`
	SourceIPAddress  string          `json:"sourceIPAddress"`
	ResponseElements json.RawMessage `json:"responseElements"`
	UserIdentity     struct {
		Arn            string `json:"arn"`
		UserName       string `json:"userName"`
		SessionContext struct {
			SessionIssuer struct {
				UserName string `json:"userName"`
			} `json:"sessionIssuer"`
		} `json:"sessionContext"`
	} `json:"userIdentity"`
}

// Query looks up events referencing the resource id since the given time.
// Throttled calls are retried with backoff; permission failures surface
// immediately.
func (q *CloudTrailQuerier) Query(ctx context.Context, eventNames []string, resourceID string, since time.Time) ([]audit.Event, error) {
	input := &cloudtrail.LookupEventsInput{
		LookupAttributes: []cttypes.LookupAttribute{{
			AttributeKey:   cttypes.LookupAttributeKeyResourceName,
			AttributeValue: aws.String(resourceID),
		}},
		StartTime:  aws.Time(since),
		EndTime:    aws.Time(time.Now()),
		MaxResults: aws.Int32(q.maxPage),
	}

	var events []audit.Event
	for {
		var out *cloudtrail.LookupEventsOutput
		err := relicerrors.Retry(ctx, q.policy, func() error {
			var callErr error
			out, callErr = q.client.LookupEvents(ctx, input)
			return callErr
		})
		if err != nil {
			return nil, err
		}

		for _, ev := range out.Events {
			events = append(events, convertEvent(ev))
		}

		if out.NextToken == nil {
			break
		}
		input.NextToken = out.NextToken
	}

	return events, nil
}

func convertEvent(ev cttypes.Event) audit.Event {
	converted := audit.Event{
		EventName: aws.ToString(ev.EventName),
		EventID:   aws.ToString(ev.EventId),
		Username:  aws.ToString(ev.Username),
	}
	if ev.EventTime != nil {
		converted.EventTime = *ev.EventTime
	}

	var raw rawTrailEvent
	if payload := aws.ToString(ev.CloudTrailEvent); payload != "" {
		if err := json.Unmarshal([]byte(payload), &raw); err == nil {
			converted.UserAgent = raw.UserAgent
			converted.SourceIP = raw.SourceIPAddress
			converted.ResponseElements = string(raw.ResponseElements)
			if converted.Username == "" {
				if raw.UserIdentity.UserName != "" {
					converted.Username = raw.UserIdentity.UserName
				} else if raw.UserIdentity.SessionContext.SessionIssuer.UserName != "" {
					converted.Username = raw.UserIdentity.SessionContext.SessionIssuer.UserName
				} else {
					converted.Username = raw.UserIdentity.Arn
				}
			}
		}
	}
	return converted
}
