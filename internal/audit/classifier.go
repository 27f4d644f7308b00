package audit

import (
	"context"
	"sort"
	"strings"
	"time"

	relicerrors "github.com/relic-io/relic/internal/errors"
	"github.com/relic-io/relic/pkg/types"
)

// DefaultLookback bounds how far back creation events are searched.
const DefaultLookback = 90 * 24 * time.Hour

// Event is one raw audit event as returned by the query collaborator.
type Event struct {
	EventName        string
	EventTime        time.Time
	EventID          string
	Username         string
	UserAgent        string
	SourceIP         string
	ResponseElements string
}

// Querier is the audit-event collaborator. Implementations perform the
// network I/O; the classifier itself is pure once events are supplied.
type Querier interface {
	Query(ctx context.Context, eventNames []string, resourceID string, since time.Time) ([]Event, error)
}

// creationEvents maps a resource type to the audit event names that can
// create it.
var creationEvents = map[string][]string{
	"ec2": {"RunInstances"},
	"rds": {"CreateDBInstance", "CreateDBCluster"},
	"s3":  {"CreateBucket"},
}

// CreationEventNames returns the creation event names for a resource type.
func CreationEventNames(resourceType string) ([]string, bool) {
	names, ok := creationEvents[resourceType]
	return names, ok
}

// Classifier picks the authoritative creation event for a resource and
// classifies how it was created.
type Classifier struct {
	querier  Querier
	lookback time.Duration
}

// NewClassifier creates a classifier over the given audit collaborator.
// A zero lookback means the 90-day default.
func NewClassifier(querier Querier, lookback time.Duration) *Classifier {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return &Classifier{querier: querier, lookback: lookback}
}

// FindCreationRecord returns the creation record for a resource, or nil
// when no matching event exists in the lookback window.
//
// Tie-break when several events match: the earliest event whose response
// confirms creation of this exact identifier wins; retries and tag-only
// calls that merely reference the identifier are discarded. When no event
// carries a confirming response, the earliest name-matching event is taken.
func (c *Classifier) FindCreationRecord(ctx context.Context, resourceID, resourceType string) (*types.CreationRecord, error) {
	names, ok := CreationEventNames(resourceType)
	if !ok {
		return nil, relicerrors.Newf(relicerrors.KindValidation, "unknown resource type %q", resourceType)
	}

	since := time.Now().Add(-c.lookback)
	events, err := c.querier.Query(ctx, names, resourceID, since)
	if err != nil {
		return nil, relicerrors.Classify(err)
	}
	if len(events) == 0 {
		return nil, nil
	}

	nameSet := make(map[string]bool, len(names))
	for _, n := range names {
		nameSet[n] = true
	}

	var matching []Event
	for _, ev := range events {
		if nameSet[ev.EventName] {
			matching = append(matching, ev)
		}
	}
	if len(matching) == 0 {
		return nil, nil
	}

	sort.SliceStable(matching, func(i, j int) bool {
		return matching[i].EventTime.Before(matching[j].EventTime)
	})

	chosen := matching[0]
	for _, ev := range matching {
		if strings.Contains(ev.ResponseElements, resourceID) {
			chosen = ev
			break
		}
	}

	return &types.CreationRecord{
		Identity:   chosen.Username,
		Timestamp:  chosen.EventTime,
		Method:     ClassifyMethod(chosen.UserAgent),
		UserAgent:  chosen.UserAgent,
		SourceIP:   chosen.SourceIP,
		EventName:  chosen.EventName,
		RawEventID: chosen.EventID,
	}, nil
}

// methodSignatures is evaluated in order; first match wins.
var methodSignatures = []struct {
	substr string
	method types.CreationMethod
}{
	{"terraform", types.MethodInfrastructureAsCode},
	{"console", types.MethodConsole},
	{"aws-cli", types.MethodCommandLineTool},
	{"cloudformation", types.MethodTemplateEngine},
}

// ClassifyMethod classifies a creation user agent. Pure and total: the same
// input always yields the same variant, and unknown agents are Unknown,
// never a guess.
func ClassifyMethod(userAgent string) types.CreationMethod {
	ua := strings.ToLower(userAgent)
	for _, sig := range methodSignatures {
		if strings.Contains(ua, sig.substr) {
			return sig.method
		}
	}
	return types.MethodUnknown
}
