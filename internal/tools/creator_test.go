package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relic-io/relic/internal/audit"
	relicerrors "github.com/relic-io/relic/internal/errors"
	"github.com/relic-io/relic/pkg/types"
)

type stubQuerier struct {
	events []audit.Event
	err    error
}

func (s *stubQuerier) Query(ctx context.Context, eventNames []string, resourceID string, since time.Time) ([]audit.Event, error) {
	return s.events, s.err
}

type stubDescriber struct {
	details map[string]interface{}
	err     error
}

func (s *stubDescriber) Describe(ctx context.Context, resourceID, resourceType string) (map[string]interface{}, error) {
	return s.details, s.err
}

func TestCreatorToolFound(t *testing.T) {
	created := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	classifier := audit.NewClassifier(&stubQuerier{events: []audit.Event{
		{
			EventName: "RunInstances", EventTime: created, EventID: "ev-1",
			Username: "alice", UserAgent: "Terraform/1.5.0",
			ResponseElements: `{"instanceId":"i-0123"}`,
		},
	}}, 0)
	describer := &stubDescriber{details: map[string]interface{}{"instance_type": "t3.micro"}}

	tool := NewCreatorTool(classifier, describer)
	result, err := tool.Handler(context.Background(), json.RawMessage(`{"resource_id":"i-0123","resource_type":"ec2"}`))
	require.NoError(t, err)

	creator := result.(*CreatorResult)
	require.NotNil(t, creator.Creation)
	assert.Equal(t, "alice", creator.Creation.Identity)
	assert.Equal(t, types.MethodInfrastructureAsCode, creator.Creation.Method)
	assert.Equal(t, created, creator.Creation.Timestamp)
	assert.Empty(t, creator.Note)
	assert.Equal(t, "t3.micro", creator.Details["instance_type"])
}

func TestCreatorToolNoEvent(t *testing.T) {
	classifier := audit.NewClassifier(&stubQuerier{}, 0)

	tool := NewCreatorTool(classifier, nil)
	result, err := tool.Handler(context.Background(), json.RawMessage(`{"resource_id":"i-0123","resource_type":"ec2"}`))
	require.NoError(t, err)

	creator := result.(*CreatorResult)
	assert.Nil(t, creator.Creation)
	assert.Contains(t, creator.Note, "retention window")
}

func TestCreatorToolDescribeFailureIsNote(t *testing.T) {
	classifier := audit.NewClassifier(&stubQuerier{events: []audit.Event{
		{EventName: "RunInstances", EventTime: time.Now(), Username: "alice"},
	}}, 0)
	describer := &stubDescriber{err: errors.New("instance gone")}

	tool := NewCreatorTool(classifier, describer)
	result, err := tool.Handler(context.Background(), json.RawMessage(`{"resource_id":"i-0123","resource_type":"ec2"}`))
	require.NoError(t, err)

	creator := result.(*CreatorResult)
	require.NotNil(t, creator.Creation)
	assert.Contains(t, creator.Note, "live resource details unavailable")
	assert.Nil(t, creator.Details)
}

func TestCreatorToolUnknownType(t *testing.T) {
	tool := NewCreatorTool(audit.NewClassifier(&stubQuerier{}, 0), nil)

	_, err := tool.Handler(context.Background(), json.RawMessage(`{"resource_id":"x","resource_type":"lambda"}`))
	require.Error(t, err)
	assert.Equal(t, relicerrors.KindValidation, relicerrors.KindOf(err))
}
