package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relic-io/relic/internal/correlate"
	relicerrors "github.com/relic-io/relic/internal/errors"
	"github.com/relic-io/relic/internal/logger"
	"github.com/relic-io/relic/internal/terraform"
)

type stubStore struct {
	docs map[string][]byte
}

func (s *stubStore) List(ctx context.Context) ([]terraform.StateSource, error) {
	var sources []terraform.StateSource
	for _, id := range []string{"states/prod/terraform.tfstate", "states/staging/terraform.tfstate"} {
		if _, ok := s.docs[id]; ok {
			sources = append(sources, terraform.StateSource{Identity: id})
		}
	}
	return sources, nil
}

func (s *stubStore) Fetch(ctx context.Context, src terraform.StateSource) ([]byte, error) {
	return s.docs[src.Identity], nil
}

func stateDoc(resName, id string) []byte {
	return []byte(`{
		"version": 4,
		"resources": [
			{
				"mode": "managed", "type": "aws_instance", "name": "` + resName + `",
				"instances": [{"attributes": {"id": "` + id + `"}}]
			}
		]
	}`)
}

func newOwnsCorrelator(docs map[string][]byte) *correlate.Correlator {
	log := logger.NewNop()
	d := terraform.NewDiscovery(log, terraform.WithLocalStore(&stubStore{docs: docs}))
	return correlate.NewCorrelator(d, log)
}

func TestOwnsToolManaged(t *testing.T) {
	tool := NewOwnsTool(newOwnsCorrelator(map[string][]byte{
		"states/prod/terraform.tfstate": stateDoc("web", "i-0123"),
	}), terraform.ModeLocal, "")

	result, err := tool.Handler(context.Background(), json.RawMessage(`{"resource_id":"i-0123"}`))
	require.NoError(t, err)

	owns := result.(*OwnsResult)
	assert.True(t, owns.TerraformManaged)
	assert.False(t, owns.Conflict)
	assert.Equal(t, "ec2", owns.Service)
	require.NotNil(t, owns.PrimaryMatch)
	assert.Equal(t, "aws_instance.web", owns.PrimaryMatch.Address)
	assert.Equal(t, "prod", owns.PrimaryMatch.Workspace)
	assert.Empty(t, owns.RecommendedSteps)
}

func TestOwnsToolUnmanaged(t *testing.T) {
	tool := NewOwnsTool(newOwnsCorrelator(map[string][]byte{
		"states/prod/terraform.tfstate": stateDoc("web", "i-0123"),
	}), terraform.ModeLocal, "")

	result, err := tool.Handler(context.Background(), json.RawMessage(`{"resource_id":"i-9999999999"}`))
	require.NoError(t, err)

	owns := result.(*OwnsResult)
	assert.False(t, owns.TerraformManaged)
	assert.Nil(t, owns.PrimaryMatch)
}

func TestOwnsToolConflict(t *testing.T) {
	tool := NewOwnsTool(newOwnsCorrelator(map[string][]byte{
		"states/prod/terraform.tfstate":    stateDoc("web", "i-0123"),
		"states/staging/terraform.tfstate": stateDoc("web_old", "i-0123"),
	}), terraform.ModeLocal, "")

	result, err := tool.Handler(context.Background(), json.RawMessage(`{"resource_id":"i-0123"}`))
	require.NoError(t, err)

	owns := result.(*OwnsResult)
	assert.True(t, owns.TerraformManaged)
	assert.True(t, owns.Conflict)
	require.Len(t, owns.Conflicts, 1)
	assert.Equal(t, "aws_instance.web_old", owns.Conflicts[0].Address)

	require.NotEmpty(t, owns.RecommendedSteps)
	assert.Contains(t, owns.RecommendedSteps[0], "claimed by 2 state documents")
	assert.Contains(t, owns.RecommendedSteps, "claimed by: states/prod/terraform.tfstate")
	assert.Contains(t, owns.RecommendedSteps, "claimed by: states/staging/terraform.tfstate")
}

func TestOwnsToolInvalidIdentifier(t *testing.T) {
	tool := NewOwnsTool(newOwnsCorrelator(nil), terraform.ModeLocal, "")

	_, err := tool.Handler(context.Background(), json.RawMessage(`{"resource_id":"!!bad!!"}`))
	require.Error(t, err)
	assert.Equal(t, relicerrors.KindValidation, relicerrors.KindOf(err))
}
