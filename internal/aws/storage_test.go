package aws

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	relicerrors "github.com/relic-io/relic/internal/errors"
	"github.com/relic-io/relic/internal/terraform"
)

type fakeS3 struct {
	pages   []*s3.ListObjectsV2Output
	objects map[string][]byte
	calls   int
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	page := f.pages[f.calls]
	f.calls++
	return page, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func TestS3StateStoreList(t *testing.T) {
	client := &fakeS3{
		pages: []*s3.ListObjectsV2Output{
			{
				Contents: []s3types.Object{
					{Key: aws.String("env/prod/terraform.tfstate"), ETag: aws.String(`"etag-1"`)},
					{Key: aws.String("env/prod/plan.json")},
				},
				NextContinuationToken: aws.String("page2"),
			},
			{
				Contents: []s3types.Object{
					{Key: aws.String("env/staging/terraform.tfstate"), ETag: aws.String(`"etag-2"`)},
				},
			},
		},
	}

	store := NewS3StateStore(client, "tf-states", "env/")
	sources, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, sources, 2, "non-tfstate keys filtered, pagination followed")

	assert.Equal(t, "s3://tf-states/env/prod/terraform.tfstate", sources[0].Identity)
	assert.Equal(t, `"etag-1"`, sources[0].ModMarker)
	assert.Equal(t, "s3://tf-states/env/staging/terraform.tfstate", sources[1].Identity)
	assert.Equal(t, 2, client.calls)
}

func TestS3StateStoreFetch(t *testing.T) {
	client := &fakeS3{
		objects: map[string][]byte{
			"env/prod/terraform.tfstate": []byte(`{"version": 4}`),
		},
	}

	store := NewS3StateStore(client, "tf-states", "env/")
	body, err := store.Fetch(context.Background(), terraform.StateSource{Identity: "s3://tf-states/env/prod/terraform.tfstate"})
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"version": 4}`), body)
}

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{"bucket and key", "s3://tf-states/env/prod/terraform.tfstate", "tf-states", "env/prod/terraform.tfstate", false},
		{"bare bucket defaults key", "s3://tf-states", "tf-states", "terraform.tfstate", false},
		{"trailing slash defaults key", "s3://tf-states/", "tf-states", "terraform.tfstate", false},
		{"not s3", "/local/terraform.tfstate", "", "", true},
		{"missing bucket", "s3:///key", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, key, err := ParseS3URI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, relicerrors.KindValidation, relicerrors.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}
