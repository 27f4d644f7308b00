package aws

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	relicerrors "github.com/relic-io/relic/internal/errors"
	"github.com/relic-io/relic/internal/terraform"
)

// S3API is the slice of the S3 client the state store uses.
type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3StateStore lists and fetches *.tfstate objects under a bucket prefix.
// It implements the storage-listing collaborator behind remote scans.
type S3StateStore struct {
	client S3API
	bucket string
	prefix string
	policy relicerrors.RetryPolicy
}

// NewS3StateStore creates a store over one bucket/prefix.
func NewS3StateStore(client S3API, bucket, prefix string) *S3StateStore {
	return &S3StateStore{
		client: client,
		bucket: bucket,
		prefix: prefix,
		policy: relicerrors.DefaultRetryPolicy(),
	}
}

// List enumerates tfstate objects under the prefix in key order. The ETag
// doubles as the modification marker for the IdMap cache.
func (s *S3StateStore) List(ctx context.Context) ([]terraform.StateSource, error) {
	var sources []terraform.StateSource
	var continuation *string

	for {
		var out *s3.ListObjectsV2Output
		err := relicerrors.Retry(ctx, s.policy, func() error {
			var callErr error
			out, callErr = s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
				Bucket:            aws.String(s.bucket),
				Prefix:            aws.String(s.prefix),
				ContinuationToken: continuation,
			})
			return callErr
		})
		if err != nil {
			return nil, err
		}

		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, ".tfstate") {
				continue
			}
			sources = append(sources, terraform.StateSource{
				Identity:  fmt.Sprintf("s3://%s/%s", s.bucket, key),
				ModMarker: aws.ToString(obj.ETag),
			})
		}

		if out.NextContinuationToken == nil {
			break
		}
		continuation = out.NextContinuationToken
	}

	return sources, nil
}

// Fetch downloads one state object.
func (s *S3StateStore) Fetch(ctx context.Context, src terraform.StateSource) ([]byte, error) {
	_, key, err := ParseS3URI(src.Identity)
	if err != nil {
		return nil, err
	}

	var body []byte
	err = relicerrors.Retry(ctx, s.policy, func() error {
		out, callErr := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if callErr != nil {
			return callErr
		}
		defer out.Body.Close()
		body, callErr = io.ReadAll(out.Body)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// ParseS3URI splits s3://bucket/key. A bare bucket defaults to the
// conventional terraform.tfstate key.
func ParseS3URI(uri string) (bucket, key string, err error) {
	if !strings.HasPrefix(uri, "s3://") {
		return "", "", relicerrors.Newf(relicerrors.KindValidation, "not an s3 URI: %s", uri)
	}
	rest := strings.TrimPrefix(uri, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	bucket = parts[0]
	if bucket == "" {
		return "", "", relicerrors.Newf(relicerrors.KindValidation, "missing bucket in %s", uri)
	}
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		return bucket, "terraform.tfstate", nil
	}
	return bucket, parts[1], nil
}
