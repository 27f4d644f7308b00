package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	relicerrors "github.com/relic-io/relic/internal/errors"
	"github.com/relic-io/relic/internal/logger"
	"github.com/relic-io/relic/pkg/types"
)

// EC2API is the slice of the EC2 client the inventory uses.
type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// RDSAPI is the slice of the RDS client the inventory uses.
type RDSAPI interface {
	DescribeDBInstances(ctx context.Context, params *rds.DescribeDBInstancesInput, optFns ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error)
}

// S3InventoryAPI is the slice of the S3 client the inventory uses.
type S3InventoryAPI interface {
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	GetBucketLocation(ctx context.Context, params *s3.GetBucketLocationInput, optFns ...func(*s3.Options)) (*s3.GetBucketLocationOutput, error)
	GetBucketTagging(ctx context.Context, params *s3.GetBucketTaggingInput, optFns ...func(*s3.Options)) (*s3.GetBucketTaggingOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Inventory is the inventory collaborator over EC2, RDS and S3. It reports
// live resources along with the dependency signals the scorer consumes.
type Inventory struct {
	ec2Client EC2API
	rdsClient RDSAPI
	s3Client  S3InventoryAPI
	region    string
	policy    relicerrors.RetryPolicy
	log       logger.Logger
}

// NewInventory creates the inventory collaborator for one region.
func NewInventory(clients *Clients, region string, log logger.Logger) *Inventory {
	return &Inventory{
		ec2Client: clients.EC2,
		rdsClient: clients.RDS,
		s3Client:  clients.S3,
		region:    region,
		policy:    relicerrors.DefaultRetryPolicy(),
		log:       log,
	}
}

// ListResources lists all live resources of one type in the region.
func (i *Inventory) ListResources(ctx context.Context, resourceType string) ([]types.Resource, error) {
	switch resourceType {
	case "ec2":
		return i.listInstances(ctx)
	case "rds":
		return i.listDBInstances(ctx)
	case "s3":
		return i.listBuckets(ctx)
	default:
		return nil, relicerrors.Newf(relicerrors.KindValidation, "unknown resource type %q", resourceType)
	}
}

func (i *Inventory) listInstances(ctx context.Context) ([]types.Resource, error) {
	var resources []types.Resource
	var nextToken *string

	for {
		var out *ec2.DescribeInstancesOutput
		err := relicerrors.Retry(ctx, i.policy, func() error {
			var callErr error
			out, callErr = i.ec2Client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{NextToken: nextToken})
			return callErr
		})
		if err != nil {
			return nil, err
		}

		for _, reservation := range out.Reservations {
			for _, instance := range reservation.Instances {
				if instance.State != nil && instance.State.Name == ec2types.InstanceStateNameTerminated {
					continue
				}
				resources = append(resources, i.normalizeInstance(instance))
			}
		}

		if out.NextToken == nil {
			return resources, nil
		}
		nextToken = out.NextToken
	}
}

func (i *Inventory) normalizeInstance(instance ec2types.Instance) types.Resource {
	tags := make(map[string]string)
	for _, tag := range instance.Tags {
		tags[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}

	var dependents []string
	for _, bdm := range instance.BlockDeviceMappings {
		if bdm.Ebs != nil {
			dependents = append(dependents, aws.ToString(bdm.Ebs.VolumeId))
		}
	}
	for _, ni := range instance.NetworkInterfaces {
		if ni.Association != nil && aws.ToString(ni.Association.IpOwnerId) != "amazon" {
			dependents = append(dependents, "eip:"+aws.ToString(ni.Association.PublicIp))
		}
	}

	state := ""
	if instance.State != nil {
		state = string(instance.State.Name)
	}

	res := types.Resource{
		ID:         aws.ToString(instance.InstanceId),
		Type:       "ec2",
		Name:       tags["Name"],
		Region:     i.region,
		State:      state,
		Tags:       tags,
		Dependents: dependents,
	}
	if instance.LaunchTime != nil {
		res.LaunchTime = *instance.LaunchTime
	}
	return res
}

func (i *Inventory) listDBInstances(ctx context.Context) ([]types.Resource, error) {
	var resources []types.Resource
	var marker *string

	for {
		var out *rds.DescribeDBInstancesOutput
		err := relicerrors.Retry(ctx, i.policy, func() error {
			var callErr error
			out, callErr = i.rdsClient.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{Marker: marker})
			return callErr
		})
		if err != nil {
			return nil, err
		}

		for _, db := range out.DBInstances {
			res := types.Resource{
				ID:         aws.ToString(db.DBInstanceIdentifier),
				Type:       "rds",
				Name:       aws.ToString(db.DBInstanceIdentifier),
				Region:     i.region,
				State:      aws.ToString(db.DBInstanceStatus),
				Dependents: db.ReadReplicaDBInstanceIdentifiers,
			}
			if db.InstanceCreateTime != nil {
				res.LaunchTime = *db.InstanceCreateTime
			}
			resources = append(resources, res)
		}

		if out.Marker == nil {
			return resources, nil
		}
		marker = out.Marker
	}
}

func (i *Inventory) listBuckets(ctx context.Context) ([]types.Resource, error) {
	var out *s3.ListBucketsOutput
	err := relicerrors.Retry(ctx, i.policy, func() error {
		var callErr error
		out, callErr = i.s3Client.ListBuckets(ctx, &s3.ListBucketsInput{})
		return callErr
	})
	if err != nil {
		return nil, err
	}

	var resources []types.Resource
	for _, bucket := range out.Buckets {
		name := aws.ToString(bucket.Name)

		loc, err := i.s3Client.GetBucketLocation(ctx, &s3.GetBucketLocationInput{Bucket: aws.String(name)})
		if err != nil {
			i.log.WithField("bucket", name).Error("skipping bucket: location lookup failed", err)
			continue
		}
		bucketRegion := string(loc.LocationConstraint)
		if bucketRegion == "" {
			bucketRegion = "us-east-1"
		}
		if bucketRegion != i.region {
			continue
		}

		res := types.Resource{
			ID:     name,
			Type:   "s3",
			Name:   name,
			Region: bucketRegion,
			State:  "available",
		}
		if bucket.CreationDate != nil {
			res.LaunchTime = *bucket.CreationDate
		}

		// A non-empty bucket counts as having dependents: its contents.
		objects, err := i.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:  aws.String(name),
			MaxKeys: aws.Int32(1),
		})
		if err == nil && aws.ToInt32(objects.KeyCount) > 0 {
			res.Dependents = append(res.Dependents, "objects")
		}

		resources = append(resources, res)
	}
	return resources, nil
}

// Describe fetches enrichment details for a single resource. Used by the
// creator lookup; failures here degrade to a note, never fail the query.
func (i *Inventory) Describe(ctx context.Context, resourceID, resourceType string) (map[string]interface{}, error) {
	switch resourceType {
	case "ec2":
		return i.describeInstance(ctx, resourceID)
	case "rds":
		return i.describeDBInstance(ctx, resourceID)
	case "s3":
		return i.describeBucket(ctx, resourceID)
	default:
		return nil, relicerrors.Newf(relicerrors.KindValidation, "unknown resource type %q", resourceType)
	}
}

func (i *Inventory) describeInstance(ctx context.Context, id string) (map[string]interface{}, error) {
	out, err := i.ec2Client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{InstanceIds: []string{id}})
	if err != nil {
		return nil, relicerrors.Classify(err)
	}
	if len(out.Reservations) == 0 || len(out.Reservations[0].Instances) == 0 {
		return nil, relicerrors.Newf(relicerrors.KindNotFound, "instance %s not found", id)
	}

	instance := out.Reservations[0].Instances[0]
	tags := make(map[string]string)
	for _, tag := range instance.Tags {
		tags[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	state := ""
	if instance.State != nil {
		state = string(instance.State.Name)
	}
	info := map[string]interface{}{
		"state":         state,
		"instance_type": string(instance.InstanceType),
		"tags":          tags,
	}
	if instance.LaunchTime != nil {
		info["launch_time"] = instance.LaunchTime.Format("2006-01-02T15:04:05Z07:00")
	}
	return info, nil
}

func (i *Inventory) describeDBInstance(ctx context.Context, id string) (map[string]interface{}, error) {
	out, err := i.rdsClient.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{
		DBInstanceIdentifier: aws.String(id),
	})
	if err != nil {
		return nil, relicerrors.Classify(err)
	}
	if len(out.DBInstances) == 0 {
		return nil, relicerrors.Newf(relicerrors.KindNotFound, "db instance %s not found", id)
	}

	db := out.DBInstances[0]
	info := map[string]interface{}{
		"state":          aws.ToString(db.DBInstanceStatus),
		"engine":         aws.ToString(db.Engine),
		"instance_class": aws.ToString(db.DBInstanceClass),
	}
	if db.InstanceCreateTime != nil {
		info["created_time"] = db.InstanceCreateTime.Format("2006-01-02T15:04:05Z07:00")
	}
	return info, nil
}

func (i *Inventory) describeBucket(ctx context.Context, name string) (map[string]interface{}, error) {
	loc, err := i.s3Client.GetBucketLocation(ctx, &s3.GetBucketLocationInput{Bucket: aws.String(name)})
	if err != nil {
		return nil, relicerrors.Classify(err)
	}
	region := string(loc.LocationConstraint)
	if region == "" {
		region = "us-east-1"
	}
	info := map[string]interface{}{"location": region}

	// Buckets frequently have no tag set at all; that is not an error.
	if tagging, err := i.s3Client.GetBucketTagging(ctx, &s3.GetBucketTaggingInput{Bucket: aws.String(name)}); err == nil {
		tags := make(map[string]string)
		for _, tag := range tagging.TagSet {
			tags[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
		}
		info["tags"] = tags
	}
	return info, nil
}
