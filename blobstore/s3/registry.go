package s3

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrConcurrentPublish is returned when another writer published the same
// model version first.
var ErrConcurrentPublish = errors.New("concurrent model publish detected")

// DDBClient is the interface for DynamoDB operations.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// ModelRegistry tracks published model versions in DynamoDB. S3 alone has
// no compare-and-swap, so the registry provides the atomic "current model"
// pointer that lets multiple writers publish safely: blobs are written
// under versioned names and a conditional DynamoDB write advances the
// version.
//
// Table schema:
//   - Partition key: registry (string) - the model registry name
//   - Sort key: version (number) - monotonically increasing version
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name fastmks-models \
//	  --attribute-definitions AttributeName=registry,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=registry,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type ModelRegistry struct {
	client    DDBClient
	tableName string
	registry  string
}

// NewModelRegistry creates a registry named registry in tableName.
func NewModelRegistry(client DDBClient, tableName, registry string) *ModelRegistry {
	return &ModelRegistry{
		client:    client,
		tableName: tableName,
		registry:  registry,
	}
}

// Current returns the latest published version and its blob name.
// version 0 with an empty name means nothing has been published.
func (r *ModelRegistry) Current(ctx context.Context) (uint64, string, error) {
	resp, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("registry = :r"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":r": &types.AttributeValueMemberS{Value: r.registry},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("query model registry: %w", err)
	}
	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("invalid version attribute in model registry")
	}
	nameAttr, ok := item["blob_name"].(*types.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("invalid blob_name attribute in model registry")
	}

	var version uint64
	if _, err := fmt.Sscanf(versionAttr.Value, "%d", &version); err != nil {
		return 0, "", fmt.Errorf("parse model version: %w", err)
	}
	return version, nameAttr.Value, nil
}

// Publish atomically records blobName as the next model version. The
// conditional write fails with ErrConcurrentPublish if another writer
// claimed the version first; the caller can re-read Current and retry.
func (r *ModelRegistry) Publish(ctx context.Context, blobName string) (uint64, error) {
	current, _, err := r.Current(ctx)
	if err != nil {
		return 0, err
	}
	next := current + 1

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item: map[string]types.AttributeValue{
			"registry":  &types.AttributeValueMemberS{Value: r.registry},
			"version":   &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", next)},
			"blob_name": &types.AttributeValueMemberS{Value: blobName},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return 0, ErrConcurrentPublish
		}
		return 0, fmt.Errorf("publish model version: %w", err)
	}
	return next, nil
}
