package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/spacesedan/ddscraper/internal/models"
)

type DynamoPutter interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoActionStore mirrors actions into a DynamoDB table keyed by post_id.
// Writes are conditional so an existing item is never overwritten.
type DynamoActionStore struct {
	client DynamoPutter
	table  string
}

func NewDynamoActionStore(client DynamoPutter, table string) *DynamoActionStore {
	return &DynamoActionStore{client: client, table: table}
}

func (d *DynamoActionStore) Name() string { return "dynamodb" }

func (d *DynamoActionStore) PublishActions(ctx context.Context, actions []models.Action) error {
	written := 0
	for _, action := range actions {
		item, err := attributevalue.MarshalMap(action)
		if err != nil {
			return fmt.Errorf("[DynamoDB] failed to marshal action %s: %w", action.PostID, err)
		}

		_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(d.table),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(post_id)"),
		})
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			continue
		}
		if err != nil {
			return fmt.Errorf("[DynamoDB] failed to put action %s: %w", action.PostID, err)
		}
		written++
	}

	slog.Info("[DynamoDB] Mirrored actions",
		slog.String("table", d.table),
		slog.Int("written", written),
		slog.Int("skipped", len(actions)-written))
	return nil
}
