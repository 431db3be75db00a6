package idempotency

import (
	"context"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"

	"github.com/imrishuroy/go-storefront/internal/aws"
)

// Store encapsulates idempotency operations against DynamoDB.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	ttlWindow time.Duration // default TTL window when creating entries
	nowFunc   func() time.Time
}

// NewStore returns a configured Store.
func NewStore(client aws.DynamoDBAPI, tableName string, ttlWindow time.Duration) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		ttlWindow: ttlWindow,
		nowFunc:   time.Now,
	}
}

// CreateIfNotExists creates an IN_PROGRESS record unless one exists.
// Returns (true, nil) when created and (false, nil) when the key is taken.
func (s *Store) CreateIfNotExists(ctx context.Context, key, orderID string) (bool, error) {
	now := s.nowFunc()
	rec := IdempotencyRecord{
		IdempotencyKey: key,
		Status:         StatusInProgress,
		OrderID:        orderID,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(s.ttlWindow).Unix(),
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return false, errors.Wrap(err, "marshal record")
	}

	// expired records may linger until the TTL sweeper removes them
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(idempotency_key) OR expires_at < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)},
		},
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException" {
			return false, nil
		}
		return false, errors.Wrap(err, "put item")
	}
	return true, nil
}

// Get retrieves a live record by key. Returns (nil, nil) when missing or expired.
func (s *Store) Get(ctx context.Context, key string) (*IdempotencyRecord, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tableName,
		Key:            recordKey(key),
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return nil, errors.Wrap(err, "get item")
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec IdempotencyRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, errors.Wrap(err, "unmarshal item")
	}
	if rec.ExpiresAt != 0 && rec.ExpiresAt <= s.nowFunc().Unix() {
		return nil, nil
	}
	return &rec, nil
}

// MarkDone sets status to DONE and stores the response replayed to duplicates.
func (s *Store) MarkDone(ctx context.Context, key, responseBody string, responseStatus int) error {
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                &s.tableName,
		Key:                      recordKey(key),
		UpdateExpression:         awsString("SET #s = :done, response_body = :rb, response_status = :rs, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":done": &types.AttributeValueMemberS{Value: StatusDone},
			":rb":   &types.AttributeValueMemberS{Value: responseBody},
			":rs":   &types.AttributeValueMemberN{Value: strconv.Itoa(responseStatus)},
			":ua":   &types.AttributeValueMemberS{Value: s.nowFunc().Format(time.RFC3339Nano)},
		},
		ConditionExpression: awsString("attribute_exists(idempotency_key)"),
	})
	if err != nil {
		return errors.Wrap(err, "update item (mark done)")
	}
	return nil
}

// MarkFailed marks the record FAILED with a note so the caller may retry with a new key.
func (s *Store) MarkFailed(ctx context.Context, key, note string) error {
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                &s.tableName,
		Key:                      recordKey(key),
		UpdateExpression:         awsString("SET #s = :failed, note = :n, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":failed": &types.AttributeValueMemberS{Value: StatusFailed},
			":n":      &types.AttributeValueMemberS{Value: note},
			":ua":     &types.AttributeValueMemberS{Value: s.nowFunc().Format(time.RFC3339Nano)},
		},
		ConditionExpression: awsString("attribute_exists(idempotency_key)"),
	})
	if err != nil {
		return errors.Wrap(err, "update item (mark failed)")
	}
	return nil
}

func recordKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"idempotency_key": &types.AttributeValueMemberS{Value: key}}
}

func awsString(s string) *string { return &s }
func awsBool(b bool) *bool       { return &b }
