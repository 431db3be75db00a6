package shipping

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/pkg/errors"

	"github.com/imrishuroy/go-storefront/internal/aws"
)

var ErrNotFound = errors.New("shipping rate not found")

// Store encapsulates operations on the shipping rates table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName, nowFunc: time.Now}
}

// ListActive scans for rates with is_active = true.
func (s *Store) ListActive(ctx context.Context) ([]Rate, error) {
	return s.scan(ctx, &dyn.ScanInput{
		TableName:                 &s.tableName,
		FilterExpression:          awsString("is_active = :t"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":t": &types.AttributeValueMemberBOOL{Value: true}},
	})
}

func (s *Store) List(ctx context.Context) ([]Rate, error) {
	return s.scan(ctx, &dyn.ScanInput{TableName: &s.tableName})
}

// Get returns (nil, nil) when the rate does not exist.
func (s *Store) Get(ctx context.Context, id string) (*Rate, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       rateKey(id),
	})
	if err != nil {
		return nil, errors.Wrap(err, "get item")
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var r Rate
	if err := attributevalue.UnmarshalMap(out.Item, &r); err != nil {
		return nil, errors.Wrap(err, "unmarshal rate")
	}
	return &r, nil
}

func (s *Store) Put(ctx context.Context, r Rate) error {
	r.UpdatedAt = s.nowFunc()
	item, err := attributevalue.MarshalMap(r)
	if err != nil {
		return errors.Wrap(err, "marshal rate")
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{TableName: &s.tableName, Item: item}); err != nil {
		return errors.Wrap(err, "put item")
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName:           &s.tableName,
		Key:                 rateKey(id),
		ConditionExpression: awsString("attribute_exists(rate_id)"),
	})
	if err != nil {
		var cf *types.ConditionalCheckFailedException
		if errors.As(err, &cf) {
			return ErrNotFound
		}
		return errors.Wrap(err, "delete item")
	}
	return nil
}

func (s *Store) scan(ctx context.Context, in *dyn.ScanInput) ([]Rate, error) {
	var out []Rate
	for {
		page, err := s.client.Scan(ctx, in)
		if err != nil {
			return nil, errors.Wrap(err, "scan shipping rates")
		}
		var batch []Rate
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, errors.Wrap(err, "unmarshal shipping rates")
		}
		out = append(out, batch...)
		if len(page.LastEvaluatedKey) == 0 {
			return out, nil
		}
		in.ExclusiveStartKey = page.LastEvaluatedKey
	}
}

func rateKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"rate_id": &types.AttributeValueMemberS{Value: id}}
}

func awsString(s string) *string { return &s }
