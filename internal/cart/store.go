package cart

import (
	"context"
	"strconv"
	"time"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/pkg/errors"

	"github.com/imrishuroy/go-storefront/internal/aws"
)

// Store keeps cart snapshots in DynamoDB keyed by an opaque cart id. Items
// expire through the table TTL on expires_at.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	ttlWindow time.Duration
	nowFunc   func() time.Time
}

func NewStore(client aws.DynamoDBAPI, tableName string, ttlWindow time.Duration) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		ttlWindow: ttlWindow,
		nowFunc:   time.Now,
	}
}

// Load returns an empty cart when none is stored.
func (s *Store) Load(ctx context.Context, cartID string) (*Cart, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       cartKey(cartID),
	})
	if err != nil {
		return nil, errors.Wrap(err, "get item")
	}
	c := New()
	snap, ok := out.Item["snapshot"].(*types.AttributeValueMemberS)
	if !ok {
		return c, nil
	}
	if err := c.UnmarshalJSON([]byte(snap.Value)); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) Save(ctx context.Context, cartID string, c *Cart) error {
	data, err := c.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "encode cart")
	}
	now := s.nowFunc()
	item := map[string]types.AttributeValue{
		"cart_id":    &types.AttributeValueMemberS{Value: cartID},
		"snapshot":   &types.AttributeValueMemberS{Value: string(data)},
		"updated_at": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
	}
	if s.ttlWindow > 0 {
		item["expires_at"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Add(s.ttlWindow).Unix(), 10)}
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{TableName: &s.tableName, Item: item}); err != nil {
		return errors.Wrap(err, "put item")
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, cartID string) error {
	if _, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{TableName: &s.tableName, Key: cartKey(cartID)}); err != nil {
		return errors.Wrap(err, "delete item")
	}
	return nil
}

func cartKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"cart_id": &types.AttributeValueMemberS{Value: id}}
}
