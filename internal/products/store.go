package products

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/pkg/errors"

	"github.com/imrishuroy/go-storefront/internal/aws"
)

// ErrNotFound is returned by Update for unknown products.
var ErrNotFound = errors.New("product not found")

// Store encapsulates operations on the products table. Stock is decremented
// by the orders store inside the confirmation transaction, not here.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName, nowFunc: time.Now}
}

// Get returns (nil, nil) if the product does not exist.
func (s *Store) Get(ctx context.Context, id string) (*Product, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tableName,
		Key:            map[string]types.AttributeValue{"product_id": &types.AttributeValueMemberS{Value: id}},
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return nil, errors.Wrap(err, "get item")
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var p Product
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, errors.Wrap(err, "unmarshal product")
	}
	return &p, nil
}

func (s *Store) List(ctx context.Context) ([]Product, error) {
	var (
		out []Product
		in  = &dyn.ScanInput{TableName: &s.tableName}
	)
	for {
		page, err := s.client.Scan(ctx, in)
		if err != nil {
			return nil, errors.Wrap(err, "scan products")
		}
		var batch []Product
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, errors.Wrap(err, "unmarshal products")
		}
		out = append(out, batch...)
		if len(page.LastEvaluatedKey) == 0 {
			return out, nil
		}
		in.ExclusiveStartKey = page.LastEvaluatedKey
	}
}

func (s *Store) Put(ctx context.Context, p Product) error {
	p.UpdatedAt = s.nowFunc()
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return errors.Wrap(err, "marshal product")
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{TableName: &s.tableName, Item: item}); err != nil {
		return errors.Wrap(err, "put item")
	}
	return nil
}

// Update writes the catalog fields of an existing product and returns the
// stored item. Stock is written only when withStock is set, so decrements
// made by confirmed orders survive a catalog edit.
func (s *Store) Update(ctx context.Context, p Product, withStock bool) (*Product, error) {
	set := []string{"#n = :name", "price_cents = :price", "is_active = :active", "updated_at = :ua"}
	var remove []string
	vals := map[string]types.AttributeValue{
		":name":   &types.AttributeValueMemberS{Value: p.Name},
		":price":  &types.AttributeValueMemberN{Value: strconv.FormatInt(p.PriceCents, 10)},
		":active": &types.AttributeValueMemberBOOL{Value: p.IsActive},
		":ua":     &types.AttributeValueMemberS{Value: s.nowFunc().Format(time.RFC3339Nano)},
	}
	if withStock {
		set = append(set, "stock = :stock")
		vals[":stock"] = &types.AttributeValueMemberN{Value: strconv.Itoa(p.Stock)}
	}
	if p.Description != "" {
		set = append(set, "description = :desc")
		vals[":desc"] = &types.AttributeValueMemberS{Value: p.Description}
	} else {
		remove = append(remove, "description")
	}
	if p.ImageRef != "" {
		set = append(set, "image_ref = :img")
		vals[":img"] = &types.AttributeValueMemberS{Value: p.ImageRef}
	} else {
		remove = append(remove, "image_ref")
	}

	expr := "SET " + strings.Join(set, ", ")
	if len(remove) > 0 {
		expr += " REMOVE " + strings.Join(remove, ", ")
	}
	out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       map[string]types.AttributeValue{"product_id": &types.AttributeValueMemberS{Value: p.ProductID}},
		UpdateExpression:          &expr,
		ConditionExpression:       awsString("attribute_exists(product_id)"),
		ExpressionAttributeNames:  map[string]string{"#n": "name"},
		ExpressionAttributeValues: vals,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var cf *types.ConditionalCheckFailedException
		if errors.As(err, &cf) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "update item")
	}
	var stored Product
	if err := attributevalue.UnmarshalMap(out.Attributes, &stored); err != nil {
		return nil, errors.Wrap(err, "unmarshal product")
	}
	return &stored, nil
}

func awsBool(b bool) *bool       { return &b }
func awsString(s string) *string { return &s }
