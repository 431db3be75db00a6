package coupons

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

var (
	// ErrCodeExists is returned by Create when the code is taken.
	ErrCodeExists = errors.New("coupon code already exists")
	// ErrNotFound is returned by Update and Delete for unknown codes.
	ErrNotFound = errors.New("coupon not found")
	// ErrMaxUsesBelowUsage is returned by Update when max uses would drop
	// below the uses already counted.
	ErrMaxUsesBelowUsage = errors.New("max uses below current uses")
)

// Store encapsulates operations on the coupons table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// GetByCode fetches a coupon by its normalized code. Returns (nil, nil) if not found.
func (s *Store) GetByCode(ctx context.Context, code string) (*Coupon, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       codeKey(code),
	})
	if err != nil {
		return nil, errors.Wrap(err, "get item")
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var c Coupon
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, errors.Wrap(err, "unmarshal coupon")
	}
	return &c, nil
}

func (s *Store) List(ctx context.Context) ([]Coupon, error) {
	var (
		out      []Coupon
		startKey map[string]types.AttributeValue
	)
	for {
		page, err := s.client.Scan(ctx, &dyn.ScanInput{
			TableName:         &s.tableName,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, errors.Wrap(err, "scan coupons")
		}
		var batch []Coupon
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, errors.Wrap(err, "unmarshal coupons")
		}
		out = append(out, batch...)
		if len(page.LastEvaluatedKey) == 0 {
			return out, nil
		}
		startKey = page.LastEvaluatedKey
	}
}

// Create stores a new coupon, failing with ErrCodeExists on a duplicate code.
func (s *Store) Create(ctx context.Context, c Coupon) error {
	return s.put(ctx, c, "attribute_not_exists(code)", ErrCodeExists)
}

// Update writes the admin-editable fields of an existing coupon and returns
// the stored item. current_uses is owned by order confirmation and is never
// written here. It fails with ErrNotFound if the coupon is absent and with
// ErrMaxUsesBelowUsage if c.MaxUses is lower than the recorded uses.
func (s *Store) Update(ctx context.Context, c Coupon) (*Coupon, error) {
	now := s.nowFunc()
	set := []string{
		"discount_type = :dt",
		"discount_value = :dv",
		"min_order_cents = :min",
		"is_active = :active",
		"updated_at = :ua",
	}
	var remove []string
	vals := map[string]types.AttributeValue{
		":dt":     &types.AttributeValueMemberS{Value: string(c.DiscountType)},
		":dv":     &types.AttributeValueMemberN{Value: strconv.FormatFloat(c.DiscountValue, 'f', -1, 64)},
		":min":    &types.AttributeValueMemberN{Value: strconv.FormatInt(c.MinOrderCents, 10)},
		":active": &types.AttributeValueMemberBOOL{Value: c.IsActive},
		":ua":     &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
	}
	cond := "attribute_exists(code)"
	if c.Description != "" {
		set = append(set, "description = :desc")
		vals[":desc"] = &types.AttributeValueMemberS{Value: c.Description}
	} else {
		remove = append(remove, "description")
	}
	if c.MaxUses != nil {
		set = append(set, "max_uses = :max")
		vals[":max"] = &types.AttributeValueMemberN{Value: strconv.Itoa(*c.MaxUses)}
		cond += " AND (attribute_not_exists(current_uses) OR current_uses <= :max)"
	} else {
		remove = append(remove, "max_uses")
	}
	if c.ExpiresAt != nil {
		set = append(set, "expires_at = :exp")
		vals[":exp"] = &types.AttributeValueMemberS{Value: c.ExpiresAt.Format(time.RFC3339Nano)}
	} else {
		remove = append(remove, "expires_at")
	}

	expr := "SET " + strings.Join(set, ", ")
	if len(remove) > 0 {
		expr += " REMOVE " + strings.Join(remove, ", ")
	}
	out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       codeKey(c.Code),
		UpdateExpression:          &expr,
		ConditionExpression:       &cond,
		ExpressionAttributeValues: vals,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var cf *types.ConditionalCheckFailedException
		if !errors.As(err, &cf) {
			return nil, errors.Wrap(err, "update item")
		}
		existing, gerr := s.GetByCode(ctx, c.Code)
		if gerr != nil {
			return nil, gerr
		}
		if existing == nil {
			return nil, ErrNotFound
		}
		return nil, ErrMaxUsesBelowUsage
	}
	var stored Coupon
	if err := attributevalue.UnmarshalMap(out.Attributes, &stored); err != nil {
		return nil, errors.Wrap(err, "unmarshal coupon")
	}
	return &stored, nil
}

func (s *Store) Delete(ctx context.Context, code string) error {
	_, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName:           &s.tableName,
		Key:                 codeKey(code),
		ConditionExpression: awsString("attribute_exists(code)"),
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

func (s *Store) put(ctx context.Context, c Coupon, condition string, condErr error) error {
	c.UpdatedAt = s.nowFunc()
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return errors.Wrap(err, "marshal coupon")
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString(condition),
	})
	if err != nil {
		var cf *types.ConditionalCheckFailedException
		if errors.As(err, &cf) {
			return condErr
		}
		return errors.Wrap(err, "put item")
	}
	return nil
}

func codeKey(code string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"code": &types.AttributeValueMemberS{Value: NormalizeCode(code)},
	}
}

func awsString(s string) *string { return &s }
