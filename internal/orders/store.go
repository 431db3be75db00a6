package orders

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/imrishuroy/go-storefront/internal/aws"
)

const (
	orderNumberIndex   = "order_number-index"
	paymentIntentIndex = "payment_intent_id-index"
)

var (
	// ErrStatusMismatch means the order changed since it was read.
	ErrStatusMismatch = errors.New("status mismatch/conditional failed")
	// ErrIdempotencyKeyExists means another request already created an order for the key.
	ErrIdempotencyKeyExists = errors.New("idempotency key already used")
	// ErrCouponLimitReached means the order's coupon is at its max uses or no
	// longer exists, so its usage cannot be counted.
	ErrCouponLimitReached = errors.New("coupon usage limit reached")
)

// couponUsageCondition keeps current_uses at or below max_uses.
const couponUsageCondition = "attribute_exists(code) AND (attribute_not_exists(max_uses) OR current_uses < max_uses)"

// Tables names every table a transition may write to.
type Tables struct {
	Orders      string
	History     string
	Idempotency string
	Products    string
	Coupons     string
}

// Store encapsulates operations on the orders and history tables.
type Store struct {
	client    aws.DynamoDBAPI
	tables    Tables
	ttlWindow time.Duration
	nowFunc   func() time.Time
	newID     func() string
}

// NewStore creates a new orders Store. ttlWindow is applied to idempotency
// records written with new orders.
func NewStore(client aws.DynamoDBAPI, tables Tables, ttlWindow time.Duration) *Store {
	return &Store{
		client:    client,
		tables:    tables,
		ttlWindow: ttlWindow,
		nowFunc:   time.Now,
		newID:     uuid.NewString,
	}
}

// CreateWithIdempotencyTransaction atomically creates:
//   - idempotency record (attribute_not_exists(idempotency_key))
//   - order record (attribute_not_exists(order_id))
//   - the first history entry
//
// idempotencyItem must marshal with an idempotency_key attribute.
func (s *Store) CreateWithIdempotencyTransaction(ctx context.Context, idempotencyItem interface{}, order *Order) error {
	idempMap, err := attributevalue.MarshalMap(idempotencyItem)
	if err != nil {
		return errors.Wrap(err, "marshal idempotency item")
	}
	now := s.nowFunc()
	if _, ok := idempMap["expires_at"]; !ok && s.ttlWindow > 0 {
		idempMap["expires_at"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Add(s.ttlWindow).Unix(), 10)}
	}

	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	orderMap, err := attributevalue.MarshalMap(order)
	if err != nil {
		return errors.Wrap(err, "marshal order item")
	}

	placed := Transition{
		Event:     EventPlaced,
		ToStatus:  order.Status,
		ToPayment: order.PaymentStatus,
		Note:      "Order placed",
		Actor:     "customer",
	}
	histMap, err := attributevalue.MarshalMap(placed.History(order.OrderID, s.newID(), now))
	if err != nil {
		return errors.Wrap(err, "marshal history entry")
	}

	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           &s.tables.Idempotency,
				Item:                idempMap,
				ConditionExpression: awsString("attribute_not_exists(idempotency_key)"),
			}},
			{Put: &types.Put{
				TableName:           &s.tables.Orders,
				Item:                orderMap,
				ConditionExpression: awsString("attribute_not_exists(order_id)"),
			}},
			{Put: &types.Put{TableName: &s.tables.History, Item: histMap}},
		},
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) && conditionFailedAt(tce, 0) {
			return ErrIdempotencyKeyExists
		}
		return errors.Wrap(err, "transact write")
	}
	return nil
}

// SetCheckoutSession records the processor session created for the order.
func (s *Store) SetCheckoutSession(ctx context.Context, orderID, sessionID string) error {
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:        &s.tables.Orders,
		Key:              orderKey(orderID),
		UpdateExpression: awsString("SET checkout_session_id = :sid, updated_at = :ua"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sid": &types.AttributeValueMemberS{Value: sessionID},
			":ua":  &types.AttributeValueMemberS{Value: s.nowFunc().Format(time.RFC3339Nano)},
		},
		ConditionExpression: awsString("attribute_exists(order_id)"),
	})
	if err != nil {
		var cf *types.ConditionalCheckFailedException
		if errors.As(err, &cf) {
			return errors.Errorf("order %s not found", orderID)
		}
		return errors.Wrap(err, "update checkout session")
	}
	return nil
}

// Get fetches an order by order_id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, orderID string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tables.Orders,
		Key:            orderKey(orderID),
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return nil, errors.Wrap(err, "get item")
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, errors.Wrap(err, "unmarshal order")
	}
	return &o, nil
}

// GetByNumber looks an order up by its customer-facing number. Returns (nil, nil) if not found.
func (s *Store) GetByNumber(ctx context.Context, number string) (*Order, error) {
	return s.queryOne(ctx, orderNumberIndex, "order_number", number)
}

// GetByPaymentIntent looks an order up by the processor payment reference.
func (s *Store) GetByPaymentIntent(ctx context.Context, paymentIntentID string) (*Order, error) {
	return s.queryOne(ctx, paymentIntentIndex, "payment_intent_id", paymentIntentID)
}

func (s *Store) queryOne(ctx context.Context, index, attr, value string) (*Order, error) {
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:                 &s.tables.Orders,
		IndexName:                 awsString(index),
		KeyConditionExpression:    awsString(attr + " = :v"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
		Limit:                     awsInt32(1),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "query %s", index)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Items[0], &o); err != nil {
		return nil, errors.Wrap(err, "unmarshal order")
	}
	// index reads are eventually consistent; return the base item
	return s.Get(ctx, o.OrderID)
}

// List returns all orders, newest first.
func (s *Store) List(ctx context.Context) ([]Order, error) {
	var (
		out      []Order
		startKey map[string]types.AttributeValue
	)
	for {
		page, err := s.client.Scan(ctx, &dyn.ScanInput{
			TableName:         &s.tables.Orders,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, errors.Wrap(err, "scan orders")
		}
		var batch []Order
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, errors.Wrap(err, "unmarshal orders")
		}
		out = append(out, batch...)
		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		startKey = page.LastEvaluatedKey
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// History returns the order's entries, oldest first.
func (s *Store) History(ctx context.Context, orderID string) ([]HistoryEntry, error) {
	var (
		out      []HistoryEntry
		startKey map[string]types.AttributeValue
	)
	for {
		page, err := s.client.Query(ctx, &dyn.QueryInput{
			TableName:                 &s.tables.History,
			KeyConditionExpression:    awsString("order_id = :oid"),
			ExpressionAttributeValues: map[string]types.AttributeValue{":oid": &types.AttributeValueMemberS{Value: orderID}},
			ScanIndexForward:          awsBool(true),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, errors.Wrap(err, "query history")
		}
		var batch []HistoryEntry
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, errors.Wrap(err, "unmarshal history")
		}
		out = append(out, batch...)
		if len(page.LastEvaluatedKey) == 0 {
			return out, nil
		}
		startKey = page.LastEvaluatedKey
	}
}

// Apply commits t in one transaction: the guarded order update, its history
// entry and the stock and coupon effects. It returns ErrStatusMismatch when
// the order no longer has t.FromStatus/t.FromPayment and ErrCouponLimitReached
// when the coupon increment would pass max uses. On success o is updated in
// place.
func (s *Store) Apply(ctx context.Context, o *Order, t Transition) error {
	now := s.nowFunc()
	ts := now.Format(time.RFC3339Nano)

	set := []string{"#s = :to_status", "#ps = :to_payment", "updated_at = :ua"}
	vals := map[string]types.AttributeValue{
		":to_status":    &types.AttributeValueMemberS{Value: string(t.ToStatus)},
		":to_payment":   &types.AttributeValueMemberS{Value: string(t.ToPayment)},
		":from_status":  &types.AttributeValueMemberS{Value: string(t.FromStatus)},
		":from_payment": &types.AttributeValueMemberS{Value: string(t.FromPayment)},
		":ua":           &types.AttributeValueMemberS{Value: ts},
	}
	if t.PaymentIntentID != "" {
		set = append(set, "payment_intent_id = :pi")
		vals[":pi"] = &types.AttributeValueMemberS{Value: t.PaymentIntentID}
	}
	if t.RefundedCents != 0 {
		set = append(set, "refunded_cents = if_not_exists(refunded_cents, :zero) + :refund")
		vals[":zero"] = &types.AttributeValueMemberN{Value: "0"}
		vals[":refund"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(t.RefundedCents, 10)}
	}
	if t.OrderNote != "" {
		set = append(set, "notes = list_append(if_not_exists(notes, :empty), :note)")
		vals[":empty"] = &types.AttributeValueMemberL{Value: []types.AttributeValue{}}
		vals[":note"] = &types.AttributeValueMemberL{Value: []types.AttributeValue{&types.AttributeValueMemberS{Value: t.OrderNote}}}
	}
	if t.TrackingNumber != "" {
		set = append(set, "tracking_number = :tn")
		vals[":tn"] = &types.AttributeValueMemberS{Value: t.TrackingNumber}
	}
	if t.TrackingURL != "" {
		set = append(set, "tracking_url = :tu")
		vals[":tu"] = &types.AttributeValueMemberS{Value: t.TrackingURL}
	}
	if t.StampsShipped() {
		set = append(set, "shipped_at = :ua")
	}
	if t.StampsDelivered() {
		set = append(set, "delivered_at = :ua")
	}

	histMap, err := attributevalue.MarshalMap(t.History(o.OrderID, s.newID(), now))
	if err != nil {
		return errors.Wrap(err, "marshal history entry")
	}

	items := []types.TransactWriteItem{
		{Update: &types.Update{
			TableName:                 &s.tables.Orders,
			Key:                       orderKey(o.OrderID),
			UpdateExpression:          awsString("SET " + strings.Join(set, ", ")),
			ConditionExpression:       awsString("#s = :from_status AND #ps = :from_payment"),
			ExpressionAttributeNames:  map[string]string{"#s": "status", "#ps": "payment_status"},
			ExpressionAttributeValues: vals,
		}},
		{Put: &types.Put{TableName: &s.tables.History, Item: histMap}},
	}
	if t.Has(EffectDecrementStock) {
		for _, ch := range o.StockChanges() {
			items = append(items, types.TransactWriteItem{Update: &types.Update{
				TableName:        &s.tables.Products,
				Key:              map[string]types.AttributeValue{"product_id": &types.AttributeValueMemberS{Value: ch.ProductID}},
				UpdateExpression: awsString("SET stock = if_not_exists(stock, :zero) - :q, updated_at = :ua"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":zero": &types.AttributeValueMemberN{Value: "0"},
					":q":    &types.AttributeValueMemberN{Value: strconv.Itoa(ch.Quantity)},
					":ua":   &types.AttributeValueMemberS{Value: ts},
				},
			}})
		}
	}
	couponAt := -1
	if t.Has(EffectIncrementCouponUsage) && o.CouponCode != "" {
		couponAt = len(items)
		items = append(items, types.TransactWriteItem{Update: &types.Update{
			TableName:           &s.tables.Coupons,
			Key:                 map[string]types.AttributeValue{"code": &types.AttributeValueMemberS{Value: o.CouponCode}},
			UpdateExpression:    awsString("SET current_uses = if_not_exists(current_uses, :zero) + :one, updated_at = :ua"),
			ConditionExpression: awsString(couponUsageCondition),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":zero": &types.AttributeValueMemberN{Value: "0"},
				":one":  &types.AttributeValueMemberN{Value: "1"},
				":ua":   &types.AttributeValueMemberS{Value: ts},
			},
		}})
	}

	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			if conditionFailedAt(tce, 0) {
				return ErrStatusMismatch
			}
			if couponAt > 0 && conditionFailedAt(tce, couponAt) {
				return ErrCouponLimitReached
			}
		}
		return errors.Wrap(err, "transact write")
	}
	t.ApplyTo(o, now)
	return nil
}

// conditionFailedAt reports whether item i failed its condition. Without
// reasons the cancellation is treated as a condition failure.
func conditionFailedAt(tce *types.TransactionCanceledException, i int) bool {
	if len(tce.CancellationReasons) <= i {
		return true
	}
	code := tce.CancellationReasons[i].Code
	return code != nil && *code == "ConditionalCheckFailed"
}

func orderKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"order_id": &types.AttributeValueMemberS{Value: id}}
}

func awsString(s string) *string { return &s }
func awsBool(b bool) *bool       { return &b }
func awsInt32(i int32) *int32    { return &i }
