package products

import (
	"context"
	"errors"
	"strings"
	"testing"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockDynamo keeps items in insertion order and pages Scan one item at a time.
type mockDynamo struct {
	ids   []string
	items map[string]map[string]types.AttributeValue
	scans int
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{items: map[string]map[string]types.AttributeValue{}}
}

func idOf(m map[string]types.AttributeValue) string {
	return m["product_id"].(*types.AttributeValueMemberS).Value
}

func (m *mockDynamo) PutItem(ctx context.Context, in *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	id := idOf(in.Item)
	if _, ok := m.items[id]; !ok {
		m.ids = append(m.ids, id)
	}
	m.items[id] = in.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, in *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	return &dyn.GetItemOutput{Item: m.items[idOf(in.Key)]}, nil
}

func (m *mockDynamo) Scan(ctx context.Context, in *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	m.scans++
	start := 0
	if in.ExclusiveStartKey != nil {
		last := idOf(in.ExclusiveStartKey)
		for i, id := range m.ids {
			if id == last {
				start = i + 1
			}
		}
	}
	if start >= len(m.ids) {
		return &dyn.ScanOutput{}, nil
	}
	item := m.items[m.ids[start]]
	out := &dyn.ScanOutput{Items: []map[string]types.AttributeValue{item}}
	if start+1 < len(m.ids) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{"product_id": item["product_id"]}
	}
	return out, nil
}

func (m *mockDynamo) DeleteItem(ctx context.Context, in *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	return nil, errors.New("not used")
}

// UpdateItem applies "SET a = :a, ... REMOVE b, ..." guarded by attribute_exists.
func (m *mockDynamo) UpdateItem(ctx context.Context, in *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	id := idOf(in.Key)
	item, ok := m.items[id]
	if !ok {
		return nil, &types.ConditionalCheckFailedException{}
	}
	next := map[string]types.AttributeValue{}
	for name, v := range item {
		next[name] = v
	}
	setPart, removePart := *in.UpdateExpression, ""
	if i := strings.Index(setPart, " REMOVE "); i >= 0 {
		setPart, removePart = setPart[:i], setPart[i+len(" REMOVE "):]
	}
	for _, assign := range strings.Split(strings.TrimPrefix(setPart, "SET "), ", ") {
		parts := strings.SplitN(assign, " = ", 2)
		name := parts[0]
		if n, ok := in.ExpressionAttributeNames[name]; ok {
			name = n
		}
		next[name] = in.ExpressionAttributeValues[parts[1]]
	}
	if removePart != "" {
		for _, name := range strings.Split(removePart, ", ") {
			delete(next, name)
		}
	}
	m.items[id] = next
	return &dyn.UpdateItemOutput{Attributes: next}, nil
}

func (m *mockDynamo) Query(ctx context.Context, in *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	return nil, errors.New("not used")
}

func (m *mockDynamo) TransactWriteItems(ctx context.Context, in *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	return nil, errors.New("not used")
}

func TestStore_PutGetList(t *testing.T) {
	mock := newMockDynamo()
	s := NewStore(mock, "products")
	ctx := context.Background()

	for _, p := range []Product{
		{ProductID: "a", Name: "A", PriceCents: 100, Stock: 1, IsActive: true},
		{ProductID: "b", Name: "B", PriceCents: 200, Stock: 0},
		{ProductID: "c", Name: "C", PriceCents: 300, Stock: 7, IsActive: true},
	} {
		require.NoError(t, s.Put(ctx, p))
	}

	got, err := s.Get(ctx, "c")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 7, got.Stock)
	assert.False(t, got.UpdatedAt.IsZero())

	missing, err := s.Get(ctx, "zzz")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, 3, mock.scans)
}

func TestStore_UpdateStock(t *testing.T) {
	mock := newMockDynamo()
	s := NewStore(mock, "products")
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, Product{ProductID: "a", Name: "A", Description: "old", PriceCents: 100, Stock: 5, IsActive: true}))

	got, err := s.Update(ctx, Product{ProductID: "a", Name: "A2", PriceCents: 150, Stock: 99, IsActive: true}, false)
	require.NoError(t, err)
	assert.Equal(t, "A2", got.Name)
	assert.Equal(t, int64(150), got.PriceCents)
	assert.Equal(t, 5, got.Stock)
	assert.Empty(t, got.Description)

	got, err = s.Update(ctx, Product{ProductID: "a", Name: "A2", PriceCents: 150, Stock: 9}, true)
	require.NoError(t, err)
	assert.Equal(t, 9, got.Stock)
	assert.False(t, got.IsActive)

	_, err = s.Update(ctx, Product{ProductID: "zzz", Name: "Z"}, false)
	assert.ErrorIs(t, err, ErrNotFound)
}
