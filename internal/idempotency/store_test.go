package idempotency

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIfNotExists_Get_MarkDone_MarkFailed(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "idempotency-table", 48*time.Hour)
	ctx := context.Background()
	key := "test-key-1"
	orderID := "order-123"

	created, err := s.CreateIfNotExists(ctx, key, orderID)
	require.NoError(t, err)
	require.True(t, created)

	created, err = s.CreateIfNotExists(ctx, key, orderID)
	require.NoError(t, err)
	assert.False(t, created, "second create must report the key as taken")

	rec, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, StatusInProgress, rec.Status)
	assert.Equal(t, orderID, rec.OrderID)

	require.NoError(t, s.MarkDone(ctx, key, `{"ok":true}`, http.StatusCreated))
	item := mock.table[key]
	assert.Equal(t, StatusDone, item["status"].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, `{"ok":true}`, item["response_body"].(*types.AttributeValueMemberS).Value)

	require.NoError(t, s.MarkFailed(ctx, key, "failed-reason"))
	item = mock.table[key]
	assert.Equal(t, StatusFailed, item["status"].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, "failed-reason", item["note"].(*types.AttributeValueMemberS).Value)
}

func TestExpiredRecordsAreReclaimed(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "idempotency-table", time.Hour)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	created, err := s.CreateIfNotExists(ctx, "k", "o1")
	require.NoError(t, err)
	require.True(t, created)

	now = now.Add(2 * time.Hour)
	rec, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, rec, "expired record must read as absent")

	created, err = s.CreateIfNotExists(ctx, "k", "o2")
	require.NoError(t, err)
	assert.True(t, created)

	rec, err = s.Get(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "o2", rec.OrderID)
}

func TestMarkDoneUnknownKey(t *testing.T) {
	s := NewStore(newSimpleMock(), "idempotency-table", time.Hour)
	assert.Error(t, s.MarkDone(context.Background(), "missing", "{}", http.StatusOK))
}

func TestReplay(t *testing.T) {
	tests := []struct {
		name   string
		rec    IdempotencyRecord
		status int
		body   string
	}{
		{"done with body", IdempotencyRecord{Status: StatusDone, ResponseBody: `{"orderId":"o1"}`, ResponseStatus: http.StatusCreated}, http.StatusCreated, `{"orderId":"o1"}`},
		{"done without body", IdempotencyRecord{Status: StatusDone}, http.StatusOK, ""},
		{"in progress", IdempotencyRecord{Status: StatusInProgress}, http.StatusAccepted, ""},
		{"failed", IdempotencyRecord{Status: StatusFailed}, http.StatusInternalServerError, ""},
		{"unknown", IdempotencyRecord{Status: "??"}, http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.rec.Replay()
			assert.Equal(t, tt.status, r.Status)
			assert.Equal(t, tt.body, string(r.Body))
			if tt.body == "" {
				assert.NotEmpty(t, r.Message)
			}
		})
	}
}

func TestAttributevalueMarshal_Unmarshal(t *testing.T) {
	rec := IdempotencyRecord{
		IdempotencyKey: "k1",
		Status:         StatusInProgress,
		OrderID:        "o1",
		CreatedAt:      time.Now().Round(time.Second),
		UpdatedAt:      time.Now().Round(time.Second),
		ExpiresAt:      time.Now().Add(24 * time.Hour).Unix(),
	}
	m, err := attributevalue.MarshalMap(rec)
	require.NoError(t, err)
	var out IdempotencyRecord
	require.NoError(t, attributevalue.UnmarshalMap(m, &out))
	assert.Equal(t, rec.IdempotencyKey, out.IdempotencyKey)
	assert.True(t, rec.CreatedAt.Equal(out.CreatedAt))
}
