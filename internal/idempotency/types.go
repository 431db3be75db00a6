package idempotency

import (
	"net/http"
	"time"
)

// Status values for idempotency entries
const (
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusFailed     = "FAILED"
)

// IdempotencyRecord is the shape persisted in the idempotency table. Checkout
// keys and processor event ids share the table; event ids are prefixed "evt:".
type IdempotencyRecord struct {
	IdempotencyKey string    `dynamodbav:"idempotency_key"` // PK
	Status         string    `dynamodbav:"status"`
	OrderID        string    `dynamodbav:"order_id,omitempty"`
	ResponseBody   string    `dynamodbav:"response_body,omitempty"`
	ResponseStatus int       `dynamodbav:"response_status,omitempty"`
	CreatedAt      time.Time `dynamodbav:"created_at"`
	UpdatedAt      time.Time `dynamodbav:"updated_at"`
	ExpiresAt      int64     `dynamodbav:"expires_at"` // TTL epoch seconds
	Note           string    `dynamodbav:"note,omitempty"`
}

// Replay is the response owed to a repeated request.
type Replay struct {
	Status int
	// Body is the stored JSON response; nil when Message should be sent instead.
	Body    []byte
	Message string
}

// Replay decides what a duplicate request gets: the stored response once the
// first attempt is done, 202 while it runs, 500 when it failed.
func (r IdempotencyRecord) Replay() Replay {
	switch r.Status {
	case StatusDone:
		status := r.ResponseStatus
		if status == 0 {
			status = http.StatusOK
		}
		if r.ResponseBody != "" {
			return Replay{Status: status, Body: []byte(r.ResponseBody)}
		}
		return Replay{Status: status, Message: "request already completed"}
	case StatusInProgress:
		return Replay{Status: http.StatusAccepted, Message: "request already in progress"}
	case StatusFailed:
		return Replay{Status: http.StatusInternalServerError, Message: "previous attempt failed"}
	default:
		return Replay{Status: http.StatusInternalServerError, Message: "unknown idempotency status"}
	}
}
