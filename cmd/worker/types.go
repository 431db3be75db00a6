package main

import (
	"context"

	"github.com/imrishuroy/go-storefront/internal/aws"
	"github.com/imrishuroy/go-storefront/internal/idempotency"
)

// Sender delivers a rendered email; aws.Mailer in production.
type Sender interface {
	Send(ctx context.Context, e aws.Email) error
}

// SentLog records which emails already went out so SQS redeliveries do not
// send twice; idempotency.Store in production.
type SentLog interface {
	CreateIfNotExists(ctx context.Context, key, orderID string) (bool, error)
	Get(ctx context.Context, key string) (*idempotency.IdempotencyRecord, error)
	MarkDone(ctx context.Context, key, responseBody string, responseStatus int) error
	MarkFailed(ctx context.Context, key, note string) error
}
