package main

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/imrishuroy/go-storefront/internal/idempotency"
	"github.com/imrishuroy/go-storefront/internal/notify"
)

// Processor sends the emails queued by the API.
type Processor struct {
	sender Sender
	sent   SentLog
	log    logrus.FieldLogger
}

func NewProcessor(sender Sender, sent SentLog, log logrus.FieldLogger) *Processor {
	return &Processor{sender: sender, sent: sent, log: log}
}

// Handle processes an SQS batch and reports failed messages individually so
// only those are redelivered.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.log.WithError(err).WithField("message_id", rec.MessageId).Error("message failed")
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
		}
	}
	return resp, nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	log := p.log.WithField("message_id", rec.MessageId)

	var msg notify.Message
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		// a malformed body never succeeds; retrying only delays the DLQ
		log.WithError(err).Error("dropping undecodable message")
		return nil
	}
	log = log.WithFields(logrus.Fields{"order_id": msg.OrderID, "kind": msg.Kind})

	email, err := notify.Render(msg)
	if err != nil {
		log.WithError(err).Error("dropping unrenderable message")
		return nil
	}

	key := "email:" + msg.Kind + ":" + msg.OrderID
	created, err := p.sent.CreateIfNotExists(ctx, key, msg.OrderID)
	if err != nil {
		return errors.Wrap(err, "record email")
	}
	if !created {
		prev, err := p.sent.Get(ctx, key)
		if err != nil {
			return errors.Wrap(err, "read email record")
		}
		if prev != nil && prev.Status == idempotency.StatusDone {
			log.Info("email already sent")
			return nil
		}
	}

	if err := p.sender.Send(ctx, email); err != nil {
		if merr := p.sent.MarkFailed(ctx, key, err.Error()); merr != nil {
			log.WithError(merr).Warn("mark email failed")
		}
		return err
	}
	if err := p.sent.MarkDone(ctx, key, rec.MessageId, http.StatusOK); err != nil {
		log.WithError(err).Warn("mark email done")
	}
	log.Info("email sent")
	return nil
}
