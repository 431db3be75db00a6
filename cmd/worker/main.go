package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/imrishuroy/go-storefront/internal/aws"
	"github.com/imrishuroy/go-storefront/internal/config"
	"github.com/imrishuroy/go-storefront/internal/idempotency"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.Config{}.Logger("worker").WithError(err).Fatal("load config")
	}
	log := cfg.Logger("worker")

	clients, err := aws.NewAWSClients(context.Background(), aws.Options{Region: cfg.AWSRegion, Endpoint: cfg.AWSEndpoint})
	if err != nil {
		log.WithError(err).Fatal("failed to init aws clients")
	}

	p := NewProcessor(
		aws.NewMailer(clients.SES, cfg.EmailFrom),
		idempotency.NewStore(clients.DynamoDB, cfg.IdempotencyTable, cfg.IdempotencyTTL),
		log,
	)

	// RUN_LOCAL=true processes one message from LOCAL_SQS_BODY and exits.
	if cfg.RunLocal {
		body := os.Getenv("LOCAL_SQS_BODY")
		if body == "" {
			log.Fatal("LOCAL_SQS_BODY is required when RUN_LOCAL=true")
		}
		resp, err := p.Handle(context.Background(), events.SQSEvent{
			Records: []events.SQSMessage{{MessageId: "local-1", Body: body}},
		})
		if err != nil || len(resp.BatchItemFailures) > 0 {
			log.WithError(err).Fatal("local message failed")
		}
		return
	}

	lambda.Start(p.Handle)
}
