package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/willie84/currencyexchangenetwork/internal/aws"
	"github.com/willie84/currencyexchangenetwork/internal/config"
)

func main() {
	cfg := config.Load()

	clients, err := aws.NewAWSClients(context.Background(), aws.ConfigOptions{
		Region:           cfg.Region,
		AccessKeyID:      cfg.AccessKeyID,
		SecretAccessKey:  cfg.SecretAccessKey,
		EndpointOverride: cfg.EndpointOverride,
	})
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	p := NewProcessor(clients, cfg.MetricsNamespace)

	// RUN_LOCAL=true feeds a single simulated SQS message through the handler.
	if cfg.RunLocal {
		testBody := os.Getenv("LOCAL_SQS_BODY")
		if testBody == "" {
			testBody = `{"type":"request.closed","requestId":"local-request-1","occurredAt":"2024-01-01T00:00:00.000Z"}`
		}
		event := events.SQSEvent{
			Records: []events.SQSMessage{
				{MessageId: "local-1", Body: testBody},
			},
		}
		if err := p.Handle(context.Background(), event); err != nil {
			log.Fatalf("local handler error: %v", err)
		}
		return
	}

	lambda.Start(p.Handle)
}
