package main

import (
	"context"
	"log"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"github.com/willie84/currencyexchangenetwork/internal/aws"
	"github.com/willie84/currencyexchangenetwork/internal/config"
	"github.com/willie84/currencyexchangenetwork/internal/exchange"
	"github.com/willie84/currencyexchangenetwork/internal/handlers"
	"github.com/willie84/currencyexchangenetwork/internal/notify"
	"github.com/willie84/currencyexchangenetwork/internal/store"
)

func webhookTargets(w config.Webhooks) map[notify.Event]notify.Target {
	return map[notify.Event]notify.Target{
		notify.EventRequestSubmitted: {URL: w.Submit, Setting: config.EnvSubmitWebhook},
		notify.EventOfferCreated:     {URL: w.OfferCreated, Setting: config.EnvOfferCreatedWebhook},
		notify.EventOfferAccepted:    {URL: w.Accept, Setting: config.EnvAcceptWebhook},
		notify.EventRequestClosed:    {URL: w.Close, Setting: config.EnvCloseWebhook},
	}
}

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

	// the mirror stays a nil interface unless a queue is configured
	var mirror notify.LifecyclePublisher
	if cfg.LifecycleQueueURL != "" {
		mirror = aws.NewPublisher(clients.SQS, cfg.LifecycleQueueURL)
	}
	notifier := notify.New(&http.Client{Timeout: cfg.WebhookTimeout}, webhookTargets(cfg.Webhooks), mirror)

	svc := exchange.NewService(store.NewGateway(clients.DynamoDB), notifier, cfg.Tables, cfg.RequestKeyNames)
	r := handlers.NewRouter(handlers.HandlerConfig{Service: svc, Presence: cfg.Presence})

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if cfg.RunLocal {
		log.Printf("running local server on %s", cfg.Addr)
		if err := r.Run(cfg.Addr); err != nil {
			log.Fatalf("failed to run local server: %v", err)
		}
		return
	}

	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
