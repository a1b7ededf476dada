package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/aws/aws-lambda-go/events"

	"github.com/willie84/currencyexchangenetwork/internal/aws"
)

var errMissingType = errors.New("lifecycle event has no type")

// LifecycleCounter records how many events of a type were seen.
type LifecycleCounter interface {
	CountLifecycleEvents(ctx context.Context, eventType string, count int) error
}

// Processor consumes mirrored lifecycle events and turns them into metrics.
type Processor struct {
	metrics LifecycleCounter
}

// NewProcessor creates a new worker processor with the CloudWatch client injected.
func NewProcessor(clients *aws.AWSClients, namespace string) *Processor {
	return &Processor{metrics: aws.NewMetricsEmitter(clients.CloudWatch, namespace)}
}

// Handle decodes the whole batch before emitting anything. A malformed body fails
// the batch so Lambda retries it and, eventually, moves it to the DLQ.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	counts := map[string]int{}
	for _, rec := range ev.Records {
		le, err := decodeEvent(rec)
		if err != nil {
			log.Printf("[worker] message=%s rejected: %v", rec.MessageId, err)
			return err
		}
		log.Printf("[worker] received type=%s request=%s offer=%s", le.Type, le.RequestID, le.OfferID)
		counts[le.Type]++
	}

	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)

	for _, t := range types {
		if err := p.metrics.CountLifecycleEvents(ctx, t, counts[t]); err != nil {
			log.Printf("[worker] emit metric type=%s failed: %v", t, err)
			return err
		}
	}
	return nil
}

func decodeEvent(rec events.SQSMessage) (aws.LifecycleEvent, error) {
	var le aws.LifecycleEvent
	if err := json.Unmarshal([]byte(rec.Body), &le); err != nil {
		return le, fmt.Errorf("invalid message body: %w", err)
	}
	if le.Type == "" {
		return le, errMissingType
	}
	return le, nil
}
