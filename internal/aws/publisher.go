package aws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// LifecycleEvent is the message mirrored to SQS after a webhook accepted a lifecycle notification.
type LifecycleEvent struct {
	Type       string `json:"type"`
	RequestID  string `json:"requestId,omitempty"`
	OfferID    string `json:"offerId,omitempty"`
	OccurredAt string `json:"occurredAt"`
}

// Publisher wraps an SQS client and a queue URL.
type Publisher struct {
	SQS      SQSAPI
	QueueURL string
}

// NewPublisher returns a Publisher bound to a queue URL.
func NewPublisher(sqsClient SQSAPI, queueURL string) *Publisher {
	return &Publisher{
		SQS:      sqsClient,
		QueueURL: queueURL,
	}
}

// PublishLifecycleEvent sends the event as a JSON body. The event type and ids are also
// sent as message attributes so consumers can filter without decoding the body.
func (p *Publisher) PublishLifecycleEvent(ctx context.Context, ev LifecycleEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal lifecycle event: %w", err)
	}

	attributes := map[string]string{"event_type": ev.Type}
	if ev.RequestID != "" {
		attributes["request_id"] = ev.RequestID
	}
	if ev.OfferID != "" {
		attributes["offer_id"] = ev.OfferID
	}
	return p.sendMessage(ctx, string(body), attributes)
}

func (p *Publisher) sendMessage(ctx context.Context, messageBody string, attributes map[string]string) error {
	input := &sqs.SendMessageInput{
		QueueUrl:    &p.QueueURL,
		MessageBody: &messageBody,
	}
	if len(attributes) > 0 {
		msgAttrs := map[string]sqstypes.MessageAttributeValue{}
		for k, v := range attributes {
			// using string type for all attrs
			msgAttrs[k] = sqstypes.MessageAttributeValue{
				DataType:    awsString("String"),
				StringValue: awsString(v),
			}
		}
		input.MessageAttributes = msgAttrs
	}

	_, err := p.SQS.SendMessage(ctx, input)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// awsString helper
func awsString(s string) *string { return &s }
