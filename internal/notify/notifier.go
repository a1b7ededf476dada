// Package notify posts lifecycle events to the external automation webhooks.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/willie84/currencyexchangenetwork/internal/aws"
)

// Event names a lifecycle event. Each event has its own webhook.
type Event string

const (
	EventRequestSubmitted Event = "request.submitted"
	EventOfferCreated     Event = "offer.created"
	EventOfferAccepted    Event = "offer.accepted"
	EventRequestClosed    Event = "request.closed"
)

// maxBodyBytes caps how much of a failed webhook reply is kept for diagnosis.
const maxBodyBytes = 64 << 10

// Target is a webhook URL together with the setting that configures it.
type Target struct {
	URL     string
	Setting string
}

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// LifecyclePublisher mirrors delivered events, e.g. to SQS.
type LifecyclePublisher interface {
	PublishLifecycleEvent(ctx context.Context, ev aws.LifecycleEvent) error
}

// Message is one notification: the webhook body plus the ids used for the mirrored event.
type Message struct {
	RequestID string
	OfferID   string
	Payload   interface{}
}

// Notifier posts JSON payloads to per-event webhook URLs. It never retries.
type Notifier struct {
	client  HTTPDoer
	targets map[Event]Target
	mirror  LifecyclePublisher
	nowFunc func() time.Time
}

// New returns a Notifier. mirror may be nil.
func New(client HTTPDoer, targets map[Event]Target, mirror LifecyclePublisher) *Notifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &Notifier{
		client:  client,
		targets: targets,
		mirror:  mirror,
		nowFunc: time.Now,
	}
}

// Configured reports whether ev has a webhook URL.
func (n *Notifier) Configured(ev Event) error {
	t := n.targets[ev]
	if t.URL == "" {
		return &ConfigurationError{Event: ev, Setting: t.Setting}
	}
	return nil
}

// Notify posts msg.Payload to the webhook for ev. A missing URL is a ConfigurationError,
// a non-2xx reply is a WebhookError carrying the reply body.
func (n *Notifier) Notify(ctx context.Context, ev Event, msg Message) error {
	if err := n.Configured(ev); err != nil {
		return err
	}
	target := n.targets[ev]

	body, err := json.Marshal(msg.Payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", ev, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s webhook request: %w", ev, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s webhook: %w", ev, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		return &WebhookError{Event: ev, StatusCode: resp.StatusCode, Body: string(text)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	n.publish(ctx, ev, msg)
	return nil
}

// publish mirrors a delivered event. Failures are logged only.
func (n *Notifier) publish(ctx context.Context, ev Event, msg Message) {
	if n.mirror == nil {
		return
	}
	le := aws.LifecycleEvent{
		Type:       string(ev),
		RequestID:  msg.RequestID,
		OfferID:    msg.OfferID,
		OccurredAt: n.nowFunc().UTC().Format("2006-01-02T15:04:05.000Z"),
	}
	if err := n.mirror.PublishLifecycleEvent(ctx, le); err != nil {
		log.Printf("[notify] mirror %s request=%s failed: %v", ev, msg.RequestID, err)
	}
}
