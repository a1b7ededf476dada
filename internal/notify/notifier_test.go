package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/willie84/currencyexchangenetwork/internal/aws"
)

type recordingMirror struct {
	events []aws.LifecycleEvent
	err    error
}

func (m *recordingMirror) PublishLifecycleEvent(ctx context.Context, ev aws.LifecycleEvent) error {
	m.events = append(m.events, ev)
	return m.err
}

func TestNotify_PostsJSONAndMirrors(t *testing.T) {
	var gotBody map[string]interface{}
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	mirror := &recordingMirror{}
	n := New(srv.Client(), map[Event]Target{EventOfferAccepted: {URL: srv.URL}}, mirror)

	err := n.Notify(context.Background(), EventOfferAccepted, Message{
		RequestID: "r1",
		OfferID:   "o1",
		Payload:   map[string]string{"requestId": "r1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	if gotBody["requestId"] != "r1" {
		t.Errorf("body = %v", gotBody)
	}
	if len(mirror.events) != 1 || mirror.events[0].Type != "offer.accepted" || mirror.events[0].OfferID != "o1" {
		t.Errorf("mirror events = %+v", mirror.events)
	}
}

func TestNotify_MissingURL(t *testing.T) {
	n := New(nil, map[Event]Target{EventRequestClosed: {Setting: "N8N_CLOSE_REQUEST_WEBHOOK_URL"}}, nil)

	err := n.Notify(context.Background(), EventRequestClosed, Message{})
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cfgErr.Setting != "N8N_CLOSE_REQUEST_WEBHOOK_URL" {
		t.Errorf("setting = %q", cfgErr.Setting)
	}
}

func TestNotify_Non2xxIsWebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("workflow inactive"))
	}))
	defer srv.Close()

	mirror := &recordingMirror{}
	n := New(srv.Client(), map[Event]Target{EventRequestSubmitted: {URL: srv.URL}}, mirror)

	err := n.Notify(context.Background(), EventRequestSubmitted, Message{Payload: map[string]string{}})
	var whErr *WebhookError
	if !errors.As(err, &whErr) {
		t.Fatalf("expected WebhookError, got %v", err)
	}
	if whErr.StatusCode != http.StatusBadGateway || whErr.Body != "workflow inactive" {
		t.Errorf("unexpected webhook error: %+v", whErr)
	}
	if len(mirror.events) != 0 {
		t.Errorf("failed delivery must not be mirrored")
	}
}

func TestNotify_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	n := New(nil, map[Event]Target{EventOfferCreated: {URL: url}}, nil)
	err := n.Notify(context.Background(), EventOfferCreated, Message{Payload: map[string]string{}})
	if err == nil {
		t.Fatal("expected transport error")
	}
	var whErr *WebhookError
	if errors.As(err, &whErr) {
		t.Fatal("transport failure is not a WebhookError")
	}
}

func TestNotify_MirrorFailureIsIgnored(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	mirror := &recordingMirror{err: errors.New("queue down")}
	n := New(srv.Client(), map[Event]Target{EventRequestClosed: {URL: srv.URL}}, mirror)

	if err := n.Notify(context.Background(), EventRequestClosed, Message{RequestID: "r1", Payload: map[string]string{}}); err != nil {
		t.Fatalf("mirror failure must not fail the notification: %v", err)
	}
}
