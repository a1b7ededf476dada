package notify

import "fmt"

// ConfigurationError means the webhook for an event has no URL configured.
type ConfigurationError struct {
	Event   Event
	Setting string
}

func (e *ConfigurationError) Error() string {
	if e.Setting == "" {
		return fmt.Sprintf("missing webhook URL for %s", e.Event)
	}
	return fmt.Sprintf("missing webhook URL for %s (%s)", e.Event, e.Setting)
}

// WebhookError is a non-2xx reply from the automation endpoint.
type WebhookError struct {
	Event      Event
	StatusCode int
	Body       string
}

func (e *WebhookError) Error() string {
	return fmt.Sprintf("%s webhook returned %d: %s", e.Event, e.StatusCode, e.Body)
}
