package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultRequestsTable      = "FlowExOffers"
	DefaultRequestOffersTable = "CurrencyExchangeRequestOffers"
	DefaultResponsesTable     = "FlowExOfferResponses"
)

// DefaultRequestKeyNames is the ordered list of primary key names tried against the requests table.
var DefaultRequestKeyNames = []string{"uuid", "requestId"}

// Env var names for the webhook targets.
const (
	EnvSubmitWebhook       = "N8N_REQUEST_SUBMIT_WEBHOOK_URL"
	EnvOfferCreatedWebhook = "N8N_OFFER_CREATED_WEBHOOK_URL"
	EnvAcceptWebhook       = "N8N_ACCEPT_OFFER_WEBHOOK_URL"
	EnvCloseWebhook        = "N8N_CLOSE_REQUEST_WEBHOOK_URL"
)

// healthKeys are reported by /health as present/absent. Values are never exposed.
var healthKeys = []string{
	"ZAWS_REGION",
	"ZAWS_ACCESS_KEY_ID",
	"ZAWS_SECRET_ACCESS_KEY",
	"DYNAMODB_TABLE_NAME",
	"DYNAMODB_REQUEST_OFFERS_TABLE_NAME",
	EnvSubmitWebhook,
	EnvOfferCreatedWebhook,
	EnvAcceptWebhook,
	EnvCloseWebhook,
}

type Tables struct {
	Requests      string
	RequestOffers string
	LegacyOffers  string
	Responses     string
}

type Webhooks struct {
	Submit       string
	OfferCreated string
	Accept       string
	Close        string
}

type Config struct {
	Addr     string
	RunLocal bool

	Region           string
	AccessKeyID      string
	SecretAccessKey  string
	EndpointOverride string

	Tables          Tables
	RequestKeyNames []string

	Webhooks       Webhooks
	WebhookTimeout time.Duration

	LifecycleQueueURL string
	MetricsNamespace  string

	// Presence records which health-reported variables were set at load time.
	Presence map[string]bool
}

func Load() Config {
	return Config{
		Addr:     getenv("API_ADDR", ":8080"),
		RunLocal: os.Getenv("RUN_LOCAL") == "true",

		Region:           firstenv("us-east-1", "ZAWS_REGION", "AWS_REGION"),
		AccessKeyID:      firstenv("", "ZAWS_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"),
		SecretAccessKey:  firstenv("", "ZAWS_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"),
		EndpointOverride: getenv("AWS_ENDPOINT_OVERRIDE", ""),

		Tables: Tables{
			Requests:      firstenv(DefaultRequestsTable, "DYNAMODB_REQUESTS_TABLE_NAME", "DYNAMODB_TABLE_NAME"),
			RequestOffers: getenv("DYNAMODB_REQUEST_OFFERS_TABLE_NAME", DefaultRequestOffersTable),
			LegacyOffers:  getenv("DYNAMODB_TABLE_NAME", DefaultRequestsTable),
			Responses:     getenv("DYNAMODB_RESPONSES_TABLE_NAME", DefaultResponsesTable),
		},
		RequestKeyNames: getenvList("REQUEST_KEY_NAMES", DefaultRequestKeyNames),

		// no defaults: a missing webhook fails the operation that needs it
		Webhooks: Webhooks{
			Submit:       os.Getenv(EnvSubmitWebhook),
			OfferCreated: os.Getenv(EnvOfferCreatedWebhook),
			Accept:       os.Getenv(EnvAcceptWebhook),
			Close:        os.Getenv(EnvCloseWebhook),
		},
		WebhookTimeout: time.Duration(getenvInt("WEBHOOK_TIMEOUT_SECONDS", 0)) * time.Second,

		LifecycleQueueURL: getenv("LIFECYCLE_EVENTS_QUEUE_URL", ""),
		MetricsNamespace:  getenv("CLOUDWATCH_NAMESPACE", "CurrencyExchangeNetwork"),

		Presence: presence(healthKeys),
	}
}

func presence(keys []string) map[string]bool {
	out := make(map[string]bool, len(keys))
	for _, k := range keys {
		out[k] = os.Getenv(k) != ""
	}
	return out
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func firstenv(fallback string, keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), fallback...)
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}
