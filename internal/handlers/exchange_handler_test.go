package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/smithy-go"
	"github.com/gin-gonic/gin"

	"github.com/willie84/currencyexchangenetwork/internal/config"
	"github.com/willie84/currencyexchangenetwork/internal/exchange"
	"github.com/willie84/currencyexchangenetwork/internal/notify"
	"github.com/willie84/currencyexchangenetwork/internal/store"
	"github.com/willie84/currencyexchangenetwork/internal/testutil"
)

var tables = config.Tables{
	Requests:      "requests",
	RequestOffers: "request-offers",
	LegacyOffers:  "legacy-offers",
	Responses:     "responses",
}

func init() {
	gin.SetMode(gin.TestMode)
}

func webhook(t *testing.T, status int, body string) string {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func setup(t *testing.T, requestKey string, targets map[notify.Event]notify.Target) (*gin.Engine, *testutil.FakeDynamo) {
	t.Helper()
	fake := testutil.NewFakeDynamo()
	fake.CreateTable(tables.Requests, requestKey, "")
	fake.CreateTable(tables.RequestOffers, "requestId", "offerId")
	fake.CreateTable(tables.LegacyOffers, "uuid", "")
	fake.CreateTable(tables.Responses, "offerUuid", "responseId")

	svc := exchange.NewService(store.NewGateway(fake), notify.New(nil, targets, nil), tables, nil)
	r := NewRouter(HandlerConfig{Service: svc, Presence: map[string]bool{"ZAWS_REGION": true}})
	return r, fake
}

func seed(t *testing.T, fake *testutil.FakeDynamo, table string, item map[string]interface{}) {
	t.Helper()
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		t.Fatalf("marshal seed: %v", err)
	}
	fake.Seed(table, av)
}

func do(r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

const validSubmit = `{"name":"Ada","email":"ada@example.com","phone":"1","needCurrency":"EUR","haveCurrency":"USD","haveAmount":"100"}`

func TestSubmitRequest(t *testing.T) {
	tests := []struct {
		name       string
		target     notify.Target
		body       string
		wantStatus int
		wantError  string
	}{
		{"accepted", notify.Target{URL: webhook(t, http.StatusOK, "ok")}, validSubmit, http.StatusCreated, ""},
		{"webhook rejects", notify.Target{URL: webhook(t, http.StatusBadRequest, "bad payload")}, validSubmit, http.StatusBadGateway, "Webhook request failed"},
		{"missing webhook", notify.Target{}, validSubmit, http.StatusInternalServerError, "Missing request submit webhook URL"},
		{"invalid email", notify.Target{URL: webhook(t, http.StatusOK, "ok")}, strings.Replace(validSubmit, "ada@example.com", "ada.example.com", 1), http.StatusBadRequest, "Missing or invalid fields"},
		{"non numeric amount", notify.Target{URL: webhook(t, http.StatusOK, "ok")}, strings.Replace(validSubmit, `"100"`, `"lots"`, 1), http.StatusBadRequest, "Missing or invalid fields"},
		{"malformed json", notify.Target{URL: webhook(t, http.StatusOK, "ok")}, `{"name":`, http.StatusBadRequest, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := setup(t, "uuid", map[notify.Event]notify.Target{notify.EventRequestSubmitted: tt.target})
			w, body := do(r, http.MethodPost, "/requests", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantError == "" {
				if body["success"] != true {
					t.Fatalf("body = %v", body)
				}
				return
			}
			if body["error"] != tt.wantError {
				t.Fatalf("error = %v, want %q", body["error"], tt.wantError)
			}
		})
	}
}

func TestSubmitRequest_WebhookBodySurfaced(t *testing.T) {
	r, _ := setup(t, "uuid", map[notify.Event]notify.Target{
		notify.EventRequestSubmitted: {URL: webhook(t, http.StatusInternalServerError, "workflow exploded")},
	})
	_, body := do(r, http.MethodPost, "/requests", validSubmit)
	if body["details"] != "workflow exploded" {
		t.Fatalf("details = %v", body["details"])
	}
}

func TestRespond_MissingResponderEmailWritesNothing(t *testing.T) {
	r, fake := setup(t, "uuid", map[notify.Event]notify.Target{
		notify.EventOfferCreated: {URL: webhook(t, http.StatusOK, "ok")},
	})
	w, body := do(r, http.MethodPost, "/requests/r1/offers", `{"responder":{"name":"Bob","phone":"1"},"offerAmount":10}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	fields, _ := body["fields"].(map[string]interface{})
	if _, ok := fields["responder.email"]; !ok {
		t.Fatalf("fields = %v", body["fields"])
	}
	if fake.Calls["PutItem"] != 0 {
		t.Fatal("no write expected")
	}
}

func TestRespond_Created(t *testing.T) {
	r, fake := setup(t, "uuid", map[notify.Event]notify.Target{
		notify.EventOfferCreated: {URL: webhook(t, http.StatusOK, "ok")},
	})
	w, body := do(r, http.MethodPost, "/requests/r1/offers", `{"responder":{"name":"Bob","email":"b@x.io","phone":"1"},"offerAmount":"12.5"}`)
	if w.Code != http.StatusCreated || body["success"] != true || body["offerId"] == "" {
		t.Fatalf("status = %d body = %v", w.Code, body)
	}
	if len(fake.Items(tables.RequestOffers)) != 1 {
		t.Fatal("offer not stored")
	}

	req := httptest.NewRequest(http.MethodGet, "/requests/r1/offers", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var offers []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &offers); err != nil {
		t.Fatalf("decode offers: %v", err)
	}
	if len(offers) != 1 || offers[0]["offerAmount"] != 12.5 {
		t.Fatalf("offers = %v", offers)
	}
}

func TestListRequests_IncludesClosed(t *testing.T) {
	r, fake := setup(t, "uuid", nil)
	seed(t, fake, tables.Requests, map[string]interface{}{"uuid": "a", "status": "open"})
	seed(t, fake, tables.Requests, map[string]interface{}{"uuid": "b", "status": "closed"})

	req := httptest.NewRequest(http.MethodGet, "/requests", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var recs []map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &recs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w.Code != http.StatusOK || len(recs) != 2 || recs[1]["status"] != "closed" {
		t.Fatalf("status = %d recs = %v", w.Code, recs)
	}
}

func TestListRequests_StoreErrorPassesMessage(t *testing.T) {
	r, fake := setup(t, "uuid", nil)
	fake.Errors["Scan"] = &smithy.GenericAPIError{Code: "ResourceNotFoundException", Message: "Requested resource not found"}

	w, body := do(r, http.MethodGet, "/requests", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if body["error"] != "Failed to fetch requests" || body["details"] != "Requested resource not found" {
		t.Fatalf("body = %v", body)
	}
}

func TestWrongMethod(t *testing.T) {
	r, _ := setup(t, "uuid", nil)
	for _, tc := range []struct{ method, path string }{
		{http.MethodDelete, "/requests"},
		{http.MethodGet, "/requests/r1/close"},
		{http.MethodPut, "/offers/u1/complete"},
	} {
		w, body := do(r, tc.method, tc.path, "")
		if w.Code != http.StatusMethodNotAllowed || body["error"] != "Method not allowed" {
			t.Fatalf("%s %s: status = %d body = %v", tc.method, tc.path, w.Code, body)
		}
	}
}

func TestClose_ReportsKeyUsed(t *testing.T) {
	r, fake := setup(t, "requestId", map[notify.Event]notify.Target{
		notify.EventRequestClosed: {URL: webhook(t, http.StatusOK, "ok")},
	})
	seed(t, fake, tables.Requests, map[string]interface{}{"requestId": "r1"})
	seed(t, fake, tables.RequestOffers, map[string]interface{}{"requestId": "r1", "offerId": "o1", "responderEmail": "b@x.io"})

	w, body := do(r, http.MethodPost, "/requests/r1/close", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	if body["keyUsed"] != "requestId" || body["emailsCount"] != float64(1) || body["success"] != true {
		t.Fatalf("body = %v", body)
	}
}

func TestClose_MissingWebhook(t *testing.T) {
	r, _ := setup(t, "uuid", nil)
	w, body := do(r, http.MethodPost, "/requests/r1/close", "")
	if w.Code != http.StatusInternalServerError || body["error"] != "Missing close request webhook URL" {
		t.Fatalf("status = %d body = %v", w.Code, body)
	}
}

func TestAccept(t *testing.T) {
	r, fake := setup(t, "uuid", map[notify.Event]notify.Target{
		notify.EventOfferAccepted: {URL: webhook(t, http.StatusOK, "ok")},
	})

	w, body := do(r, http.MethodPost, "/requests/r1/offers/o1/accept", "")
	if w.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("empty body: status = %d body = %v", w.Code, body)
	}
	w, _ = do(r, http.MethodPost, "/requests/r1/offers/o1/accept", `{"offer":{"offerAmount":5}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("with offer: status = %d", w.Code)
	}
	w, body = do(r, http.MethodPost, "/requests/r1/offers/o1/accept", `{"offer":`)
	if w.Code != http.StatusBadRequest || body["error"] != "Invalid request body" {
		t.Fatalf("malformed: status = %d body = %v", w.Code, body)
	}
	if fake.Calls["UpdateItem"] != 2 {
		t.Fatalf("updates = %d", fake.Calls["UpdateItem"])
	}
}

func TestCompleteOffer(t *testing.T) {
	r, _ := setup(t, "uuid", nil)

	w, body := do(r, http.MethodPost, "/offers/u1/complete", `{"uuid":"u2"}`)
	if w.Code != http.StatusBadRequest || body["error"] != "Invalid UUID" {
		t.Fatalf("mismatch: status = %d body = %v", w.Code, body)
	}
	w, body = do(r, http.MethodPost, "/offers/u1/complete", `{"uuid":"u1"}`)
	if w.Code != http.StatusOK || body["message"] != "Offer marked as complete" {
		t.Fatalf("status = %d body = %v", w.Code, body)
	}
}

func TestOfferResponses(t *testing.T) {
	r, _ := setup(t, "uuid", nil)

	w, _ := do(r, http.MethodPost, "/offers/u1/responses", `{"responder":{"name":"Bob","email":"b@x.io","phone":"1"},"offerAmount":"10"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("string amount: status = %d", w.Code)
	}
	w, body := do(r, http.MethodPost, "/offers/u1/responses", `{"responder":{"name":"Bob","email":"b@x.io","phone":"1"},"offerAmount":10}`)
	if w.Code != http.StatusCreated || body["responseId"] == nil {
		t.Fatalf("status = %d body = %v", w.Code, body)
	}

	req := httptest.NewRequest(http.MethodGet, "/offers/u1/responses", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var recs []map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &recs)
	if len(recs) != 1 || recs[0]["responseId"] != body["responseId"] {
		t.Fatalf("responses = %v", recs)
	}
}

func TestHealthReportsPresenceOnly(t *testing.T) {
	r, _ := setup(t, "uuid", nil)
	w, body := do(r, http.MethodGet, "/health", "")
	env, _ := body["env"].(map[string]interface{})
	if w.Code != http.StatusOK || body["ok"] != true || env["ZAWS_REGION"] != true {
		t.Fatalf("status = %d body = %v", w.Code, body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := setup(t, "uuid", nil)
	do(r, http.MethodGet, "/health", "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "exchange_http_requests_total") {
		t.Fatalf("status = %d", w.Code)
	}
}
