package validation

import (
	"encoding/json"
	"testing"
)

func decode(t *testing.T, body string, out interface{}) {
	t.Helper()
	if err := json.Unmarshal([]byte(body), out); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
}

func TestSubmitRequestPayload_Valid(t *testing.T) {
	v := New()

	for _, body := range []string{
		`{"name":"Ada","email":"ada@example.com","phone":"+1","needCurrency":"EUR","haveCurrency":"USD","haveAmount":100}`,
		`{"name":"Ada","email":"ada@example.com","phone":"+1","needCurrency":"EUR","haveCurrency":"USD","haveAmount":" 12.5 "}`,
	} {
		var req SubmitRequestPayload
		decode(t, body, &req)
		if err := v.Struct(req); err != nil {
			t.Fatalf("expected valid for %s, got error: %v", body, err)
		}
	}
}

func TestSubmitRequestPayload_FieldErrors(t *testing.T) {
	v := New()

	var req SubmitRequestPayload
	decode(t, `{"name":"Ada","email":"not-an-email","needCurrency":"EUR","haveCurrency":"USD","haveAmount":"lots"}`, &req)

	err := v.Struct(req)
	if err == nil {
		t.Fatal("expected validation errors, got nil")
	}
	fields := FieldErrors(err)
	want := map[string]string{
		"email":      "must be a valid email address",
		"phone":      "is required",
		"haveAmount": "must be a finite number",
	}
	for k, msg := range want {
		if fields[k] != msg {
			t.Errorf("fields[%q] = %q, want %q (all: %v)", k, fields[k], msg, fields)
		}
	}
	if _, ok := fields["name"]; ok {
		t.Errorf("name is valid and should not be reported")
	}
}

func TestSubmitRequestPayload_MissingAmount(t *testing.T) {
	v := New()

	var req SubmitRequestPayload
	decode(t, `{"name":"Ada","email":"ada@example.com","phone":"1","needCurrency":"EUR","haveCurrency":"USD"}`, &req)
	fields := FieldErrors(v.Struct(req))
	if fields["haveAmount"] != "is required" {
		t.Fatalf("fields = %v", fields)
	}
}

func TestOfferPayload_NestedResponder(t *testing.T) {
	v := New()

	var req OfferPayload
	decode(t, `{"responder":{"name":"Bob","phone":"2"},"offerAmount":50}`, &req)
	fields := FieldErrors(v.Struct(req))
	if fields["responder.email"] != "is required" {
		t.Fatalf("fields = %v", fields)
	}

	var missing OfferPayload
	decode(t, `{"offerAmount":50}`, &missing)
	if FieldErrors(v.Struct(missing))["responder"] != "is required" {
		t.Fatal("expected responder to be required")
	}
}

func TestResponsePayload_ZeroAmountIsAllowed(t *testing.T) {
	v := New()

	var req ResponsePayload
	decode(t, `{"responder":{"name":"Bob","email":"b@c.de","phone":"2"},"offerAmount":0}`, &req)
	if err := v.Struct(req); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}

func TestIsEmail(t *testing.T) {
	cases := map[string]bool{
		"a@b.co":         true,
		"first.last@x.y": true,
		"a@b":            false,
		"a b@c.de":       false,
		"@c.de":          false,
		"":               false,
	}
	for in, want := range cases {
		if got := IsEmail(in); got != want {
			t.Errorf("IsEmail(%q) = %v, want %v", in, got, want)
		}
	}
}
