// Package exchange implements the request lifecycle: submit, list, offer, accept, close,
// plus the legacy offers-table operations.
package exchange

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/willie84/currencyexchangenetwork/internal/config"
	"github.com/willie84/currencyexchangenetwork/internal/normalize"
	"github.com/willie84/currencyexchangenetwork/internal/notify"
	"github.com/willie84/currencyexchangenetwork/internal/store"
	"github.com/willie84/currencyexchangenetwork/internal/validation"
)

// RecordStore is the store gateway as used by the service.
type RecordStore interface {
	Get(ctx context.Context, table string, key store.Key) (store.Record, error)
	Put(ctx context.Context, table string, item interface{}) error
	Update(ctx context.Context, table string, key store.Key, fields store.Record) error
	Query(ctx context.Context, table, partitionKey, value string) ([]store.Record, error)
	Scan(ctx context.Context, table string) ([]store.Record, error)
}

// EventNotifier delivers lifecycle notifications.
type EventNotifier interface {
	Configured(ev notify.Event) error
	Notify(ctx context.Context, ev notify.Event, msg notify.Message) error
}

// Service holds no per-call state; one instance serves every request.
type Service struct {
	store    RecordStore
	notifier EventNotifier
	tables   config.Tables
	keyNames []string // candidate primary key names of the requests table, in order
	newID    func() string
	nowFunc  func() time.Time
}

// NewService wires the workflow. keyNames is the ordered list of key names tried
// against the requests table; empty means config.DefaultRequestKeyNames.
func NewService(s RecordStore, n EventNotifier, tables config.Tables, keyNames []string) *Service {
	if len(keyNames) == 0 {
		keyNames = config.DefaultRequestKeyNames
	}
	return &Service{
		store:    s,
		notifier: n,
		tables:   tables,
		keyNames: append([]string(nil), keyNames...),
		newID:    uuid.NewString,
		nowFunc:  time.Now,
	}
}

func (s *Service) now() string {
	return s.nowFunc().UTC().Format(normalize.ISOLayout)
}

// SubmitRequest forwards a new exchange request to the submit webhook. Nothing is
// written here; the automation behind the webhook creates the record.
func (s *Service) SubmitRequest(ctx context.Context, p validation.SubmitRequestPayload) error {
	payload := SubmittedRequest{
		Name:         p.Name,
		Email:        p.Email,
		Phone:        p.Phone,
		NeedCurrency: p.NeedCurrency,
		HaveCurrency: p.HaveCurrency,
		HaveAmount:   p.HaveAmount.Float64(),
		CreatedAt:    s.now(),
	}

	if err := s.notifier.Notify(ctx, notify.EventRequestSubmitted, notify.Message{Payload: payload}); err != nil {
		log.Printf("[exchange] submit request email=%s failed: %v", p.Email, err)
		return err
	}
	return nil
}

// ListRequests returns every stored request, normalized, in store order.
// Closed requests are included; filtering is left to the client.
func (s *Service) ListRequests(ctx context.Context) ([]store.Record, error) {
	recs, err := s.store.Scan(ctx, s.tables.Requests)
	if err != nil {
		log.Printf("[exchange] list requests failed: %v", err)
		return nil, err
	}
	out := make([]store.Record, 0, len(recs))
	for _, rec := range recs {
		out = append(out, normalize.Request(rec))
	}
	return out, nil
}

// ListRequestOffers returns the raw offers made against requestID.
func (s *Service) ListRequestOffers(ctx context.Context, requestID string) ([]store.Record, error) {
	if requestID == "" {
		return nil, &ValidationError{Field: "requestId", Message: "Missing requestId"}
	}
	recs, err := s.store.Query(ctx, s.tables.RequestOffers, "requestId", requestID)
	if err != nil {
		log.Printf("[exchange] list offers request=%s failed: %v", requestID, err)
		return nil, err
	}
	return recs, nil
}

// RespondToRequest stores a new offer and then notifies the offer-created webhook with
// the requester's contact details when the request can be found. A notification
// failure is returned but the offer stays written.
func (s *Service) RespondToRequest(ctx context.Context, requestID string, p validation.OfferPayload) (RequestOffer, error) {
	if requestID == "" {
		return RequestOffer{}, &ValidationError{Field: "requestId", Message: "Missing requestId"}
	}

	offer := RequestOffer{
		RequestID:      requestID,
		OfferID:        s.newID(),
		OfferAmount:    p.OfferAmount.Float64(),
		NeedCurrency:   strOrNil(p.NeedCurrency),
		HaveCurrency:   strOrNil(p.HaveCurrency),
		ResponderName:  p.Responder.Name,
		ResponderEmail: p.Responder.Email,
		ResponderPhone: p.Responder.Phone,
		CreatedAt:      s.now(),
	}
	if err := s.store.Put(ctx, s.tables.RequestOffers, offer); err != nil {
		log.Printf("[exchange] put offer request=%s failed: %v", requestID, err)
		return RequestOffer{}, err
	}

	rec, err := s.findRequest(ctx, requestID, s.keyNames)
	if err != nil {
		log.Printf("[exchange] load request=%s for offer=%s failed: %v", requestID, offer.OfferID, err)
		return offer, err
	}

	payload := offerCreatedPayload{
		Offer:       offer,
		OfferAmount: offer.OfferAmount,
		Responder: responderContact{
			Name:  offer.ResponderName,
			Email: offer.ResponderEmail,
			Phone: offer.ResponderPhone,
		},
		Requester: requesterOrNil(rec),
	}
	msg := notify.Message{RequestID: requestID, OfferID: offer.OfferID, Payload: payload}
	if err := s.notifier.Notify(ctx, notify.EventOfferCreated, msg); err != nil {
		log.Printf("[exchange] notify offer=%s request=%s failed after write: %v", offer.OfferID, requestID, err)
		return offer, err
	}
	return offer, nil
}

// AcceptOffer marks an offer accepted and notifies the accept webhook. The acceptance
// stays committed when the notification fails.
func (s *Service) AcceptOffer(ctx context.Context, requestID, offerID string, offer interface{}) error {
	if requestID == "" || offerID == "" {
		return &ValidationError{Field: "offerId", Message: "Missing requestId or offerId"}
	}

	key := store.Key{"requestId": requestID, "offerId": offerID}
	fields := store.Record{"accepted": true, "acceptedAt": s.now()}
	if err := s.store.Update(ctx, s.tables.RequestOffers, key, fields); err != nil {
		log.Printf("[exchange] accept offer=%s request=%s failed: %v", offerID, requestID, err)
		return err
	}

	rec, err := s.findRequest(ctx, requestID, s.keyNames)
	if err != nil {
		log.Printf("[exchange] load request=%s for accepted offer=%s failed: %v", requestID, offerID, err)
		return err
	}

	payload := offerAcceptedPayload{
		RequestID: requestID,
		OfferID:   offerID,
		Request:   normalize.RequesterOf(rec),
		Offer:     offer,
	}
	msg := notify.Message{RequestID: requestID, OfferID: offerID, Payload: payload}
	if err := s.notifier.Notify(ctx, notify.EventOfferAccepted, msg); err != nil {
		log.Printf("[exchange] notify accepted offer=%s request=%s failed after write: %v", offerID, requestID, err)
		return err
	}
	return nil
}

// CloseRequest marks a request closed and tells the close webhook which responders to email.
//
// The update is tried with each candidate key name in order; only a key schema mismatch
// moves on to the next name. Closing twice re-applies the update and notifies again.
func (s *Service) CloseRequest(ctx context.Context, requestID string) (CloseResult, error) {
	if requestID == "" {
		return CloseResult{}, &ValidationError{Field: "requestId", Message: "Missing requestId"}
	}

	keyUsed, err := s.closeWithFallback(ctx, requestID)
	if err != nil {
		return CloseResult{}, err
	}

	offers, err := s.store.Query(ctx, s.tables.RequestOffers, "requestId", requestID)
	if err != nil {
		log.Printf("[exchange] list offers for closed request=%s failed: %v", requestID, err)
		return CloseResult{}, err
	}
	emails := distinctEmails(offers)

	if err := s.notifier.Configured(notify.EventRequestClosed); err != nil {
		return CloseResult{}, err
	}

	rec, err := s.findRequest(ctx, requestID, preferKey(s.keyNames, keyUsed))
	if err != nil {
		log.Printf("[exchange] load closed request=%s failed: %v", requestID, err)
		return CloseResult{}, err
	}

	payload := requestClosedPayload{
		RequestID: requestID,
		Emails:    emails,
		Requester: requesterOrNil(rec),
	}
	if err := s.notifier.Notify(ctx, notify.EventRequestClosed, notify.Message{RequestID: requestID, Payload: payload}); err != nil {
		log.Printf("[exchange] notify closed request=%s failed after write: %v", requestID, err)
		return CloseResult{}, err
	}

	return CloseResult{KeyUsed: keyUsed, EmailsCount: len(emails)}, nil
}

// closeWithFallback returns the key name that matched. On failure the first error is
// returned since it describes the primary key name.
func (s *Service) closeWithFallback(ctx context.Context, requestID string) (string, error) {
	fields := store.Record{"status": normalize.StatusClosed, "closedAt": s.now()}

	var firstErr error
	for _, name := range s.keyNames {
		err := s.store.Update(ctx, s.tables.Requests, store.Key{name: requestID}, fields)
		if err == nil {
			return name, nil
		}
		if firstErr == nil {
			firstErr = err
		}
		if !errors.Is(err, store.ErrKeySchemaMismatch) {
			log.Printf("[exchange] close request=%s key=%s failed: %v", requestID, name, err)
			return "", firstErr
		}
		log.Printf("[exchange] close request=%s key=%s does not match schema", requestID, name)
	}
	return "", firstErr
}

// CompleteOffer marks a legacy offer completed. The path and body identifiers must agree.
func (s *Service) CompleteOffer(ctx context.Context, pathUUID, bodyUUID string) error {
	if pathUUID == "" || pathUUID != bodyUUID {
		return &ValidationError{Field: "uuid", Message: "Invalid UUID"}
	}
	fields := store.Record{"status": normalize.StatusCompleted, "completedAt": s.now()}
	if err := s.store.Update(ctx, s.tables.LegacyOffers, store.Key{"uuid": pathUUID}, fields); err != nil {
		log.Printf("[exchange] complete offer=%s failed: %v", pathUUID, err)
		return err
	}
	return nil
}

// ListLegacyOffers scans the older offers table and normalizes each record.
func (s *Service) ListLegacyOffers(ctx context.Context) ([]store.Record, error) {
	recs, err := s.store.Scan(ctx, s.tables.LegacyOffers)
	if err != nil {
		log.Printf("[exchange] list legacy offers failed: %v", err)
		return nil, err
	}
	out := make([]store.Record, 0, len(recs))
	for _, rec := range recs {
		out = append(out, normalize.Offer(rec))
	}
	return out, nil
}

// ListOfferResponses returns the responses recorded against a legacy offer.
func (s *Service) ListOfferResponses(ctx context.Context, offerUUID string) ([]store.Record, error) {
	if offerUUID == "" {
		return nil, &ValidationError{Field: "uuid", Message: "Missing offer UUID"}
	}
	recs, err := s.store.Query(ctx, s.tables.Responses, "offerUuid", offerUUID)
	if err != nil {
		log.Printf("[exchange] list responses offer=%s failed: %v", offerUUID, err)
		return nil, err
	}
	return recs, nil
}

// RecordOfferResponse stores a response under the legacy schema. No webhook is involved.
func (s *Service) RecordOfferResponse(ctx context.Context, offerUUID string, p validation.ResponsePayload) (OfferResponse, error) {
	if offerUUID == "" {
		return OfferResponse{}, &ValidationError{Field: "uuid", Message: "Missing offer UUID"}
	}
	resp := OfferResponse{
		OfferUUID:      offerUUID,
		ResponseID:     s.newID(),
		OfferAmount:    *p.OfferAmount,
		WantCurrency:   strOrNil(p.WantCurrency),
		HaveCurrency:   strOrNil(p.HaveCurrency),
		ResponderName:  p.Responder.Name,
		ResponderEmail: p.Responder.Email,
		ResponderPhone: p.Responder.Phone,
		CreatedAt:      s.now(),
	}
	if err := s.store.Put(ctx, s.tables.Responses, resp); err != nil {
		log.Printf("[exchange] put response offer=%s failed: %v", offerUUID, err)
		return OfferResponse{}, err
	}
	return resp, nil
}

// findRequest looks the request up under each key name in order. A miss or a key
// schema mismatch moves on to the next name; any other error stops the lookup.
func (s *Service) findRequest(ctx context.Context, requestID string, keyNames []string) (store.Record, error) {
	for _, name := range keyNames {
		rec, err := s.store.Get(ctx, s.tables.Requests, store.Key{name: requestID})
		if err != nil {
			if errors.Is(err, store.ErrKeySchemaMismatch) {
				continue
			}
			return nil, err
		}
		if rec != nil {
			return rec, nil
		}
	}
	return nil, nil
}

// preferKey moves first to the front of names, keeping the rest in order.
func preferKey(names []string, first string) []string {
	out := make([]string, 0, len(names))
	out = append(out, first)
	for _, n := range names {
		if n != first {
			out = append(out, n)
		}
	}
	return out
}

// distinctEmails collects non-empty responder emails in first-seen order.
func distinctEmails(offers []store.Record) []string {
	seen := map[string]bool{}
	emails := []string{}
	for _, o := range offers {
		email, _ := o["responderEmail"].(string)
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true
		emails = append(emails, email)
	}
	return emails
}

func requesterOrNil(rec store.Record) *normalize.Requester {
	if rec == nil {
		return nil
	}
	r := normalize.RequesterOf(rec)
	return &r
}

func strOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
