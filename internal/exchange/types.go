package exchange

import "github.com/willie84/currencyexchangenetwork/internal/normalize"

// RequestOffer is an offer made against an exchange request, keyed by (requestId, offerId).
// Nullable currencies are stored as NULL, matching what older writers produced.
type RequestOffer struct {
	RequestID      string  `json:"requestId" dynamodbav:"requestId"` // PK
	OfferID        string  `json:"offerId" dynamodbav:"offerId"`     // SK
	OfferAmount    float64 `json:"offerAmount" dynamodbav:"offerAmount"`
	NeedCurrency   *string `json:"needCurrency" dynamodbav:"needCurrency"`
	HaveCurrency   *string `json:"haveCurrency" dynamodbav:"haveCurrency"`
	ResponderName  string  `json:"responderName" dynamodbav:"responderName"`
	ResponderEmail string  `json:"responderEmail" dynamodbav:"responderEmail"`
	ResponderPhone string  `json:"responderPhone" dynamodbav:"responderPhone"`
	Accepted       bool    `json:"accepted,omitempty" dynamodbav:"accepted,omitempty"`
	AcceptedAt     string  `json:"acceptedAt,omitempty" dynamodbav:"acceptedAt,omitempty"`
	CreatedAt      string  `json:"createdAt" dynamodbav:"createdAt"`
}

// OfferResponse is the legacy response shape, keyed by (offerUuid, responseId).
type OfferResponse struct {
	OfferUUID      string  `json:"offerUuid" dynamodbav:"offerUuid"`   // PK
	ResponseID     string  `json:"responseId" dynamodbav:"responseId"` // SK
	OfferAmount    float64 `json:"offerAmount" dynamodbav:"offerAmount"`
	WantCurrency   *string `json:"wantCurrency" dynamodbav:"wantCurrency"`
	HaveCurrency   *string `json:"haveCurrency" dynamodbav:"haveCurrency"`
	ResponderName  string  `json:"responderName" dynamodbav:"responderName"`
	ResponderEmail string  `json:"responderEmail" dynamodbav:"responderEmail"`
	ResponderPhone string  `json:"responderPhone" dynamodbav:"responderPhone"`
	CreatedAt      string  `json:"createdAt" dynamodbav:"createdAt"`
}

// SubmittedRequest is forwarded to the submit webhook; the automation creates the stored record.
type SubmittedRequest struct {
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Phone        string  `json:"phone"`
	NeedCurrency string  `json:"needCurrency"`
	HaveCurrency string  `json:"haveCurrency"`
	HaveAmount   float64 `json:"haveAmount"`
	CreatedAt    string  `json:"createdAt"`
}

// CloseResult reports which key name matched the request and how many responders were notified.
type CloseResult struct {
	KeyUsed     string `json:"keyUsed"`
	EmailsCount int    `json:"emailsCount"`
}

type responderContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// offerCreatedPayload is sent to the offer-created webhook. Requester is null when
// the parent request could not be found.
type offerCreatedPayload struct {
	Offer       RequestOffer         `json:"offer"`
	OfferAmount float64              `json:"offerAmount"`
	Responder   responderContact     `json:"responder"`
	Requester   *normalize.Requester `json:"requester"`
}

// offerAcceptedPayload always carries a request block, with nulls when not found.
type offerAcceptedPayload struct {
	RequestID string              `json:"requestId"`
	OfferID   string              `json:"offerId"`
	Request   normalize.Requester `json:"request"`
	Offer     interface{}         `json:"offer"`
}

type requestClosedPayload struct {
	RequestID string               `json:"requestId"`
	Emails    []string             `json:"emails"`
	Requester *normalize.Requester `json:"requester"`
}
