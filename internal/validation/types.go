package validation

// SubmitRequestPayload is the body of POST /requests.
type SubmitRequestPayload struct {
	Name         string  `json:"name" validate:"required"`
	Email        string  `json:"email" validate:"required,contact_email"`
	Phone        string  `json:"phone" validate:"required"`
	NeedCurrency string  `json:"needCurrency" validate:"required"`
	HaveCurrency string  `json:"haveCurrency" validate:"required"`
	HaveAmount   *Amount `json:"haveAmount" validate:"required,finite"`
}

// Responder identifies the user answering a request.
type Responder struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required"`
	Phone string `json:"phone" validate:"required"`
}

// OfferPayload is the body of POST /requests/{id}/offers.
type OfferPayload struct {
	Responder    *Responder `json:"responder" validate:"required"`
	OfferAmount  *Amount    `json:"offerAmount" validate:"required,finite"`
	NeedCurrency string     `json:"needCurrency"`
	HaveCurrency string     `json:"haveCurrency"`
}

// AcceptPayload is the optional body of POST /requests/{id}/offers/{offerId}/accept.
// Offer is forwarded to the webhook untouched.
type AcceptPayload struct {
	Offer interface{} `json:"offer"`
}

// CompletePayload is the body of POST /offers/{uuid}/complete.
type CompletePayload struct {
	UUID string `json:"uuid"`
}

// ResponsePayload is the body of POST /offers/{uuid}/responses (legacy schema).
// OfferAmount must be a JSON number; strings are rejected.
type ResponsePayload struct {
	Responder    *Responder `json:"responder" validate:"required"`
	OfferAmount  *float64   `json:"offerAmount" validate:"required"`
	WantCurrency string     `json:"wantCurrency"`
	HaveCurrency string     `json:"haveCurrency"`
}
