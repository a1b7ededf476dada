package normalize

import (
	"math"

	"github.com/willie84/currencyexchangenetwork/internal/store"
)

// Status values.
const (
	StatusOpen      = "open"
	StatusClosed    = "closed"
	StatusCompleted = "completed"
)

// timestampFields are consulted in order for the raw creation time.
var timestampFields = []string{"createdAt", "time", "Timestamp", "timestamp"}

// Request returns a copy of rec with the canonical exchange request fields filled in.
// Attributes not mentioned pass through unchanged.
func Request(rec store.Record) store.Record {
	out := clone(rec)
	out["requestId"] = coalesce(rec, "requestId", "uuid", "id")
	out["needCurrency"] = coalesce(rec, "needCurrency", "wantCurrency")
	out["haveCurrency"] = coalesce(rec, "haveCurrency")
	out["haveAmount"] = coalesce(rec, "haveAmount")
	out["createdAt"] = Timestamp(coalesce(rec, timestampFields...))
	return out
}

// Offer normalizes a record from the legacy offers table.
func Offer(rec store.Record) store.Record {
	out := clone(rec)
	out["wantAmount"] = coalesce(rec, "wantAmount", "needAmount")
	out["wantCurrency"] = coalesce(rec, "wantCurrency", "needCurrency")
	out["createdAt"] = Timestamp(coalesce(rec, timestampFields...))
	if v := coalesce(rec, "status"); v != nil {
		out["status"] = v
	} else {
		out["status"] = StatusOpen
	}
	return out
}

// Requester is the contact block attached to notifications about a request.
// Every field is nil when the stored value is empty, zero or false.
type Requester struct {
	Name         interface{} `json:"name"`
	Email        interface{} `json:"email"`
	Phone        interface{} `json:"phone"`
	NeedCurrency interface{} `json:"needCurrency"`
	HaveCurrency interface{} `json:"haveCurrency"`
	HaveAmount   interface{} `json:"haveAmount"`
}

// RequesterOf extracts the contact block from a stored request. A nil record yields
// a block of nils.
func RequesterOf(rec store.Record) Requester {
	return Requester{
		Name:         firstTruthy(rec, "name"),
		Email:        firstTruthy(rec, "email"),
		Phone:        firstTruthy(rec, "phone"),
		NeedCurrency: firstTruthy(rec, "needCurrency", "wantCurrency"),
		HaveCurrency: firstTruthy(rec, "haveCurrency"),
		HaveAmount:   firstTruthy(rec, "haveAmount"),
	}
}

// coalesce returns the first attribute that is present and not null.
func coalesce(rec store.Record, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstTruthy(rec store.Record, keys ...string) interface{} {
	for _, k := range keys {
		if v := rec[k]; truthy(v) {
			return v
		}
	}
	return nil
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case int:
		return t != 0
	case int64:
		return t != 0
	default:
		return true
	}
}

func clone(rec store.Record) store.Record {
	out := make(store.Record, len(rec)+4)
	for k, v := range rec {
		out[k] = v
	}
	return out
}
