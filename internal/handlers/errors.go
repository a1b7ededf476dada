package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/willie84/currencyexchangenetwork/internal/exchange"
	"github.com/willie84/currencyexchangenetwork/internal/notify"
	"github.com/willie84/currencyexchangenetwork/internal/store"
)

var missingWebhook = map[notify.Event]string{
	notify.EventRequestSubmitted: "Missing request submit webhook URL",
	notify.EventOfferCreated:     "Missing offer created webhook URL",
	notify.EventOfferAccepted:    "Missing accept offer webhook URL",
	notify.EventRequestClosed:    "Missing close request webhook URL",
}

// writeError maps a service error onto the HTTP error contract. action completes
// "Failed to ..." for store and transport failures.
func writeError(c *gin.Context, action string, err error) {
	var (
		ve     *exchange.ValidationError
		cfgErr *notify.ConfigurationError
		whErr  *notify.WebhookError
		se     *store.StoreError
	)
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message})
	case errors.As(err, &cfgErr):
		msg, ok := missingWebhook[cfgErr.Event]
		if !ok {
			msg = "Missing webhook URL"
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	case errors.As(err, &whErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Webhook request failed", "details": whErr.Body})
	case errors.As(err, &se):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action, "details": se.Message()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action, "details": err.Error()})
	}
}
