package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/willie84/currencyexchangenetwork/internal/exchange"
	"github.com/willie84/currencyexchangenetwork/internal/validation"
)

// HandlerConfig groups dependencies for the exchange routes.
type HandlerConfig struct {
	Service *exchange.Service
	// Presence is reported by /health; values are never exposed.
	Presence map[string]bool
}

// RegisterExchangeRoutes registers the request, offer and legacy offer routes.
func RegisterExchangeRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()
	svc := cfg.Service

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "env": cfg.Presence})
	})

	r.GET("/requests", func(c *gin.Context) {
		recs, err := svc.ListRequests(c.Request.Context())
		if err != nil {
			writeError(c, "fetch requests", err)
			return
		}
		c.JSON(http.StatusOK, recs)
	})

	r.POST("/requests", func(c *gin.Context) {
		var req validation.SubmitRequestPayload
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		if err := svc.SubmitRequest(c.Request.Context(), req); err != nil {
			writeError(c, "submit request", err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true})
	})

	r.GET("/requests/:id/offers", func(c *gin.Context) {
		recs, err := svc.ListRequestOffers(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, "fetch offers", err)
			return
		}
		c.JSON(http.StatusOK, recs)
	})

	r.POST("/requests/:id/offers", func(c *gin.Context) {
		var req validation.OfferPayload
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		offer, err := svc.RespondToRequest(c.Request.Context(), c.Param("id"), req)
		if err != nil {
			writeError(c, "create offer", err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "offerId": offer.OfferID})
	})

	r.POST("/requests/:id/offers/:offerId/accept", func(c *gin.Context) {
		// the body is optional; an empty one forwards a null offer
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}
		var req validation.AcceptPayload
		if strings.TrimSpace(string(raw)) != "" {
			if err := json.Unmarshal(raw, &req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
				return
			}
		}
		if err := svc.AcceptOffer(c.Request.Context(), c.Param("id"), c.Param("offerId"), req.Offer); err != nil {
			writeError(c, "accept offer", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	r.POST("/requests/:id/close", func(c *gin.Context) {
		res, err := svc.CloseRequest(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, "close request", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "keyUsed": res.KeyUsed, "emailsCount": res.EmailsCount})
	})

	r.GET("/offers", func(c *gin.Context) {
		recs, err := svc.ListLegacyOffers(c.Request.Context())
		if err != nil {
			writeError(c, "fetch offers", err)
			return
		}
		c.JSON(http.StatusOK, recs)
	})

	r.POST("/offers/:uuid/complete", func(c *gin.Context) {
		var req validation.CompletePayload
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		if err := svc.CompleteOffer(c.Request.Context(), c.Param("uuid"), req.UUID); err != nil {
			writeError(c, "update offer", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Offer marked as complete"})
	})

	r.GET("/offers/:uuid/responses", func(c *gin.Context) {
		recs, err := svc.ListOfferResponses(c.Request.Context(), c.Param("uuid"))
		if err != nil {
			writeError(c, "fetch responses", err)
			return
		}
		c.JSON(http.StatusOK, recs)
	})

	r.POST("/offers/:uuid/responses", func(c *gin.Context) {
		var req validation.ResponsePayload
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		resp, err := svc.RecordOfferResponse(c.Request.Context(), c.Param("uuid"), req)
		if err != nil {
			writeError(c, "save response", err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "responseId": resp.ResponseID})
	})

	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})
}
