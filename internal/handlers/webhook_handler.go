package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/imrishuroy/go-storefront/internal/payments"
)

const maxWebhookBody = 65536

// stripeWebhook answers 400 for bad signatures or payloads, 500 when the event
// could not be applied (Stripe retries), and 200 otherwise.
func (a *api) stripeWebhook(c *gin.Context) {
	log := loggerFrom(c)

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to read request body"})
		return
	}
	ev, err := a.Verifier.Verify(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		writeError(c, err)
		return
	}
	log = log.WithFields(logrus.Fields{"event_id": ev.ID, "event_type": ev.Type})

	pe, ok, err := payments.Translate(ev)
	if err != nil {
		log.WithError(err).Warn("undecodable webhook event")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event payload"})
		return
	}
	if !ok {
		log.Debug("webhook event not handled")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	outcome, err := a.Orders.HandlePaymentEvent(c.Request.Context(), pe)
	if err != nil {
		log.WithError(err).Error("webhook processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook processing failed"})
		return
	}
	log.WithField("outcome", outcome).Info("webhook processed")
	c.JSON(http.StatusOK, gin.H{"received": true})
}
