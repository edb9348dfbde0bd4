package shopifysync

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/shopify_budget/config"
	"github.com/mmdatafocus/shopify_budget/utils"
)

// WebhookHandler receives orders/create and orders/updated webhooks.
func (in *OrderIntake) WebhookHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		topic := c.GetHeader(HeaderTopic)
		if topic != TopicOrdersCreate && topic != TopicOrdersUpdated {
			c.JSON(http.StatusAccepted, gin.H{"ignored": true, "topic": topic})
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil || !json.Valid(body) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}

		ctx := c.Request.Context()
		cid, _ := utils.GetCorrelationIdFromContext(ctx)
		event := newOrderEvent(topic, c.GetHeader(HeaderShopDomain), c.GetHeader(HeaderWebhookId), cid, body)

		if in.Relayed() {
			id, err := in.Publish(ctx, event)
			if err != nil {
				config.LogError(in.logger, "shopifysync", "WebhookHandler", "Publish", event.WebhookId, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue webhook"})
				return
			}
			c.JSON(http.StatusAccepted, gin.H{"message_id": id})
			return
		}

		result, err := in.Apply(ctx, event)
		if err != nil {
			if errors.Is(err, ErrMalformedEvent) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to apply webhook"})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// PubSubPushHandler applies relayed webhooks. Malformed messages are acked
// and dropped; store failures answer 500 so Pub/Sub redelivers.
func (in *OrderIntake) PubSubPushHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			config.LogError(in.logger, "shopifysync", "PubSubPushHandler", "io.ReadAll", nil, err)
			c.Status(http.StatusNoContent)
			return
		}

		// byte slice unmarshalling handles base64 decoding.
		var envelope PubSubPushEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			config.LogError(in.logger, "shopifysync", "PubSubPushHandler", "Unmarshal body", string(body), err)
			c.Status(http.StatusNoContent)
			return
		}

		var event config.ShopifyOrderEvent
		if err := json.Unmarshal(envelope.Message.Data, &event); err != nil {
			config.LogError(in.logger, "shopifysync", "PubSubPushHandler", "Unmarshal pubsub message", envelope.Message.ID, err)
			c.Status(http.StatusNoContent)
			return
		}
		if event.CorrelationId == "" {
			event.CorrelationId = envelope.Message.ID
		}
		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), event.CorrelationId)

		if _, err := in.Apply(ctx, event); err != nil {
			if errors.Is(err, ErrMalformedEvent) {
				config.LogError(in.logger, "shopifysync", "PubSubPushHandler", "Apply", envelope.Message.ID, err)
				c.Status(http.StatusNoContent)
				return
			}
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
