package shopifysync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/mmdatafocus/shopify_budget/config"
	"github.com/mmdatafocus/shopify_budget/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var ErrMalformedEvent = errors.New("malformed order event")

// ReportInvalidator drops cached reports after order data changes.
type ReportInvalidator interface {
	InvalidateLocations(ctx context.Context, locationIds ...int64)
	InvalidateAll(ctx context.Context)
}

// OrderIntake applies order webhooks, directly or relayed through Pub/Sub.
type OrderIntake struct {
	db          *gorm.DB
	topic       *pubsub.Topic
	invalidator ReportInvalidator
	logger      *logrus.Logger
}

// NewOrderIntake wires the intake; topic may be nil to apply webhooks inline.
func NewOrderIntake(db *gorm.DB, topic *pubsub.Topic, invalidator ReportInvalidator, logger *logrus.Logger) *OrderIntake {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &OrderIntake{db: db, topic: topic, invalidator: invalidator, logger: logger}
}

func (in *OrderIntake) Relayed() bool {
	return in.topic != nil
}

// BudgetMonthForOrder picks the tagged month when it parses, else the created month.
func BudgetMonthForOrder(o OrderWebhook) (month string, source string, err error) {
	if raw, ok := o.attribute(BudgetMonthAttribute); ok && raw != "" {
		normalized, nerr := models.NormalizeBudgetMonth(raw)
		if nerr == nil {
			return normalized, MonthSourceAttribute, nil
		}
		err = fmt.Errorf("note attribute %s=%q: %w", BudgetMonthAttribute, raw, nerr)
	}
	if o.CreatedAt.IsZero() {
		if err == nil {
			err = errors.New("order has no created_at")
		}
		return "", "", err
	}
	return models.BudgetMonthOf(o.CreatedAt).String(), MonthSourceCreatedAt, err
}

// Publish relays the webhook to Pub/Sub and returns the message id.
func (in *OrderIntake) Publish(ctx context.Context, event config.ShopifyOrderEvent) (string, error) {
	return config.PublishJSON(ctx, in.topic, event, map[string]string{"topic": event.Topic})
}

// Apply tags the order with its budget month.
func (in *OrderIntake) Apply(ctx context.Context, event config.ShopifyOrderEvent) (*ApplyResult, error) {
	var order OrderWebhook
	if err := json.Unmarshal(event.Payload, &order); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if order.ID <= 0 {
		return nil, fmt.Errorf("%w: missing order id", ErrMalformedEvent)
	}

	month, source, monthErr := BudgetMonthForOrder(order)
	if month == "" {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, monthErr)
	}
	if monthErr != nil {
		in.logger.WithFields(logrus.Fields{
			"module":         "shopifysync",
			"order_id":       order.ID,
			"correlation_id": event.CorrelationId,
		}).Warn("ignoring unparseable budget month: " + monthErr.Error())
	}

	updated, err := models.SetOrderBudgetMonth(ctx, in.db, order.ID, month)
	if err != nil {
		config.LogError(in.logger, "shopifysync", "Apply", "SetOrderBudgetMonth", order.ID, err)
		return nil, err
	}
	if updated && in.invalidator != nil {
		if order.LocationId != nil {
			in.invalidator.InvalidateLocations(ctx, *order.LocationId)
		} else {
			in.invalidator.InvalidateAll(ctx)
		}
	}

	in.logger.WithFields(logrus.Fields{
		"module":         "shopifysync",
		"topic":          event.Topic,
		"shop_domain":    event.ShopDomain,
		"order_id":       order.ID,
		"budget_month":   month,
		"source":         source,
		"updated":        updated,
		"correlation_id": event.CorrelationId,
	}).Info("order budget month applied")

	return &ApplyResult{OrderId: order.ID, BudgetMonth: month, Source: source, Updated: updated}, nil
}

func newOrderEvent(topic, shopDomain, webhookId, correlationId string, payload []byte) config.ShopifyOrderEvent {
	return config.ShopifyOrderEvent{
		Topic:         topic,
		ShopDomain:    shopDomain,
		WebhookId:     webhookId,
		ReceivedAt:    time.Now().UTC(),
		Payload:       json.RawMessage(payload),
		CorrelationId: correlationId,
	}
}
