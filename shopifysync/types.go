package shopifysync

import (
	"strconv"
	"strings"
	"time"
)

const (
	BudgetMonthAttribute = "order_budget_month"

	TopicOrdersCreate  = "orders/create"
	TopicOrdersUpdated = "orders/updated"

	HeaderTopic      = "X-Shopify-Topic"
	HeaderShopDomain = "X-Shopify-Shop-Domain"
	HeaderWebhookId  = "X-Shopify-Webhook-Id"

	MonthSourceAttribute = "note_attribute"
	MonthSourceCreatedAt = "created_at"
)

type NoteAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// OrderWebhook is the subset of the Shopify order payload this service reads.
type OrderWebhook struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	CreatedAt      time.Time       `json:"created_at"`
	LocationId     *int64          `json:"location_id"`
	NoteAttributes []NoteAttribute `json:"note_attributes"`
}

func (o OrderWebhook) attribute(name string) (string, bool) {
	for _, a := range o.NoteAttributes {
		if strings.EqualFold(strings.TrimSpace(a.Name), name) {
			return strings.TrimSpace(a.Value), true
		}
	}
	return "", false
}

// PubSubPushEnvelope is the body Pub/Sub posts to push endpoints.
type PubSubPushEnvelope struct {
	Message struct {
		Data       []byte            `json:"data,omitempty"`
		ID         string            `json:"messageId"`
		Attributes map[string]string `json:"attributes"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// ApplyResult describes what an order event changed.
type ApplyResult struct {
	OrderId     int64  `json:"order_id"`
	BudgetMonth string `json:"budget_month"`
	Source      string `json:"source"`
	Updated     bool   `json:"updated"`
}

type SyncStats struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
	Missing int `json:"missing"`
	Pages   int `json:"pages"`
}

func parseInt64(v string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
}
