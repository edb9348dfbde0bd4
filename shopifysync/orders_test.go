package shopifysync

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestBudgetMonthForOrder(t *testing.T) {
	created := time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		attrs   []NoteAttribute
		created time.Time
		month   string
		source  string
		wantErr bool
	}{
		{"tagged", []NoteAttribute{{Name: "order_budget_month", Value: "01-2025"}}, created, "01-2025", MonthSourceAttribute, false},
		{"loose tag", []NoteAttribute{{Name: " Order_Budget_Month ", Value: "1/2025"}}, created, "01-2025", MonthSourceAttribute, false},
		{"untagged", nil, created, "02-2025", MonthSourceCreatedAt, false},
		{"other attributes", []NoteAttribute{{Name: "gift", Value: "yes"}}, created, "02-2025", MonthSourceCreatedAt, false},
		// bad tag falls back but still reports the problem
		{"bad tag", []NoteAttribute{{Name: "order_budget_month", Value: "Jan"}}, created, "02-2025", MonthSourceCreatedAt, true},
		{"nothing usable", nil, time.Time{}, "", "", true},
	}
	for _, tc := range cases {
		month, source, err := BudgetMonthForOrder(OrderWebhook{ID: 1, CreatedAt: tc.created, NoteAttributes: tc.attrs})
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: unexpected error state %v", tc.name, err)
		}
		if month != tc.month || source != tc.source {
			t.Fatalf("%s: expected %s/%s, got %s/%s", tc.name, tc.month, tc.source, month, source)
		}
	}
}

func newIntakeRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	intake := NewOrderIntake(nil, nil, nil, quietLogger())
	r := gin.New()
	r.POST("/webhooks/shopify/orders", intake.WebhookHandler())
	r.POST("/pubsub/shopify-orders", intake.PubSubPushHandler())
	return r
}

func TestWebhookHandlerRejectsBadInput(t *testing.T) {
	r := newIntakeRouter()
	cases := []struct {
		name   string
		topic  string
		body   string
		status int
	}{
		{"other topic", "products/update", `{}`, http.StatusAccepted},
		{"invalid json", TopicOrdersCreate, `{"id":`, http.StatusBadRequest},
		{"missing id", TopicOrdersCreate, `{"name":"#1001"}`, http.StatusBadRequest},
		{"no month source", TopicOrdersUpdated, `{"id":5}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/shopify/orders", strings.NewReader(tc.body))
		req.Header.Set(HeaderTopic, tc.topic)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d (%s)", tc.name, tc.status, w.Code, w.Body.String())
		}
	}
}

func TestPubSubPushHandlerAcksMalformedMessages(t *testing.T) {
	r := newIntakeRouter()
	push := func(data []byte) string {
		b, _ := json.Marshal(map[string]interface{}{
			"message":      map[string]interface{}{"data": base64.StdEncoding.EncodeToString(data), "messageId": "m-1"},
			"subscription": "projects/p/subscriptions/s",
		})
		return string(b)
	}
	bodies := []string{
		`not json`,
		push([]byte(`not json either`)),
		push([]byte(`{"topic":"orders/create","payload":{"name":"#1001"}}`)),
	}
	for i, body := range bodies {
		req := httptest.NewRequest(http.MethodPost, "/pubsub/shopify-orders", strings.NewReader(body))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusNoContent {
			t.Fatalf("case %d: expected 204, got %d", i, w.Code)
		}
	}
}
