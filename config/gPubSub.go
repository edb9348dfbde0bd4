package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// ShopifyOrderEvent is the envelope relayed through Pub/Sub for order webhooks.
type ShopifyOrderEvent struct {
	Topic         string          `json:"topic"`
	ShopDomain    string          `json:"shop_domain"`
	WebhookId     string          `json:"webhook_id"`
	ReceivedAt    time.Time       `json:"received_at"`
	Payload       json.RawMessage `json:"payload"`
	CorrelationId string          `json:"correlation_id"`
}

// NewPubSubClient builds a client from settings, retrying a bounded number of times.
// It uses Application Default Credentials unless PUBSUB_CREDENTIALS_JSON is provided.
func NewPubSubClient(ctx context.Context, s *Settings, maxAttempts int) (*pubsub.Client, error) {
	if s.PubSubProjectID == "" {
		return nil, errors.New("PUBSUB_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var (
			c   *pubsub.Client
			err error
		)
		if s.PubSubCredentialsJSON != "" {
			c, err = pubsub.NewClient(ctx, s.PubSubProjectID, option.WithCredentialsJSON([]byte(s.PubSubCredentialsJSON)))
		} else {
			// Uses Application Default Credentials (Cloud Run service account or GOOGLE_APPLICATION_CREDENTIALS).
			c, err = pubsub.NewClient(ctx, s.PubSubProjectID)
		}
		if err == nil {
			log.Printf("pubsub client ready (project_id=%s attempt=%d)", s.PubSubProjectID, attempt)
			return c, nil
		}
		lastErr = err

		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		log.Printf("failed to init pubsub client (project_id=%s attempt=%d): %v; retrying in %s", s.PubSubProjectID, attempt, err, sleep)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
	}
	return nil, fmt.Errorf("pubsub client: %w", lastErr)
}

func CreateTopicIfNotExists(ctx context.Context, c *pubsub.Client, topic string) (*pubsub.Topic, error) {
	if c == nil {
		return nil, errors.New("pubsub client is nil")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}

	t := c.Topic(topic)
	ok, err := t.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		return t, nil
	}
	t, err = c.CreateTopic(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("create topic %q: %w", topic, err)
	}
	return t, nil
}

// PublishJSON marshals obj and waits for the server-assigned message id.
func PublishJSON(ctx context.Context, t *pubsub.Topic, obj interface{}, attrs map[string]string) (string, error) {
	if t == nil {
		return "", errors.New("topic is nil")
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	result := t.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
	return result.Get(ctx)
}
