package shopifysync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// adminClient talks to the Shopify Admin GraphQL API, one request per limiter tick.
type adminClient struct {
	endpoint string
	token    string
	http     *http.Client
	ticker   *time.Ticker
}

func AdminEndpoint(shopDomain, apiVersion string) string {
	shopDomain = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(shopDomain), "https://"), "/")
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shopDomain, apiVersion)
}

func newAdminClient(endpoint, token string, ratePerMinute int64) (*adminClient, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.New("shopify endpoint is empty")
	}
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("shopify admin token is empty")
	}
	if ratePerMinute <= 0 {
		ratePerMinute = 120
	}
	interval := time.Minute / time.Duration(ratePerMinute)

	return &adminClient{
		endpoint: endpoint,
		token:    token,
		http:     &http.Client{Timeout: 30 * time.Second},
		ticker:   time.NewTicker(interval),
	}, nil
}

func (c *adminClient) Close() {
	c.ticker.Stop()
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *adminClient) query(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ticker.C:
	}

	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("X-Shopify-Access-Token", c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("shopify api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed graphQLResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return err
	}
	if len(parsed.Errors) > 0 {
		msgs := make([]string, 0, len(parsed.Errors))
		for _, e := range parsed.Errors {
			msgs = append(msgs, e.Message)
		}
		return fmt.Errorf("shopify graphql error: %s", strings.Join(msgs, "; "))
	}
	return json.Unmarshal(parsed.Data, out)
}
