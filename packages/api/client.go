package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/abdul-hamid-achik/paywire/packages/config"
	"github.com/abdul-hamid-achik/paywire/packages/httpclient"
)

// Client talks to the payment API.
type Client struct {
	backend httpclient.Backend
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBackend pins the client to an explicit backend instead of the
// process-wide default.
func WithBackend(b httpclient.Backend) ClientOption {
	return func(c *Client) {
		c.backend = b
	}
}

// NewClient creates an API client. Without options it routes requests
// through the lazily-created default backend.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) backendFor() httpclient.Backend {
	if c.backend != nil {
		return c.backend
	}
	return httpclient.Default()
}

// RetrieveBalance fetches the account balance document. Exactly one GET is
// issued per attempt; connection failures are retried up to the configured
// MaxRetries with the same idempotency key.
func (c *Client) RetrieveBalance(ctx context.Context) (map[string]any, error) {
	return c.get(ctx, "/v1/balance")
}

func (c *Client) get(ctx context.Context, path string) (map[string]any, error) {
	cfg := config.Current()
	url := strings.TrimRight(cfg.BaseURL, "/") + path

	req := httpclient.NewRequest("GET", url).
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("Accept", "application/json").
		SetHeader("Idempotency-Key", uuid.NewString())

	backend := c.backendFor()

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		resp, err := backend.Do(ctx, req)
		if err != nil {
			lastErr = err
			if httpclient.IsConnection(err) {
				continue
			}
			return nil, err
		}

		if !resp.IsSuccess() {
			return nil, fmt.Errorf("GET %s: unexpected status %d", url, resp.StatusCode)
		}

		doc, err := resp.BodyJSON()
		if err != nil {
			return nil, &httpclient.Error{
				Kind:   httpclient.KindMalformed,
				Method: "GET",
				URL:    url,
				Cause:  err,
			}
		}
		return doc, nil
	}
	return nil, lastErr
}

// RetrieveBalance fetches the balance through a default client, the
// one-liner most callers want.
func RetrieveBalance(ctx context.Context) (map[string]any, error) {
	return NewClient().RetrieveBalance(ctx)
}

// Field extracts a dotted path (gjson syntax) from a retrieved document,
// e.g. Field(doc, "available.0.amount").
func Field(doc map[string]any, path string) (gjson.Result, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("re-encoding document: %w", err)
	}
	return gjson.GetBytes(data, path), nil
}
