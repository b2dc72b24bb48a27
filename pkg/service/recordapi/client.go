package recordapi

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/metaform/pkg/domain/interfaces"
	"github.com/secmon-lab/metaform/pkg/domain/model"
	"github.com/secmon-lab/metaform/pkg/domain/types"
	"github.com/secmon-lab/metaform/pkg/utils/logging"
	"github.com/secmon-lab/metaform/pkg/utils/safe"
)

const (
	// EnvelopeHeader selects the {"data": ...} response envelope
	EnvelopeHeader = "Gemini"
	// EnvelopeValue is the EnvelopeHeader value understood by the record API
	EnvelopeValue = "gemini.api"

	// SearchParam carries the attribute==value filter of list requests
	SearchParam = "search"

	// DefaultMaxResponseBytes caps the response body read per request
	DefaultMaxResponseBytes = 32 << 20
)

// Client talks to a remote record API over HTTP:
//
//	GET  {base}/api/{entity}?search=attr==value   list
//	GET  {base}/api/{entity}/{key...}             get by logical key
//	POST {base}/api/{entity}                      create
type Client struct {
	baseURL          *url.URL
	httpClient       *http.Client
	maxResponseBytes int64
}

var _ interfaces.RecordRepository = &Client{}

// Option is a functional option for Client
type Option func(*Client)

// WithHTTPClient replaces the pooled default client
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithMaxResponseBytes overrides DefaultMaxResponseBytes
func WithMaxResponseBytes(n int64) Option {
	return func(client *Client) {
		client.maxResponseBytes = n
	}
}

// New creates a Client for the API rooted at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, goerr.New("record API URL is required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, goerr.New("invalid record API URL", goerr.V("url", baseURL))
	}

	c := &Client{
		baseURL:          u,
		httpClient:       cleanhttp.DefaultPooledClient(),
		maxResponseBytes: DefaultMaxResponseBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close releases idle connections
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) GetEntityRecord(ctx context.Context, entity types.EntityName, key string) (*model.EntityRecord, error) {
	return c.do(ctx, http.MethodGet, c.endpoint(entity, key, ""), nil)
}

func (c *Client) GetEntityRecords(ctx context.Context, entity types.EntityName, filter string) (*model.EntityRecord, error) {
	return c.do(ctx, http.MethodGet, c.endpoint(entity, "", filter), nil)
}

func (c *Client) CreateEntityRecord(ctx context.Context, entity types.EntityName, payload map[string]any) (*model.EntityRecord, error) {
	body, err := json.Marshal(model.NewEntityRecord(payload))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode record", goerr.V(model.EntityNameKey, entity))
	}
	return c.do(ctx, http.MethodPost, c.endpoint(entity, "", ""), body)
}

func (c *Client) endpoint(entity types.EntityName, key, filter string) string {
	u := *c.baseURL
	segments := []string{u.Path, "api", url.PathEscape(entity.String())}
	if key != "" {
		for _, part := range strings.Split(key, "/") {
			segments = append(segments, url.PathEscape(part))
		}
	}
	u.RawPath = strings.Join(segments, "/")
	u.Path, _ = url.PathUnescape(u.RawPath)
	if filter != "" {
		u.RawQuery = url.Values{SearchParam: []string{filter}}.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) (*model.EntityRecord, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build request", goerr.V("url", endpoint))
	}
	req.Header.Set(EnvelopeHeader, EnvelopeValue)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logging.From(ctx).Debug("record API request", "method", method, "url", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, goerr.Wrap(ctx.Err(), "record API request cancelled", goerr.V("url", endpoint))
		}
		return nil, goerr.Wrap(&model.APIError{
			Status:    http.StatusServiceUnavailable,
			Message:   err.Error(),
			ErrorCode: "NETWORK_ERROR",
		}, "record API request failed", goerr.V("url", endpoint))
	}
	defer safe.Close(ctx, resp.Body)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read response", goerr.V("url", endpoint))
	}
	if int64(len(raw)) > c.maxResponseBytes {
		return nil, goerr.Wrap(&model.APIError{
			Status:    http.StatusBadGateway,
			Message:   "record API response is too large",
			ErrorCode: "RESPONSE_TOO_LARGE",
		}, "record API response exceeds limit",
			goerr.V("url", endpoint),
			goerr.V("limit", c.maxResponseBytes))
	}

	if resp.StatusCode >= 400 {
		return nil, goerr.Wrap(decodeAPIError(resp.StatusCode, raw), "record API returned error",
			goerr.V("url", endpoint),
			goerr.V("status", resp.StatusCode))
	}

	var rec model.EntityRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, goerr.Wrap(model.ErrInvalidRecord, "failed to decode response",
			goerr.V("url", endpoint),
			goerr.V("cause", err.Error()))
	}
	return &rec, nil
}

func decodeAPIError(status int, raw []byte) *model.APIError {
	var apiErr model.APIError
	if err := json.Unmarshal(raw, &apiErr); err != nil || apiErr.Message == "" {
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &model.APIError{Status: status, Message: msg}
	}
	apiErr.Status = status
	return &apiErr
}
