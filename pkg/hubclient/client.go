package hubclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// API endpoint constants
const (
	endpointWhoami   = "/api/whoami-v2"
	endpointModels   = "/api/models"
	endpointDatasets = "/api/datasets"
)

// Client represents a model/dataset hub API client.
type Client struct {
	ctx        context.Context
	baseURL    string
	httpClient *http.Client
	authToken  string
	logger     *slog.Logger
}

// NewClient creates a new hub client.
func NewClient(baseURL string) *Client {
	// Ensure baseURL doesn't end with a slash
	if len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}

	return &Client{
		ctx:     context.Background(),
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	if c == nil {
		return nil
	}
	return &Client{
		ctx:        c.ctx,
		baseURL:    c.baseURL,
		httpClient: httpClient,
		authToken:  c.authToken,
		logger:     c.logger,
	}
}

func (c *Client) WithContext(ctx context.Context) *Client {
	if c == nil {
		return nil
	}
	return &Client{
		ctx:        ctx,
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		authToken:  c.authToken,
		logger:     c.logger,
	}
}

func (c *Client) WithLogger(logger *slog.Logger) *Client {
	if c == nil {
		return nil
	}
	return &Client{
		ctx:        c.ctx,
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		authToken:  c.authToken,
		logger:     logger,
	}
}

func (c *Client) WithToken(authToken string) *Client {
	if c == nil {
		return nil
	}
	return &Client{
		ctx:        c.ctx,
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		authToken:  authToken,
		logger:     c.logger,
	}
}

func (c *Client) GetLogger() *slog.Logger {
	return c.logger
}

func (c *Client) GetBaseURL() string {
	return c.baseURL
}

// HasToken reports whether the client carries a credential. Listing callers
// branch on this to pick the anonymous path without any remote call.
func (c *Client) HasToken() bool {
	return c != nil && c.authToken != ""
}

// doRequest performs an HTTP request to the hub API. Each call is attempted
// exactly once; there is no retry or backoff.
func (c *Client) doRequest(method string, endpoint string, query url.Values) ([]byte, error) {
	c.logger.Info("Hub request started", "method", method, "endpoint", endpoint)

	target := c.baseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(c.ctx, method, target, nil)
	if err != nil {
		c.logger.Info("Hub request errored", "method", method, "endpoint", endpoint, "stage", "failed to create request", "error", err.Error())
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.authToken != "" {
		if strings.HasPrefix(c.authToken, "Bearer ") {
			req.Header.Set("Authorization", c.authToken)
		} else {
			req.Header.Set("Authorization", "Bearer "+c.authToken)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Info("Hub request errored", "method", method, "endpoint", endpoint, "stage", "failed to execute request", "error", err.Error())
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Info("Hub request errored", "method", method, "endpoint", endpoint, "stage", "failed to read response body", "error", err.Error())
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode:   resp.StatusCode,
			ResponseBody: string(respBody),
		}
		c.logger.Info("Hub request failed", "method", method, "endpoint", endpoint, "status", resp.StatusCode, "response", apiErr.ResponseBody)
		return nil, apiErr
	}

	c.logger.Info("Hub request successful", "method", method, "endpoint", endpoint, "status", resp.StatusCode)
	return respBody, nil
}

// unmarshalResponse unmarshals JSON response body into a value of type T
func unmarshalResponse[T any](respBody []byte) (T, error) {
	var response T
	if err := json.Unmarshal(respBody, &response); err != nil {
		return response, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return response, nil
}

func (o ListOptions) query() url.Values {
	query := url.Values{}
	if o.Author != "" {
		query.Set("author", o.Author)
	}
	if o.Sort != "" {
		query.Set("sort", o.Sort)
	}
	if o.Direction != 0 {
		query.Set("direction", strconv.Itoa(o.Direction))
	}
	if o.Limit > 0 {
		query.Set("limit", strconv.Itoa(o.Limit))
	}
	return query
}

// Whoami returns the authenticated caller's identity.
func (c *Client) Whoami() (*User, error) {
	respBody, err := c.doRequest(http.MethodGet, endpointWhoami, nil)
	if err != nil {
		return nil, err
	}
	user, err := unmarshalResponse[User](respBody)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListModels lists hub models matching the given options.
func (c *Client) ListModels(opts ListOptions) ([]Model, error) {
	respBody, err := c.doRequest(http.MethodGet, endpointModels, opts.query())
	if err != nil {
		return nil, err
	}
	return unmarshalResponse[[]Model](respBody)
}

// ListDatasets lists hub datasets matching the given options.
func (c *Client) ListDatasets(opts ListOptions) ([]Dataset, error) {
	respBody, err := c.doRequest(http.MethodGet, endpointDatasets, opts.query())
	if err != nil {
		return nil, err
	}
	return unmarshalResponse[[]Dataset](respBody)
}
