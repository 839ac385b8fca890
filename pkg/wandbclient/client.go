package wandbclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Jeffail/gabs/v2"
)

const (
	graphQLPath = "/graphql"

	queryViewer = `query Viewer { viewer { username entity } }`

	queryProjects = `query Projects($cursor: String) {
  viewer {
    projects(first: 100, after: $cursor) {
      edges { node { name entityName } }
      pageInfo { endCursor hasNextPage }
    }
  }
}`

	queryRuns = `query Runs($entity: String!, $project: String!, $first: Int!, $cursor: String) {
  project(name: $project, entityName: $entity) {
    runs(first: $first, after: $cursor) {
      edges {
        node {
          name
          displayName
          state
          createdAt
          config
          summaryMetrics
          systemMetrics
          metadata
        }
      }
      pageInfo { endCursor hasNextPage }
    }
  }
}`

	queryHistory = `query History($entity: String!, $project: String!, $run: String!, $first: Int!, $cursor: String) {
  project(name: $project, entityName: $entity) {
    run(name: $run) {
      history(first: $first, after: $cursor) {
        edges { node }
        pageInfo { endCursor hasNextPage }
      }
    }
  }
}`
)

// Client represents an experiment tracking API client.
type Client struct {
	ctx        context.Context
	baseURL    string
	httpClient *http.Client
	authToken  string
	pageSize   int
	logger     *slog.Logger
}

// NewClient creates a new tracking client.
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
		pageSize: 50,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
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
		pageSize:   c.pageSize,
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
		pageSize:   c.pageSize,
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
		pageSize:   c.pageSize,
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
		pageSize:   c.pageSize,
		logger:     c.logger,
	}
}

// WithPageSize sets the number of runs requested per page when walking a
// project's run listing.
func (c *Client) WithPageSize(pageSize int) *Client {
	if c == nil {
		return nil
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Client{
		ctx:        c.ctx,
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		authToken:  c.authToken,
		pageSize:   pageSize,
		logger:     c.logger,
	}
}

func (c *Client) GetLogger() *slog.Logger {
	return c.logger
}

func (c *Client) GetBaseURL() string {
	return c.baseURL
}

// doQuery performs one GraphQL request and returns the "data" payload.
// Each call is attempted exactly once; there is no retry or backoff.
func (c *Client) doQuery(operation string, query string, variables map[string]any) (*gabs.Container, error) {
	c.logger.Info("Tracking request started", "operation", operation)

	jsonData, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		c.logger.Info("Tracking request errored", "operation", operation, "stage", "failed to marshal request body", "error", err.Error())
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(c.ctx, http.MethodPost, c.baseURL+graphQLPath, bytes.NewBuffer(jsonData))
	if err != nil {
		c.logger.Info("Tracking request errored", "operation", operation, "stage", "failed to create request", "error", err.Error())
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		if strings.HasPrefix(c.authToken, "Bearer ") || strings.HasPrefix(c.authToken, "Basic ") {
			req.Header.Set("Authorization", c.authToken)
		} else {
			req.Header.Set("Authorization", "Bearer "+c.authToken)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Info("Tracking request errored", "operation", operation, "stage", "failed to execute request", "error", err.Error())
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Info("Tracking request errored", "operation", operation, "stage", "failed to read response body", "error", err.Error())
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode:   resp.StatusCode,
			ResponseBody: string(respBody),
		}
		c.logger.Info("Tracking request failed", "operation", operation, "status", resp.StatusCode, "response", apiErr.ResponseBody)
		return nil, apiErr
	}

	parsed, err := gabs.ParseJSON(respBody)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if errs := parsed.Path("errors"); errs != nil {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		for _, child := range errs.Children() {
			if msg, ok := child.Path("message").Data().(string); ok {
				apiErr.GraphQLErrors = append(apiErr.GraphQLErrors, msg)
			}
		}
		if len(apiErr.GraphQLErrors) > 0 {
			c.logger.Info("Tracking request failed", "operation", operation, "status", resp.StatusCode, "error", apiErr.GraphQLErrors[0])
			return nil, apiErr
		}
	}

	c.logger.Info("Tracking request successful", "operation", operation, "status", resp.StatusCode)
	return parsed.Path("data"), nil
}

// Viewer returns the authenticated caller's identity.
func (c *Client) Viewer() (*Viewer, error) {
	data, err := c.doQuery("viewer", queryViewer, nil)
	if err != nil {
		return nil, err
	}
	node := data.Path("viewer")
	if node == nil || node.Data() == nil {
		return nil, &APIError{StatusCode: http.StatusOK, ResponseBody: "viewer is not present in the response"}
	}
	return &Viewer{
		Username: stringAt(node, "username"),
		Entity:   stringAt(node, "entity"),
	}, nil
}

// Projects lists every project accessible to the caller, walking all pages.
func (c *Client) Projects() ([]Project, error) {
	projects := make([]Project, 0)
	cursor := ""
	done := false
	for !done {
		variables := map[string]any{}
		if cursor != "" {
			variables["cursor"] = cursor
		}
		data, err := c.doQuery("projects", queryProjects, variables)
		if err != nil {
			return nil, err
		}
		page := data.Path("viewer.projects")
		for _, edge := range page.Path("edges").Children() {
			node := edge.Path("node")
			projects = append(projects, Project{
				Name:   stringAt(node, "name"),
				Entity: stringAt(node, "entityName"),
			})
		}
		cursor, done = nextCursor(page)
	}
	return projects, nil
}

// Runs lists every run of one project, walking all pages.
func (c *Client) Runs(entity string, project string) ([]Run, error) {
	runs := make([]Run, 0)
	cursor := ""
	done := false
	for !done {
		variables := map[string]any{
			"entity":  entity,
			"project": project,
			"first":   c.pageSize,
		}
		if cursor != "" {
			variables["cursor"] = cursor
		}
		data, err := c.doQuery("runs", queryRuns, variables)
		if err != nil {
			return nil, err
		}
		page := data.Path("project.runs")
		if page == nil || page.Data() == nil {
			return nil, &APIError{StatusCode: http.StatusOK, ResponseBody: fmt.Sprintf("project %s/%s is not present in the response", entity, project)}
		}
		for _, edge := range page.Path("edges").Children() {
			runs = append(runs, parseRun(edge.Path("node"), entity, project))
		}
		cursor, done = nextCursor(page)
	}
	return runs, nil
}

// History fetches one page of the run's metric history. The stream is not
// restartable: a new scan begins again from an empty cursor.
func (c *Client) History(entity string, project string, runID string, pageSize int, cursor string) (*HistoryPage, error) {
	variables := map[string]any{
		"entity":  entity,
		"project": project,
		"run":     runID,
		"first":   pageSize,
	}
	if cursor != "" {
		variables["cursor"] = cursor
	}
	data, err := c.doQuery("history", queryHistory, variables)
	if err != nil {
		return nil, err
	}
	page := data.Path("project.run.history")
	if page == nil || page.Data() == nil {
		return nil, &APIError{StatusCode: http.StatusOK, ResponseBody: fmt.Sprintf("run %s is not present in the response", runID)}
	}

	result := &HistoryPage{Rows: make([]map[string]any, 0)}
	for _, edge := range page.Path("edges").Children() {
		raw, ok := edge.Path("node").Data().(string)
		if !ok {
			continue
		}
		if row := parseJSONObject(raw); row != nil {
			result.Rows = append(result.Rows, row)
		}
	}
	if next, done := nextCursor(page); !done {
		result.NextCursor = next
	}
	return result, nil
}

// parseRun maps one GraphQL run node onto the platform-native handle. The
// run slug is the node's "name"; the human-readable name is "displayName".
func parseRun(node *gabs.Container, entity string, project string) Run {
	run := Run{
		ID:        stringAt(node, "name"),
		Name:      stringAt(node, "displayName"),
		State:     stringAt(node, "state"),
		Entity:    entity,
		Project:   project,
		CreatedAt: stringAt(node, "createdAt"),
	}
	if run.Name == "" {
		run.Name = run.ID
	}

	// summaryMetrics and systemMetrics are embedded JSON documents; summary
	// keys win when both carry the same key.
	summary := parseEmbeddedObject(node, "systemMetrics")
	for key, value := range parseEmbeddedObject(node, "summaryMetrics") {
		if summary == nil {
			summary = map[string]any{}
		}
		summary[key] = value
	}
	run.Summary = summary
	run.Config = unwrapConfig(parseEmbeddedObject(node, "config"))
	run.Metadata = parseEmbeddedObject(node, "metadata")
	return run
}

// unwrapConfig removes the {"value": ..., "desc": ...} wrappers the platform
// stores around hyperparameter values.
func unwrapConfig(config map[string]any) map[string]any {
	if config == nil {
		return nil
	}
	out := make(map[string]any, len(config))
	for key, value := range config {
		if wrapper, ok := value.(map[string]any); ok {
			if inner, ok := wrapper["value"]; ok {
				out[key] = inner
				continue
			}
		}
		out[key] = value
	}
	return out
}

func parseEmbeddedObject(node *gabs.Container, field string) map[string]any {
	raw, ok := node.Path(field).Data().(string)
	if !ok || raw == "" {
		return nil
	}
	return parseJSONObject(raw)
}

func parseJSONObject(raw string) map[string]any {
	parsed, err := gabs.ParseJSON([]byte(raw))
	if err != nil {
		return nil
	}
	object, ok := parsed.Data().(map[string]any)
	if !ok {
		return nil
	}
	return object
}

func stringAt(node *gabs.Container, path string) string {
	value, _ := node.Path(path).Data().(string)
	return value
}

func nextCursor(page *gabs.Container) (string, bool) {
	hasNext, _ := page.Path("pageInfo.hasNextPage").Data().(bool)
	cursor, _ := page.Path("pageInfo.endCursor").Data().(string)
	if !hasNext || cursor == "" {
		return "", true
	}
	return cursor, false
}
