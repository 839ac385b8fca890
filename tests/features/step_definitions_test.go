package features

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/cucumber/godog"

	"github.com/runboard/runboard/cmd/runboard/server"
	"github.com/runboard/runboard/internal/config"
	"github.com/runboard/runboard/internal/handlers"
	"github.com/runboard/runboard/internal/hub"
	"github.com/runboard/runboard/internal/logging"
	"github.com/runboard/runboard/internal/runs"
	"github.com/runboard/runboard/pkg/hubclient"
	"github.com/runboard/runboard/pkg/wandbclient"
)

// runNode is one stubbed tracking run; the metric fields are embedded as
// JSON strings the way the real platform returns them.
type runNode struct {
	id        string
	name      string
	state     string
	createdAt string
	summary   string
	config    string
}

type testContext struct {
	trackingServer *httptest.Server
	hubServer      *httptest.Server

	projects          []struct{ name, entity string }
	runsByProject     map[string][]runNode
	trackingDown      bool
	trackingAnonymous bool
	trackingRequests  int
	runCounter        int

	hubToken    string
	hubUser     string
	hubModels   []map[string]any
	whoamiCalls int

	lastStatus int
	lastBody   []byte
}

func (tc *testContext) reset() {
	tc.closeServers()
	tc.projects = nil
	tc.runsByProject = map[string][]runNode{}
	tc.trackingDown = false
	tc.trackingAnonymous = false
	tc.trackingRequests = 0
	tc.runCounter = 0
	tc.hubToken = ""
	tc.hubUser = ""
	tc.hubModels = nil
	tc.whoamiCalls = 0
	tc.lastStatus = 0
	tc.lastBody = nil
}

func (tc *testContext) closeServers() {
	if tc.trackingServer != nil {
		tc.trackingServer.Close()
		tc.trackingServer = nil
	}
	if tc.hubServer != nil {
		tc.hubServer.Close()
		tc.hubServer = nil
	}
}

func InitializeTestSuite(ctx *godog.TestSuiteContext) {
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &testContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		tc.closeServers()
		return ctx, nil
	})

	// Tracking platform setup steps
	ctx.Step(`^a tracking project "([^"]*)" owned by "([^"]*)"$`, tc.trackingProject)
	ctx.Step(`^the project "([^"]*)" has a running run "([^"]*)" at step (\d+) of (\d+) after (\d+) seconds$`, tc.runningRun)
	ctx.Step(`^the project "([^"]*)" has a finished run "([^"]*)"$`, tc.finishedRun)
	ctx.Step(`^the tracking platform is unreachable$`, tc.trackingUnreachable)
	ctx.Step(`^no tracking credential is configured$`, tc.noTrackingCredential)

	// Hub setup steps
	ctx.Step(`^no hub credential is configured$`, tc.noHubCredential)
	ctx.Step(`^a hub credential for user "([^"]*)" is configured$`, tc.hubCredentialFor)
	ctx.Step(`^the hub serves a model "([^"]*)"$`, tc.hubModel)

	// Request steps
	ctx.Step(`^I request the run listing$`, tc.requestRunListing)
	ctx.Step(`^I request the run listing for project "([^"]*)"$`, tc.requestScopedRunListing)
	ctx.Step(`^I request the model listing$`, tc.requestModelListing)
	ctx.Step(`^I request the health endpoint$`, tc.requestHealth)

	// Response steps
	ctx.Step(`^the response code should be (\d+)$`, tc.theResponseCodeShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, tc.theResponseShouldContain)
	ctx.Step(`^the listing should contain (\d+) runs?$`, tc.theListingShouldContainRuns)
	ctx.Step(`^the listing should be empty$`, tc.theListingShouldBeEmpty)
	ctx.Step(`^the run "([^"]*)" should have eta "([^"]*)"$`, tc.theRunShouldHaveETA)
	ctx.Step(`^no hub identity call should have been made$`, tc.noIdentityCall)
	ctx.Step(`^no tracking request should have been made$`, tc.noTrackingRequest)
}

// Tracking platform setup steps

func (tc *testContext) trackingProject(name string, entity string) error {
	tc.projects = append(tc.projects, struct{ name, entity string }{name, entity})
	return nil
}

func (tc *testContext) runningRun(project string, id string, step int, total int, runtime int) error {
	tc.addRun(project, runNode{
		id:      id,
		state:   "running",
		summary: fmt.Sprintf(`{"_step":%d,"_runtime":%d}`, step, runtime),
		config:  fmt.Sprintf(`{"steps":{"value":%d}}`, total),
	})
	return nil
}

func (tc *testContext) finishedRun(project string, id string) error {
	tc.addRun(project, runNode{
		id:      id,
		state:   "finished",
		summary: `{"_step":100,"loss":0.2}`,
		config:  `{"steps":{"value":100}}`,
	})
	return nil
}

func (tc *testContext) addRun(project string, node runNode) {
	tc.runCounter++
	node.name = node.id
	node.createdAt = fmt.Sprintf("2026-08-30T%02d:00:00Z", tc.runCounter)
	tc.runsByProject[project] = append(tc.runsByProject[project], node)
}

func (tc *testContext) trackingUnreachable() error {
	tc.trackingDown = true
	return nil
}

func (tc *testContext) noTrackingCredential() error {
	tc.trackingAnonymous = true
	return nil
}

// Hub setup steps

func (tc *testContext) noHubCredential() error {
	tc.hubToken = ""
	return nil
}

func (tc *testContext) hubCredentialFor(user string) error {
	tc.hubToken = "hf_feature_test"
	tc.hubUser = user
	return nil
}

func (tc *testContext) hubModel(name string) error {
	tc.hubModels = append(tc.hubModels, map[string]any{
		"id":        name,
		"modelId":   name,
		"downloads": 100,
		"likes":     3,
	})
	return nil
}

// Request steps

func (tc *testContext) requestRunListing() error {
	return tc.request(http.MethodGet, "/api/v1/tracking/runs")
}

func (tc *testContext) requestScopedRunListing(project string) error {
	return tc.request(http.MethodGet, "/api/v1/tracking/runs?project="+project)
}

func (tc *testContext) requestModelListing() error {
	return tc.request(http.MethodGet, "/api/v1/hub/models")
}

func (tc *testContext) requestHealth() error {
	return tc.request(http.MethodGet, "/api/v1/health")
}

func (tc *testContext) request(method string, target string) error {
	handler, err := tc.buildHandler()
	if err != nil {
		return err
	}

	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	tc.lastStatus = w.Code
	tc.lastBody = w.Body.Bytes()
	return nil
}

// buildHandler wires real clients, the collector and the hub service against
// the stub upstream servers and returns the full route handler.
func (tc *testContext) buildHandler() (http.Handler, error) {
	tc.closeServers()
	tc.trackingServer = httptest.NewServer(http.HandlerFunc(tc.serveTracking))
	tc.hubServer = httptest.NewServer(http.HandlerFunc(tc.serveHub))

	trackingURL := tc.trackingServer.URL
	if tc.trackingDown {
		// a closed listener, every call fails at the transport level
		tc.trackingServer.Close()
	}

	logger, _, err := logging.NewLogger()
	if err != nil {
		return nil, err
	}

	trackingClient := wandbclient.NewClient(trackingURL).
		WithToken("wandb_feature_test").
		WithLogger(logger)
	hubClient := hubclient.NewClient(tc.hubServer.URL).WithLogger(logger)
	if tc.hubToken != "" {
		hubClient = hubClient.WithToken(tc.hubToken)
	}

	serviceConfig := &config.Config{
		Service: &config.ServiceConfig{Port: 0},
		Tracking: &config.TrackingConfig{
			BaseURL: trackingURL,
		},
		Hub: &config.HubConfig{
			BaseURL: tc.hubServer.URL,
		},
	}

	var runSource handlers.RunSource = runs.NewCollector(trackingClient).WithLogger(logger)
	var projectSource handlers.ProjectSource = trackingClient
	if tc.trackingAnonymous {
		runSource = runs.AnonymousSource{}
		projectSource = runs.AnonymousSource{}
	}
	hubService := hub.NewService(hubClient).WithLogger(logger)

	srv, err := server.NewServer(logger, serviceConfig, runSource, projectSource, hubService)
	if err != nil {
		return nil, err
	}
	return srv.SetupRoutes()
}

// serveTracking answers the GraphQL queries the tracking client issues.
func (tc *testContext) serveTracking(w http.ResponseWriter, r *http.Request) {
	tc.trackingRequests++
	body, _ := io.ReadAll(r.Body)
	var request struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}
	if err := json.Unmarshal(body, &request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.Contains(request.Query, "query Projects"):
		edges := []map[string]any{}
		for _, project := range tc.projects {
			edges = append(edges, map[string]any{
				"node": map[string]any{"name": project.name, "entityName": project.entity},
			})
		}
		tc.writeGraphQL(w, map[string]any{
			"viewer": map[string]any{
				"projects": page(edges),
			},
		})
	case strings.Contains(request.Query, "query Runs"):
		project, _ := request.Variables["project"].(string)
		edges := []map[string]any{}
		for _, node := range tc.runsByProject[project] {
			edges = append(edges, map[string]any{
				"node": map[string]any{
					"name":           node.id,
					"displayName":    node.name,
					"state":          node.state,
					"createdAt":      node.createdAt,
					"config":         node.config,
					"summaryMetrics": node.summary,
					"systemMetrics":  "",
					"metadata":       "",
				},
			})
		}
		tc.writeGraphQL(w, map[string]any{
			"project": map[string]any{
				"runs": page(edges),
			},
		})
	case strings.Contains(request.Query, "query Viewer"):
		tc.writeGraphQL(w, map[string]any{
			"viewer": map[string]any{"username": "colleen", "entity": "colleen"},
		})
	default:
		http.Error(w, "unexpected query", http.StatusBadRequest)
	}
}

func page(edges []map[string]any) map[string]any {
	return map[string]any{
		"edges":    edges,
		"pageInfo": map[string]any{"endCursor": "", "hasNextPage": false},
	}
}

func (tc *testContext) writeGraphQL(w http.ResponseWriter, data map[string]any) {
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

// serveHub answers the hub REST endpoints.
func (tc *testContext) serveHub(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/api/whoami-v2":
		tc.whoamiCalls++
		_ = json.NewEncoder(w).Encode(map[string]any{"name": tc.hubUser})
	case "/api/models":
		models := tc.hubModels
		if models == nil {
			models = []map[string]any{}
		}
		_ = json.NewEncoder(w).Encode(models)
	case "/api/datasets":
		_ = json.NewEncoder(w).Encode([]map[string]any{})
	default:
		http.NotFound(w, r)
	}
}

// Response steps

func (tc *testContext) theResponseCodeShouldBe(code int) error {
	if tc.lastStatus != code {
		return fmt.Errorf("expected status %d, got %d: %s", code, tc.lastStatus, tc.lastBody)
	}
	return nil
}

func (tc *testContext) theResponseShouldContain(expected string) error {
	if !strings.Contains(string(tc.lastBody), expected) {
		return fmt.Errorf("expected response to contain %q, got %s", expected, tc.lastBody)
	}
	return nil
}

func (tc *testContext) decodeRuns() ([]map[string]any, error) {
	var records []map[string]any
	if err := json.Unmarshal(tc.lastBody, &records); err != nil {
		return nil, fmt.Errorf("failed to decode run listing: %w: %s", err, tc.lastBody)
	}
	return records, nil
}

func (tc *testContext) theListingShouldContainRuns(count int) error {
	records, err := tc.decodeRuns()
	if err != nil {
		return err
	}
	if len(records) != count {
		return fmt.Errorf("expected %d runs, got %d: %s", count, len(records), tc.lastBody)
	}
	return nil
}

func (tc *testContext) theListingShouldBeEmpty() error {
	return tc.theListingShouldContainRuns(0)
}

func (tc *testContext) theRunShouldHaveETA(id string, eta string) error {
	records, err := tc.decodeRuns()
	if err != nil {
		return err
	}
	for _, record := range records {
		if record["id"] == id {
			if record["eta"] != eta {
				return fmt.Errorf("expected run %q eta %q, got %v", id, eta, record["eta"])
			}
			return nil
		}
	}
	return fmt.Errorf("run %q not found in listing: %s", id, tc.lastBody)
}

func (tc *testContext) noIdentityCall() error {
	if tc.whoamiCalls != 0 {
		return fmt.Errorf("expected no identity call, got %d", tc.whoamiCalls)
	}
	return nil
}

func (tc *testContext) noTrackingRequest() error {
	if tc.trackingRequests != 0 {
		return fmt.Errorf("expected no tracking request, got %d", tc.trackingRequests)
	}
	return nil
}
