package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/runboard/runboard/internal/handlers"
	"github.com/runboard/runboard/internal/runs"
)

func TestHandleListRuns(t *testing.T) {
	t.Run("returns normalized runs", func(t *testing.T) {
		source := &fakeRunSource{
			records: []runs.NormalizedRun{
				{
					ID: "run-1", Name: "baseline", State: "running",
					CreatedAt: "2026-08-30T12:00:00Z", ETA: "15m",
					GPU: "A100", GPUUtilization: "42.0%",
					Metrics: map[string]any{"loss": 0.25},
				},
			},
		}
		h := handlers.New(source, nil, nil, nil)
		req, resp, w := newTestRequest(t, http.MethodGet, "/api/v1/tracking/runs")

		h.HandleListRuns(createExecutionContext(http.MethodGet, "/api/v1/tracking/runs"), req, resp)

		assertStatus(t, w, http.StatusOK)
		assertJSONContentType(t, w)
		if source.lastProject != "" {
			t.Errorf("Expected unscoped collection, got project %q", source.lastProject)
		}

		var response []map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if len(response) != 1 {
			t.Fatalf("Expected 1 record, got %d", len(response))
		}
		for _, key := range []string{
			"id", "name", "state", "progress", "totalSteps", "createdAt",
			"eta", "entity", "project", "gpu", "gpuUtilization", "metrics",
		} {
			if _, ok := response[0][key]; !ok {
				t.Errorf("Response record missing key %q", key)
			}
		}
	})

	t.Run("project query parameter scopes the batch", func(t *testing.T) {
		source := &fakeRunSource{}
		h := handlers.New(source, nil, nil, nil)
		req, resp, w := newTestRequest(t, http.MethodGet, "/api/v1/tracking/runs?project=llm-finetune")

		h.HandleListRuns(createExecutionContext(http.MethodGet, "/api/v1/tracking/runs"), req, resp)

		assertStatus(t, w, http.StatusOK)
		if source.lastProject != "llm-finetune" {
			t.Errorf("Expected project llm-finetune, got %q", source.lastProject)
		}
	})

	t.Run("empty batch serializes as an empty array", func(t *testing.T) {
		h := handlers.New(&fakeRunSource{records: []runs.NormalizedRun{}}, nil, nil, nil)
		req, resp, w := newTestRequest(t, http.MethodGet, "/api/v1/tracking/runs")

		h.HandleListRuns(createExecutionContext(http.MethodGet, "/api/v1/tracking/runs"), req, resp)

		if body := w.Body.String(); body != "[]" {
			t.Errorf("Expected [] body, got %q", body)
		}
	})

	t.Run("repeated project parameter is rejected", func(t *testing.T) {
		source := &fakeRunSource{}
		h := handlers.New(source, nil, nil, nil)
		req, resp, w := newTestRequest(t, http.MethodGet, "/api/v1/tracking/runs?project=a&project=b")

		h.HandleListRuns(createExecutionContext(http.MethodGet, "/api/v1/tracking/runs"), req, resp)

		assertStatus(t, w, http.StatusBadRequest)
	})
}
