package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/runboard/runboard/internal/config"
	"github.com/runboard/runboard/internal/handlers"
)

func TestHandleHealth(t *testing.T) {
	h := handlers.New(nil, nil, nil, &config.Config{
		Service: &config.ServiceConfig{
			Build:     "42",
			BuildDate: "2026-08-30",
		},
	})

	t.Run("GET request returns healthy status", func(t *testing.T) {
		req, resp, w := newTestRequest(t, http.MethodGet, "/api/v1/health")

		h.HandleHealth(createExecutionContext(http.MethodGet, "/api/v1/health"), req, resp)

		assertStatus(t, w, http.StatusOK)
		assertJSONContentType(t, w)

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		if response["status"] != "healthy" {
			t.Errorf("Expected status 'healthy', got %v", response["status"])
		}
		if response["build"] != "42" {
			t.Errorf("Expected build '42', got %v", response["build"])
		}

		timestamp, ok := response["timestamp"].(string)
		if !ok {
			t.Fatal("Response missing timestamp field")
		}
		if _, err := time.Parse(time.RFC3339, timestamp); err != nil {
			t.Errorf("Invalid timestamp format: %v", err)
		}
	})

	t.Run("default build number is suppressed", func(t *testing.T) {
		defaultBuild := handlers.New(nil, nil, nil, &config.Config{
			Service: &config.ServiceConfig{Build: "0.0.1"},
		})
		req, resp, w := newTestRequest(t, http.MethodGet, "/api/v1/health")

		defaultBuild.HandleHealth(createExecutionContext(http.MethodGet, "/api/v1/health"), req, resp)

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if _, ok := response["build"]; ok {
			t.Errorf("Expected build to be omitted, got %v", response["build"])
		}
	})
}
