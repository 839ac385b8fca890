package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/runboard/runboard/internal/handlers"
	"github.com/runboard/runboard/internal/hub"
)

func TestHandleListModels(t *testing.T) {
	catalog := &fakeHubCatalog{
		models: []hub.Listing{
			{Name: "colleen/tiny-llm", Downloads: 42, Likes: 7, Tags: []string{"text-generation"}},
		},
	}
	h := handlers.New(nil, nil, catalog, nil)
	req, resp, w := newTestRequest(t, http.MethodGet, "/api/v1/hub/models")

	h.HandleListModels(createExecutionContext(http.MethodGet, "/api/v1/hub/models"), req, resp)

	assertStatus(t, w, http.StatusOK)
	assertJSONContentType(t, w)

	var response []map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(response) != 1 {
		t.Fatalf("Expected 1 model, got %d", len(response))
	}
	for _, key := range []string{"name", "downloads", "likes", "lastModified", "tags"} {
		if _, ok := response[0][key]; !ok {
			t.Errorf("Response record missing key %q", key)
		}
	}
	if response[0]["lastModified"] != nil {
		t.Errorf("Expected null lastModified, got %v", response[0]["lastModified"])
	}
}

func TestHandleListDatasets(t *testing.T) {
	catalog := &fakeHubCatalog{
		datasets: []hub.Listing{
			{Name: "colleen/eval-set", Downloads: 5, Likes: 1, Tags: []string{}},
		},
	}
	h := handlers.New(nil, nil, catalog, nil)
	req, resp, w := newTestRequest(t, http.MethodGet, "/api/v1/hub/datasets")

	h.HandleListDatasets(createExecutionContext(http.MethodGet, "/api/v1/hub/datasets"), req, resp)

	assertStatus(t, w, http.StatusOK)
	var response []map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(response) != 1 || response[0]["name"] != "colleen/eval-set" {
		t.Fatalf("Unexpected response %v", response)
	}
}
