package handlers

import (
	"net/http"

	"github.com/runboard/runboard/internal/executioncontext"
	"github.com/runboard/runboard/internal/http_wrappers"
)

// HandleListModels returns the hub model listing for the configured
// credential scope.
func (h *Handlers) HandleListModels(ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	w.WriteJSON(h.hub.Models(), http.StatusOK)
}

// HandleListDatasets returns the hub dataset listing for the configured
// credential scope.
func (h *Handlers) HandleListDatasets(ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	w.WriteJSON(h.hub.Datasets(), http.StatusOK)
}
