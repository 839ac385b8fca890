package handlers

import (
	"net/http"

	"github.com/runboard/runboard/internal/constants"
	"github.com/runboard/runboard/internal/executioncontext"
	"github.com/runboard/runboard/internal/http_wrappers"
	"github.com/runboard/runboard/internal/messages"
)

// HandleListRuns returns the normalized run snapshot, optionally scoped to a
// single project via the "project" query parameter. Upstream failures have
// already been degraded to a partial or empty listing by the collector, so
// this handler always answers 200 with a JSON array.
func (h *Handlers) HandleListRuns(ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	values := r.Query(constants.QUERY_PARAMETER_PROJECT)
	if len(values) > 1 {
		w.ErrorWithMessageCode(ctx.RequestID, messages.QueryParameterInvalid,
			"ParameterName", constants.QUERY_PARAMETER_PROJECT,
			"Type", "single value",
			"Value", values)
		return
	}

	project := ""
	if len(values) == 1 {
		project = values[0]
	}

	records := h.runs.Collect(project)
	w.WriteJSON(records, http.StatusOK)
}
