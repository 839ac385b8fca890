package handlers

import (
	"net/http"

	"github.com/runboard/runboard/internal/executioncontext"
	"github.com/runboard/runboard/internal/http_wrappers"
)

type ProjectResponse struct {
	Name   string `json:"name"`
	Entity string `json:"entity"`
}

// HandleListProjects returns the accessible tracking projects. A listing
// failure degrades to an empty array rather than an error response.
func (h *Handlers) HandleListProjects(ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	response := []ProjectResponse{}
	projects, err := h.projects.Projects()
	if err != nil {
		ctx.Logger.Warn("Failed to list tracking projects", "error", err.Error())
		w.WriteJSON(response, http.StatusOK)
		return
	}

	for _, project := range projects {
		response = append(response, ProjectResponse{
			Name:   project.Name,
			Entity: project.Entity,
		})
	}
	w.WriteJSON(response, http.StatusOK)
}
