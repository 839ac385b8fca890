package handlers

import (
	"github.com/runboard/runboard/internal/config"
	"github.com/runboard/runboard/internal/hub"
	"github.com/runboard/runboard/internal/runs"
	"github.com/runboard/runboard/pkg/wandbclient"
)

// RunSource produces normalized runs for an optional project scope.
type RunSource interface {
	Collect(projectFilter string) []runs.NormalizedRun
}

// ProjectSource lists the accessible tracking projects.
type ProjectSource interface {
	Projects() ([]wandbclient.Project, error)
}

// HubCatalog produces hub model and dataset listings.
type HubCatalog interface {
	Models() []hub.Listing
	Datasets() []hub.Listing
}

type Handlers struct {
	runs          RunSource
	projects      ProjectSource
	hub           HubCatalog
	serviceConfig *config.Config
}

func New(runSource RunSource, projects ProjectSource, catalog HubCatalog, serviceConfig *config.Config) *Handlers {
	return &Handlers{
		runs:          runSource,
		projects:      projects,
		hub:           catalog,
		serviceConfig: serviceConfig,
	}
}
