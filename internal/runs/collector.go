package runs

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/runboard/runboard/internal/metrics"
	"github.com/runboard/runboard/pkg/wandbclient"
)

// TrackingLister is the slice of the tracking client the collector needs.
type TrackingLister interface {
	Projects() ([]wandbclient.Project, error)
	Runs(entity string, project string) ([]wandbclient.Run, error)
}

// AnonymousSource stands in for the collector when no tracking credential
// is configured. Every listing is empty and no upstream request is made; it
// holds no client at all.
type AnonymousSource struct{}

func (AnonymousSource) Collect(projectFilter string) []NormalizedRun {
	return []NormalizedRun{}
}

func (AnonymousSource) Projects() ([]wandbclient.Project, error) {
	return []wandbclient.Project{}, nil
}

// Collector drives one batch over the tracking platform: enumerate runs,
// normalize each, drop the ones that fail, and sort the survivors by
// creation time descending. Runs are processed one after another with no
// internal parallelism.
type Collector struct {
	client    TrackingLister
	logger    *slog.Logger
	normalize func(wandbclient.Run) NormalizedRun
}

func NewCollector(client TrackingLister) *Collector {
	return &Collector{
		client:    client,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		normalize: Normalize,
	}
}

func (c *Collector) WithLogger(logger *slog.Logger) *Collector {
	if c == nil {
		return nil
	}
	return &Collector{
		client:    c.client,
		logger:    logger,
		normalize: c.normalize,
	}
}

// Collect returns the normalized runs for the given scope. An empty
// projectFilter enumerates every accessible project; otherwise the filter is
// either a bare project name or an "entity/project" pair. Fetch failures
// degrade to an empty (or partial) result and are logged, never propagated.
func (c *Collector) Collect(projectFilter string) []NormalizedRun {
	records := []NormalizedRun{}
	for _, scope := range c.scopes(projectFilter) {
		raw, err := c.client.Runs(scope.Entity, scope.Name)
		if err != nil {
			metrics.UpstreamRequestTotal.WithLabelValues(metrics.PlatformTracking, metrics.OutcomeError).Inc()
			c.logger.Warn("Skipping project that failed to list",
				"entity", scope.Entity, "project", scope.Name, "error", err.Error())
			continue
		}
		metrics.UpstreamRequestTotal.WithLabelValues(metrics.PlatformTracking, metrics.OutcomeSuccess).Inc()
		for _, run := range raw {
			record, ok := c.normalizeRun(run)
			if !ok {
				metrics.RunsDroppedTotal.Inc()
				continue
			}
			metrics.RunsNormalizedTotal.Inc()
			records = append(records, record)
		}
	}

	// CreatedAt is an RFC 3339 string, so lexical order is chronological.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt > records[j].CreatedAt
	})
	return records
}

// scopes resolves the project filter to the list of (entity, project) pairs
// to fetch. A filter naming a bare project is matched against the accessible
// project listing to recover its entity.
func (c *Collector) scopes(projectFilter string) []wandbclient.Project {
	if projectFilter != "" {
		if entity, name, ok := strings.Cut(projectFilter, "/"); ok {
			return []wandbclient.Project{{Name: name, Entity: entity}}
		}
	}

	projects, err := c.client.Projects()
	if err != nil {
		c.logger.Warn("Failed to list projects", "error", err.Error())
		return nil
	}
	if projectFilter == "" {
		return projects
	}

	matched := []wandbclient.Project{}
	for _, project := range projects {
		if project.Name == projectFilter {
			matched = append(matched, project)
		}
	}
	return matched
}

// normalizeRun guards one run's normalization so a malformed record drops
// that run instead of aborting the batch.
func (c *Collector) normalizeRun(run wandbclient.Run) (record NormalizedRun, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("Skipping run that failed to normalize",
				"run_id", run.ID, "error", fmt.Sprintf("%v", r))
			ok = false
		}
	}()
	return c.normalize(run), true
}
