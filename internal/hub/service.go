package hub

import (
	"io"
	"log/slog"
	"time"

	"github.com/runboard/runboard/internal/metrics"
	"github.com/runboard/runboard/pkg/hubclient"
)

// Listing is the stable output shape for one hub model or dataset.
type Listing struct {
	Name         string     `json:"name"`
	Downloads    int64      `json:"downloads"`
	Likes        int64      `json:"likes"`
	LastModified *time.Time `json:"lastModified"`
	Tags         []string   `json:"tags"`
}

// Catalog is the slice of the hub client the service needs.
type Catalog interface {
	HasToken() bool
	Whoami() (*hubclient.User, error)
	ListModels(opts hubclient.ListOptions) ([]hubclient.Model, error)
	ListDatasets(opts hubclient.ListOptions) ([]hubclient.Dataset, error)
}

// Service fetches model and dataset listings. With a credential it scopes
// the listing to the authenticated author; without one it requests the
// popular listing directly, skipping the identity call entirely. Failures
// degrade to an empty listing.
type Service struct {
	client       Catalog
	logger       *slog.Logger
	popularLimit int
}

func NewService(client Catalog) *Service {
	return &Service{
		client:       client,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		popularLimit: 50,
	}
}

func (s *Service) WithLogger(logger *slog.Logger) *Service {
	if s == nil {
		return nil
	}
	return &Service{
		client:       s.client,
		logger:       logger,
		popularLimit: s.popularLimit,
	}
}

func (s *Service) WithPopularLimit(limit int) *Service {
	if s == nil {
		return nil
	}
	return &Service{
		client:       s.client,
		logger:       s.logger,
		popularLimit: limit,
	}
}

// Models returns the model listing for the current credential scope.
func (s *Service) Models() []Listing {
	models, err := s.client.ListModels(s.listOptions())
	if err != nil {
		metrics.UpstreamRequestTotal.WithLabelValues(metrics.PlatformHub, metrics.OutcomeError).Inc()
		s.logger.Warn("Failed to list hub models", "error", err.Error())
		return []Listing{}
	}
	metrics.UpstreamRequestTotal.WithLabelValues(metrics.PlatformHub, metrics.OutcomeSuccess).Inc()

	listings := make([]Listing, 0, len(models))
	for _, model := range models {
		name := model.ModelID
		if name == "" {
			name = model.ID
		}
		listings = append(listings, Listing{
			Name:         name,
			Downloads:    model.Downloads,
			Likes:        model.Likes,
			LastModified: model.LastModified,
			Tags:         tagsOrEmpty(model.Tags),
		})
	}
	return listings
}

// Datasets returns the dataset listing for the current credential scope.
func (s *Service) Datasets() []Listing {
	datasets, err := s.client.ListDatasets(s.listOptions())
	if err != nil {
		metrics.UpstreamRequestTotal.WithLabelValues(metrics.PlatformHub, metrics.OutcomeError).Inc()
		s.logger.Warn("Failed to list hub datasets", "error", err.Error())
		return []Listing{}
	}
	metrics.UpstreamRequestTotal.WithLabelValues(metrics.PlatformHub, metrics.OutcomeSuccess).Inc()

	listings := make([]Listing, 0, len(datasets))
	for _, dataset := range datasets {
		listings = append(listings, Listing{
			Name:         dataset.ID,
			Downloads:    dataset.Downloads,
			Likes:        dataset.Likes,
			LastModified: dataset.LastModified,
			Tags:         tagsOrEmpty(dataset.Tags),
		})
	}
	return listings
}

// listOptions picks the listing scope. The anonymous path never touches the
// identity endpoint; a failed identity call falls back to the popular
// listing instead of failing the request.
func (s *Service) listOptions() hubclient.ListOptions {
	popular := hubclient.ListOptions{
		Sort:      "downloads",
		Direction: -1,
		Limit:     s.popularLimit,
	}
	if !s.client.HasToken() {
		return popular
	}

	user, err := s.client.Whoami()
	if err != nil {
		s.logger.Warn("Identity lookup failed, falling back to popular listing", "error", err.Error())
		return popular
	}
	return hubclient.ListOptions{
		Author: user.Name,
		Limit:  s.popularLimit,
	}
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
