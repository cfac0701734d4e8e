package crawler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/newsrank-crawler/internal/metrics"
)

// Service is the entry point used by the HTTP surface and the CLI.
type Service struct {
	catalog  SiteCatalog
	registry *Registry
	runner   JobRunner
	store    ArticleStore
	logger   *zap.Logger
}

// NewService wires a Service. The registry must be the one the runner sizes its batches from.
func NewService(catalog SiteCatalog, registry *Registry, runner JobRunner, store ArticleStore, logger *zap.Logger) (*Service, error) {
	if catalog == nil || runner == nil || store == nil {
		return nil, errors.New("service requires a site catalog, job runner and article store")
	}
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{catalog: catalog, registry: registry, runner: runner, store: store, logger: logger}, nil
}

// StartCrawl runs one job for siteID and blocks until it finishes.
// It returns ErrInvalidSite, ErrAlreadyRunning or ErrCrawlFailed.
func (s *Service) StartCrawl(ctx context.Context, siteID string) (JobSummary, error) {
	site, adapter, ok := s.catalog.Lookup(siteID)
	if !ok {
		return JobSummary{}, fmt.Errorf("%w: %q", ErrInvalidSite, siteID)
	}
	if !s.registry.TryAcquire(site.ID) {
		metrics.ObserveJob(site.ID, string(JobStatusRejected), 0)
		s.logger.Info("crawl rejected; already running", zap.String("site", site.ID))
		return JobSummary{}, fmt.Errorf("%w: %s", ErrAlreadyRunning, site.ID)
	}
	metrics.IncActiveJobs()
	defer func() {
		s.registry.Release(site.ID)
		metrics.DecActiveJobs()
	}()

	summary, err := s.run(ctx, site, adapter)
	if err != nil {
		s.logger.Error("crawl job failed", zap.String("site", site.ID), zap.String("job_id", summary.JobID), zap.Error(err))
		return summary, fmt.Errorf("%w: %w", ErrCrawlFailed, err)
	}
	return summary, nil
}

func (s *Service) run(ctx context.Context, site Site, adapter SiteAdapter) (summary JobSummary, err error) {
	defer func() {
		if r := recover(); r != nil {
			summary.Status = JobStatusFailed
			err = fmt.Errorf("job panic: %v", r)
		}
	}()
	return s.runner.Run(ctx, site, adapter)
}

// LoadTop returns the ranked snapshot for siteID; missing data yields an empty snapshot.
func (s *Service) LoadTop(ctx context.Context, siteID string) (ArticleData, error) {
	site, _, ok := s.catalog.Lookup(siteID)
	if !ok {
		return ArticleData{}, fmt.Errorf("%w: %q", ErrInvalidSite, siteID)
	}
	data, err := s.store.LoadTop(ctx, site)
	if err != nil {
		return ArticleData{}, fmt.Errorf("load top for %s: %w", site.ID, err)
	}
	if data.Articles == nil {
		data.Articles = []Article{}
	}
	return data, nil
}

// Running lists sites with an active job.
func (s *Service) Running() []string {
	return s.registry.Active()
}
