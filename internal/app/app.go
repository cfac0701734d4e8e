// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/newsrank-crawler/internal/clock/system"
	"github.com/JakeFAU/newsrank-crawler/internal/config"
	"github.com/JakeFAU/newsrank-crawler/internal/crawler"
	collyfetcher "github.com/JakeFAU/newsrank-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/newsrank-crawler/internal/fetcher/headless"
	"github.com/JakeFAU/newsrank-crawler/internal/id/uuid"
	"github.com/JakeFAU/newsrank-crawler/internal/metrics"
	pubsubpublisher "github.com/JakeFAU/newsrank-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/newsrank-crawler/internal/site"
	"github.com/JakeFAU/newsrank-crawler/internal/storage/gcs"
	"github.com/JakeFAU/newsrank-crawler/internal/storage/local"
)

// App holds the shared, long-lived services for one process. It is built once
// at startup and handed to the HTTP server or a CLI command.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	catalog   *site.Catalog
	service   *crawler.Service
	ids       crawler.IDGenerator
	publisher crawler.Publisher
	blob      crawler.BlobStore
	closers   []func() error
}

// Option overrides a collaborator, mainly for tests.
type Option func(*builder)

type builder struct {
	launcher  crawler.BrowserLauncher
	publisher crawler.Publisher
	blob      crawler.BlobStore
}

// WithLauncher replaces the chromedp launcher.
func WithLauncher(l crawler.BrowserLauncher) Option {
	return func(b *builder) { b.launcher = l }
}

// WithPublisher replaces the configured publisher.
func WithPublisher(p crawler.Publisher) Option {
	return func(b *builder) { b.publisher = p }
}

// WithBlobStore replaces the configured snapshot mirror.
func WithBlobStore(s crawler.BlobStore) Option {
	return func(b *builder) { b.blob = s }
}

// New wires storage, fetchers, publishers and the crawl service from cfg.
// It fails fast when a configured cloud dependency cannot be reached.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &builder{}
	for _, opt := range opts {
		opt(b)
	}
	metrics.Init()

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	a := &App{
		cfg:     cfg,
		logger:  logger,
		catalog: site.Default(logger),
		ids:     uuid.New(),
	}
	clock := system.New(loc)

	store, err := local.NewArticleStore(cfg.Storage.OutputDir, clock, logger)
	if err != nil {
		return nil, fmt.Errorf("init article store: %w", err)
	}

	if a.blob, err = a.buildBlobStore(ctx, b.blob); err != nil {
		a.Close()
		return nil, err
	}
	if a.publisher, err = a.buildPublisher(ctx, b.publisher); err != nil {
		a.Close()
		return nil, err
	}

	launcher := b.launcher
	if launcher == nil {
		launcher = headless.NewLauncher(headless.Config{
			ExecPath:  cfg.Headless.ExecPath,
			UserAgent: cfg.Crawler.UserAgent,
		}, logger)
	}
	var homepage crawler.Navigator
	if cfg.Crawler.HomepageMode == config.HomepageModeStatic {
		logger.Info("fetching homepages over plain HTTP")
		homepage = collyfetcher.New(collyfetcher.Config{
			UserAgent: cfg.Crawler.UserAgent,
			Timeout:   cfg.NavTimeout(),
		})
	}

	registry := crawler.NewRegistry()
	coordinator, err := crawler.NewCoordinator(crawler.CoordinatorConfig{
		MenuBatch:      cfg.Crawler.BatchMenu,
		ArticleBatch:   cfg.Crawler.BatchArticle,
		Location:       loc,
		RetryPolicy:    crawler.NewFixedRetryPolicy(cfg.Headless.MaxAttempts, cfg.RetryDelay()),
		NavTimeout:     cfg.NavTimeout(),
		Topic:          crawler.TopicCrawlCompleted,
		SnapshotPrefix: cfg.Storage.GCSPrefix,
	}, crawler.CoordinatorDeps{
		Launcher:          launcher,
		HomepageNavigator: homepage,
		Store:             store,
		Registry:          registry,
		Blob:              a.blob,
		Publisher:         a.publisher,
		Clock:             clock,
		IDs:               a.ids,
		Pauser:            crawler.NewTimerPauser(),
		Logger:            logger,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init coordinator: %w", err)
	}

	a.service, err = crawler.NewService(a.catalog, registry, coordinator, store, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init service: %w", err)
	}

	logger.Info("application services initialized",
		zap.String("output_dir", cfg.Storage.OutputDir),
		zap.String("homepage_mode", cfg.Crawler.HomepageMode),
		zap.Int("batch_menu", cfg.Crawler.BatchMenu),
		zap.Int("batch_article", cfg.Crawler.BatchArticle),
	)
	return a, nil
}

func (a *App) buildBlobStore(ctx context.Context, override crawler.BlobStore) (crawler.BlobStore, error) {
	if override != nil {
		return override, nil
	}
	switch {
	case a.cfg.Storage.GCSBucket != "":
		a.logger.Info("mirroring snapshots to GCS", zap.String("bucket", a.cfg.Storage.GCSBucket))
		store, err := gcs.Dial(ctx, a.cfg.Storage.GCSBucket)
		if err != nil {
			return nil, fmt.Errorf("init gcs mirror: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case a.cfg.Storage.MirrorDir != "":
		a.logger.Info("mirroring snapshots to local directory", zap.String("dir", a.cfg.Storage.MirrorDir))
		store, err := local.NewBlobStore(a.cfg.Storage.MirrorDir)
		if err != nil {
			return nil, fmt.Errorf("init local mirror: %w", err)
		}
		return store, nil
	default:
		return nil, nil
	}
}

func (a *App) buildPublisher(ctx context.Context, override crawler.Publisher) (crawler.Publisher, error) {
	if override != nil {
		return override, nil
	}
	if a.cfg.PubSub.TopicName == "" {
		return nil, nil
	}
	a.logger.Info("publishing crawl events to Pub/Sub",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.TopicName),
	)
	pub, closeFn, err := pubsubpublisher.Dial(ctx, a.cfg.PubSub.ProjectID, a.cfg.PubSub.TopicName)
	if err != nil {
		return nil, fmt.Errorf("init pubsub publisher: %w", err)
	}
	a.closers = append(a.closers, closeFn)
	return pub, nil
}

// Service returns the crawl service.
func (a *App) Service() *crawler.Service { return a.service }

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// IDs returns the process ID generator.
func (a *App) IDs() crawler.IDGenerator { return a.ids }

// Sites lists every supported site.
func (a *App) Sites() []crawler.Site { return a.catalog.Sites() }

// Close releases cloud clients in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("error closing service", zap.Error(err))
		}
	}
	a.closers = nil
}
