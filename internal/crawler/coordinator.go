package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/JakeFAU/newsrank-crawler/internal/metrics"
)

// TopicCrawlCompleted is the default event topic for finished jobs.
const TopicCrawlCompleted = "crawl.completed"

// CoordinatorConfig carries the tunables for crawl jobs.
type CoordinatorConfig struct {
	// MenuBatch and ArticleBatch are the configured ceilings before fair-share division.
	MenuBatch    int
	ArticleBatch int
	// Location anchors the "from last Monday" filter.
	Location    *time.Location
	RetryPolicy FixedRetryPolicy
	NavTimeout  time.Duration
	// Topic receives CompletedEvent payloads when a Publisher is set.
	Topic string
	// SnapshotPrefix is the object prefix for mirrored ranked snapshots.
	SnapshotPrefix string
}

// CoordinatorDeps bundles the collaborators a Coordinator needs.
type CoordinatorDeps struct {
	Launcher BrowserLauncher
	// HomepageNavigator, when set, fetches the homepage instead of the browser.
	HomepageNavigator Navigator
	Store             ArticleStore
	Registry          *Registry
	Blob              BlobStore
	Publisher         Publisher
	Clock             Clock
	IDs               IDGenerator
	Pauser            Pauser
	Logger            *zap.Logger
}

// Coordinator runs crawl jobs: homepage, menus, sub-menus, articles, then ranking.
type Coordinator struct {
	cfg  CoordinatorConfig
	deps CoordinatorDeps
}

// NewCoordinator validates deps and fills defaults.
func NewCoordinator(cfg CoordinatorConfig, deps CoordinatorDeps) (*Coordinator, error) {
	if deps.Launcher == nil {
		return nil, errors.New("coordinator requires a browser launcher")
	}
	if deps.Store == nil {
		return nil, errors.New("coordinator requires an article store")
	}
	if deps.Registry == nil {
		deps.Registry = NewRegistry()
	}
	if deps.Clock == nil {
		deps.Clock = wallClock{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Pauser == nil {
		deps.Pauser = NewTimerPauser()
	}
	if cfg.MenuBatch < 1 {
		cfg.MenuBatch = 1
	}
	if cfg.ArticleBatch < 1 {
		cfg.ArticleBatch = 8
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.RetryPolicy.MaxAttempts() == 0 {
		cfg.RetryPolicy = NewFixedRetryPolicy(DefaultMaxAttempts, DefaultRetryDelay)
	}
	if cfg.Topic == "" {
		cfg.Topic = TopicCrawlCompleted
	}
	return &Coordinator{cfg: cfg, deps: deps}, nil
}

// crawlJob is the per-run state shared by every task of one job.
type crawlJob struct {
	id        string
	site      Site
	adapter   SiteAdapter
	startedAt time.Time
	fetcher   *PageFetcher
	articles  visitTracker
	listings  visitTracker
	inFlight  *semaphore.Weighted
	menuBatch int
	artBatch  int
	logger    *zap.Logger

	listingsVisited  atomic.Int64
	articlesFetched  atomic.Int64
	articlesAppended atomic.Int64
	failures         atomic.Int64
}

// Run executes one job. A non-nil error means the job failed outright;
// individual link failures only show up in the summary and logs.
func (c *Coordinator) Run(ctx context.Context, site Site, adapter SiteAdapter) (JobSummary, error) {
	startedAt := c.deps.Clock.Now()
	jobID := c.newJobID()
	logger := c.deps.Logger.With(zap.String("job_id", jobID), zap.String("site", site.ID))

	summary := JobSummary{JobID: jobID, Site: site.ID, StartedAt: startedAt, Status: JobStatusSucceeded}
	defer func() {
		metrics.ObserveJob(site.ID, string(summary.Status), summary.FinishedAt.Sub(startedAt))
	}()

	browser, err := c.deps.Launcher.Launch(ctx)
	if err != nil {
		summary.Status = JobStatusFailed
		summary.FinishedAt = c.deps.Clock.Now()
		return summary, fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		if cerr := browser.Close(); cerr != nil {
			logger.Warn("failed to close browser", zap.Error(cerr))
		}
	}()

	active := c.deps.Registry.ActiveCount()
	artBatch := fairShare(c.cfg.ArticleBatch, active)
	job := &crawlJob{
		id:        jobID,
		site:      site,
		adapter:   adapter,
		startedAt: startedAt,
		fetcher: NewPageFetcher(browser, c.cfg.RetryPolicy, logger,
			WithNavTimeout(c.cfg.NavTimeout), WithPauser(c.deps.Pauser)),
		articles:  newConcurrentVisitTracker(),
		listings:  newConcurrentVisitTracker(),
		inFlight:  semaphore.NewWeighted(int64(artBatch)),
		menuBatch: fairShare(c.cfg.MenuBatch, active),
		artBatch:  artBatch,
		logger:    logger,
	}
	logger.Info("crawl job started",
		zap.Int("active_jobs", active),
		zap.Int("menu_batch", job.menuBatch),
		zap.Int("article_batch", job.artBatch),
	)

	menus, err := c.discoverMenus(ctx, job)
	if err != nil {
		// The stored top list is left as it was.
		summary.Status = JobStatusDegraded
		summary.FinishedAt = c.deps.Clock.Now()
		logger.Warn("crawl ended early without menu traversal", zap.Error(err))
		return summary, nil
	}
	summary.MenuLinks = len(menus)

	err = RunBatches(ctx, menus, job.menuBatch, func(ctx context.Context, menuURL string) error {
		return c.processMenu(ctx, job, menuURL)
	}, job.reportFailure(StageMenu))
	if err != nil {
		logger.Warn("menu traversal interrupted", zap.Error(err))
		summary.Status = JobStatusDegraded
	}

	summary.ListingsVisited = int(job.listingsVisited.Load())
	summary.ArticlesFetched = int(job.articlesFetched.Load())
	summary.ArticlesAppended = int(job.articlesAppended.Load())
	summary.Failures = int(job.failures.Load())

	top, err := c.deps.Store.RecomputeTop(ctx, site, startedAt)
	if err != nil {
		summary.Status = JobStatusFailed
		summary.FinishedAt = c.deps.Clock.Now()
		return summary, fmt.Errorf("recompute top articles: %w", err)
	}
	summary.TopCount = len(top.Articles)
	summary.FinishedAt = c.deps.Clock.Now()

	uri := c.mirrorSnapshot(ctx, job, top)
	c.publishCompleted(ctx, job, summary, uri)

	logger.Info("crawl job finished",
		zap.String("status", string(summary.Status)),
		zap.Int("menu_links", summary.MenuLinks),
		zap.Int("listings", summary.ListingsVisited),
		zap.Int("articles_fetched", summary.ArticlesFetched),
		zap.Int("articles_appended", summary.ArticlesAppended),
		zap.Int("failures", summary.Failures),
		zap.Int("top_count", summary.TopCount),
		zap.Duration("elapsed", summary.FinishedAt.Sub(startedAt)),
	)
	return summary, nil
}

func (c *Coordinator) discoverMenus(ctx context.Context, job *crawlJob) ([]string, error) {
	homeFetcher := job.fetcher
	if c.deps.HomepageNavigator != nil {
		homeFetcher = NewPageFetcher(c.deps.HomepageNavigator, c.cfg.RetryPolicy, job.logger,
			WithNavTimeout(c.cfg.NavTimeout), WithPauser(c.deps.Pauser))
	}
	html, err := homeFetcher.ForStage(StageHomepage).Fetch(ctx, job.site.ID)
	if err != nil {
		return nil, fmt.Errorf("homepage: %w", err)
	}
	menus := job.adapter.MenuLinks(html)
	if len(menus) == 0 {
		metrics.ObserveExtractionMiss(job.site.ID, "no_menu_links")
		return nil, ErrNoMenuLinks
	}
	job.logger.Info("menu links discovered", zap.Int("count", len(menus)))
	return menus, nil
}

func (c *Coordinator) processMenu(ctx context.Context, job *crawlJob, menuURL string) error {
	if !job.listings.MarkIfNew(menuURL) {
		return nil
	}
	html, err := job.fetcher.ForStage(StageMenu).Fetch(ctx, menuURL)
	if err != nil {
		return err
	}
	job.listingsVisited.Add(1)
	c.processListing(ctx, job, html)

	subs := job.adapter.SubMenuLinks(html, menuURL)
	if len(subs) == 0 {
		return nil
	}
	job.logger.Debug("sub-menu links discovered", zap.String("menu", menuURL), zap.Int("count", len(subs)))
	return RunBatches(ctx, subs, job.menuBatch, func(ctx context.Context, subURL string) error {
		if !job.listings.MarkIfNew(subURL) {
			return nil
		}
		html, err := job.fetcher.ForStage(StageListing).Fetch(ctx, subURL)
		if err != nil {
			return err
		}
		job.listingsVisited.Add(1)
		c.processListing(ctx, job, html)
		return nil
	}, job.reportFailure(StageListing))
}

func (c *Coordinator) processListing(ctx context.Context, job *crawlJob, html string) {
	var queued []ArticleStub
	for _, stub := range job.adapter.ArticleStubs(html) {
		if !stub.HasEngagement {
			continue
		}
		if !job.articles.MarkIfNew(stub.URL) {
			continue
		}
		queued = append(queued, stub)
	}
	if len(queued) == 0 {
		return
	}
	err := RunBatches(ctx, queued, job.artBatch, func(ctx context.Context, stub ArticleStub) error {
		return c.processArticle(ctx, job, stub)
	}, job.reportArticleFailure())
	if err != nil {
		job.logger.Warn("article batch interrupted", zap.Error(err))
	}
}

func (c *Coordinator) processArticle(ctx context.Context, job *crawlJob, stub ArticleStub) error {
	if err := job.inFlight.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire article slot: %w", err)
	}
	defer job.inFlight.Release(1)

	html, err := job.fetcher.ForStage(StageArticle).Fetch(ctx, stub.URL)
	if err != nil {
		return err
	}
	job.articlesFetched.Add(1)

	article, ok := job.adapter.ExtractArticle(html, stub.URL, stub.Title)
	if !ok {
		return nil
	}
	if !FromLastMonday(article.Date, job.startedAt, c.cfg.Location) {
		metrics.ObserveExtractionMiss(job.site.ID, "before_week_start")
		job.logger.Debug("article predates week start",
			zap.String("url", stub.URL), zap.Time("published", article.Date))
		return nil
	}
	if err := c.deps.Store.AppendIfQualifies(ctx, article, job.startedAt); err != nil {
		return fmt.Errorf("append article: %w", err)
	}
	job.articlesAppended.Add(1)
	metrics.ObserveArticleAppended(job.site.ID)
	return nil
}

func (c *Coordinator) mirrorSnapshot(ctx context.Context, job *crawlJob, top ArticleData) string {
	if c.deps.Blob == nil {
		return ""
	}
	body, err := json.Marshal(top)
	if err != nil {
		job.logger.Warn("failed to encode snapshot for mirror", zap.Error(err))
		return ""
	}
	name := path.Join(c.cfg.SnapshotPrefix, "top_articles_"+job.site.Slug+".json")
	uri, err := c.deps.Blob.PutObject(ctx, name, "application/json", bytes.NewReader(body))
	if err != nil {
		job.logger.Warn("failed to mirror snapshot", zap.String("object", name), zap.Error(err))
		return ""
	}
	job.logger.Debug("snapshot mirrored", zap.String("uri", uri))
	return uri
}

func (c *Coordinator) publishCompleted(ctx context.Context, job *crawlJob, summary JobSummary, uri string) {
	if c.deps.Publisher == nil {
		return
	}
	event := CompletedEvent{
		JobID:            job.id,
		Site:             job.site.ID,
		Status:           summary.Status,
		ArticlesAppended: summary.ArticlesAppended,
		TopCount:         summary.TopCount,
		SnapshotURI:      uri,
		StartedAt:        summary.StartedAt,
		FinishedAt:       summary.FinishedAt,
	}
	msgID, err := c.deps.Publisher.Publish(ctx, c.cfg.Topic, event)
	if err != nil {
		job.logger.Warn("failed to publish completion event", zap.Error(err))
		return
	}
	job.logger.Debug("completion event published", zap.String("message_id", msgID))
}

func (c *Coordinator) newJobID() string {
	if c.deps.IDs == nil {
		return ""
	}
	id, err := c.deps.IDs.NewID()
	if err != nil {
		c.deps.Logger.Warn("failed to generate job id", zap.Error(err))
		return ""
	}
	return id
}

func (j *crawlJob) reportFailure(stage string) func(string, error) {
	return func(rawURL string, err error) {
		j.failures.Add(1)
		j.logger.Warn("link failed", zap.String("stage", stage), zap.String("url", rawURL), zap.Error(err))
	}
}

func (j *crawlJob) reportArticleFailure() func(ArticleStub, error) {
	return func(stub ArticleStub, err error) {
		j.failures.Add(1)
		j.logger.Warn("article failed",
			zap.String("stage", StageArticle), zap.String("url", stub.URL), zap.Error(err))
	}
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }
