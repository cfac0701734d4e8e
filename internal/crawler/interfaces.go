package crawler

import (
	"context"
	"io"
	"time"
)

// Navigator performs one fetch attempt for a URL and returns the rendered HTML.
type Navigator interface {
	Navigate(ctx context.Context, rawURL string) (string, error)
}

// Browser is one headless-browser session shared by every task of a job.
// Each Navigate call opens its own tab and closes it before returning.
type Browser interface {
	Navigator
	Close() error
}

// BrowserLauncher starts a fresh browser session for a job.
type BrowserLauncher interface {
	Launch(ctx context.Context) (Browser, error)
}

// Fetcher returns fully rendered HTML for a URL, applying validation and retries.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// SiteAdapter is the per-portal extraction strategy.
type SiteAdapter interface {
	MenuLinks(homepageHTML string) []string
	SubMenuLinks(menuHTML string, menuURL string) []string
	ArticleStubs(listingHTML string) []ArticleStub
	// ExtractArticle returns ok=false when the page does not qualify
	// (missing date, unparsable date, no engagement element).
	ExtractArticle(articleHTML string, rawURL string, title string) (Article, bool)
}

// SiteCatalog resolves a public site identifier to its descriptor and adapter.
type SiteCatalog interface {
	Lookup(siteID string) (Site, SiteAdapter, bool)
}

// JobRunner executes one crawl job for an already-acquired site.
type JobRunner interface {
	Run(ctx context.Context, site Site, adapter SiteAdapter) (JobSummary, error)
}

// ArticleStore owns the persisted raw log and ranked snapshots.
type ArticleStore interface {
	AppendIfQualifies(ctx context.Context, article Article, executeTime time.Time) error
	RecomputeTop(ctx context.Context, site Site, executeTime time.Time) (ArticleData, error)
	LoadTop(ctx context.Context, site Site) (ArticleData, error)
}

// Publisher pushes crawl completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// BlobStore writes ranked snapshots to an external bucket and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Pauser blocks between retry attempts.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}
