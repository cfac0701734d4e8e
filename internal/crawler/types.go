package crawler

import (
	"errors"
	"time"
)

// Sentinel errors surfaced by the crawl service and fetch layer.
var (
	// ErrInvalidSite is returned when a site identifier is not in the supported set.
	ErrInvalidSite = errors.New("invalid website")
	// ErrAlreadyRunning is returned when a crawl for the site is already active.
	ErrAlreadyRunning = errors.New("website is already being processed")
	// ErrCrawlFailed wraps unexpected job-fatal failures.
	ErrCrawlFailed = errors.New("crawl failed")
	// ErrInvalidURL marks URLs rejected by the shape check before any network access.
	ErrInvalidURL = errors.New("invalid url")
	// ErrFetchExhausted is returned once every fetch attempt for a URL failed.
	ErrFetchExhausted = errors.New("fetch attempts exhausted")
	// ErrNoMenuLinks marks a homepage that yielded no navigation links.
	ErrNoMenuLinks = errors.New("no menu links found")
)

// JobStatus represents how a crawl job finished.
type JobStatus string

// Job status values reported by the coordinator and exported as metric labels.
const (
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusDegraded  JobStatus = "degraded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRejected  JobStatus = "rejected"
)

// Site describes one supported news portal.
type Site struct {
	// ID is the portal's canonical homepage URL and the public site identifier.
	ID string
	// Slug names the per-site snapshot file (top_articles_<slug>.json).
	Slug string
}

// ArticleStub is a discovered article that has not been deep-fetched yet.
type ArticleStub struct {
	URL           string
	Title         string
	HasEngagement bool
}

// Article is the persisted unit: one qualifying article page.
type Article struct {
	Website    string    `json:"website"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	TotalLikes int       `json:"totalLikes"`
	Date       time.Time `json:"date"`
}

// ArticleData is the on-disk snapshot shape for both the raw log and ranked views.
type ArticleData struct {
	ExecuteTime time.Time `json:"executeTime"`
	Articles    []Article `json:"articles"`
}

// Clone returns a deep copy so callers never share the store's slice.
func (d ArticleData) Clone() ArticleData {
	out := ArticleData{ExecuteTime: d.ExecuteTime, Articles: make([]Article, len(d.Articles))}
	copy(out.Articles, d.Articles)
	return out
}

// CompletedEvent is published once a job has recomputed its ranked snapshot.
type CompletedEvent struct {
	JobID            string    `json:"job_id"`
	Site             string    `json:"site"`
	Status           JobStatus `json:"status"`
	ArticlesAppended int       `json:"articles_appended"`
	TopCount         int       `json:"top_count"`
	SnapshotURI      string    `json:"snapshot_uri,omitempty"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
}

// JobSummary reports what one crawl job did.
type JobSummary struct {
	JobID            string    `json:"job_id"`
	Site             string    `json:"site"`
	Status           JobStatus `json:"status"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
	MenuLinks        int       `json:"menu_links"`
	ListingsVisited  int       `json:"listings_visited"`
	ArticlesFetched  int       `json:"articles_fetched"`
	ArticlesAppended int       `json:"articles_appended"`
	Failures         int       `json:"failures"`
	TopCount         int       `json:"top_count"`
}
