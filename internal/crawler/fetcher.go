package crawler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/newsrank-crawler/internal/metrics"
)

// DefaultNavTimeout bounds one navigation attempt.
const DefaultNavTimeout = 15 * time.Second

// Fetch stages used in logs and metric labels.
const (
	StageHomepage = "homepage"
	StageMenu     = "menu"
	StageListing  = "listing"
	StageArticle  = "article"
)

// PageFetcher validates a URL and renders it through a Navigator, retrying
// failed attempts under a fixed policy. Each Fetch call gets its own budget.
type PageFetcher struct {
	nav        Navigator
	policy     FixedRetryPolicy
	pauser     Pauser
	navTimeout time.Duration
	stage      string
	logger     *zap.Logger
}

// PageFetcherOption configures a PageFetcher.
type PageFetcherOption func(*PageFetcher)

// WithNavTimeout sets the per-attempt navigation timeout; zero disables it.
func WithNavTimeout(d time.Duration) PageFetcherOption {
	return func(f *PageFetcher) { f.navTimeout = d }
}

// WithPauser overrides the pauser used between attempts.
func WithPauser(p Pauser) PageFetcherOption {
	return func(f *PageFetcher) {
		if p != nil {
			f.pauser = p
		}
	}
}

// NewPageFetcher wires a fetcher around nav.
func NewPageFetcher(nav Navigator, policy FixedRetryPolicy, logger *zap.Logger, opts ...PageFetcherOption) *PageFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.maxAttempts == 0 {
		policy = NewFixedRetryPolicy(DefaultMaxAttempts, DefaultRetryDelay)
	}
	f := &PageFetcher{
		nav:        nav,
		policy:     policy,
		pauser:     NewTimerPauser(),
		navTimeout: DefaultNavTimeout,
		stage:      StageArticle,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ForStage returns a copy of the fetcher that labels its attempts with stage.
func (f *PageFetcher) ForStage(stage string) *PageFetcher {
	clone := *f
	clone.stage = stage
	return &clone
}

// Fetch returns the rendered HTML for rawURL.
func (f *PageFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if !IsValidURL(rawURL) {
		metrics.ObserveFetchAttempt(f.stage, "invalid_url")
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	var html string
	err := Retry(ctx, f.policy, f.pauser, func(ctx context.Context, _ int) error {
		attemptCtx := ctx
		if f.navTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, f.navTimeout)
			defer cancel()
		}
		out, err := f.nav.Navigate(attemptCtx, rawURL)
		if err != nil {
			metrics.ObserveFetchAttempt(f.stage, "error")
			return err
		}
		metrics.ObserveFetchAttempt(f.stage, "success")
		html = out
		return nil
	}, func(attempt int, err error) {
		f.logger.Warn("fetch attempt failed; retrying",
			zap.String("stage", f.stage),
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", f.policy.MaxAttempts()),
			zap.Error(err),
		)
	})
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	return html, nil
}
