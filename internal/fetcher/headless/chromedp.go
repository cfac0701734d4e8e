// Package headless renders pages through headless Chrome via chromedp.
package headless

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/newsrank-crawler/internal/crawler"
)

// DefaultUserAgent is the desktop Chrome identity presented to news portals.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// lifecycleNetworkIdle is the page lifecycle event fired once the network is quiet.
const lifecycleNetworkIdle = "networkIdle"

// Config controls how browsers are started.
type Config struct {
	// ExecPath points at the Chrome binary; empty lets chromedp search the PATH.
	ExecPath  string
	UserAgent string
}

// Launcher starts one headless browser per crawl job.
type Launcher struct {
	cfg    Config
	logger *zap.Logger
}

// NewLauncher returns a Launcher; an empty user agent uses DefaultUserAgent.
func NewLauncher(cfg Config, logger *zap.Logger) *Launcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{cfg: cfg, logger: logger.Named("headless")}
}

// launchFlags are the extra Chrome switches every browser starts with.
func launchFlags() map[string]any {
	return map[string]any{
		"headless":               true,
		"disable-gpu":            true,
		"disable-dev-shm-usage":  true,
		"disable-setuid-sandbox": true,
		"no-sandbox":             true,
	}
}

func (l *Launcher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)
	for name, value := range launchFlags() {
		opts = append(opts, chromedp.Flag(name, value))
	}
	opts = append(opts, chromedp.UserAgent(l.cfg.UserAgent))
	if l.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.cfg.ExecPath))
	}
	return opts
}

// Launch starts a browser and waits until it accepts commands. The browser
// lives until the returned session is closed, independent of ctx.
func (l *Launcher) Launch(ctx context.Context) (crawler.Browser, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), l.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	warmupDone := make(chan error, 1)
	go func() { warmupDone <- chromedp.Run(browserCtx) }()
	select {
	case err := <-warmupDone:
		if err != nil {
			browserCancel()
			allocCancel()
			return nil, fmt.Errorf("chromedp warmup: %w", err)
		}
	case <-ctx.Done():
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", ctx.Err())
	}

	l.logger.Debug("browser started", zap.String("exec_path", l.cfg.ExecPath))
	return &Session{
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		userAgent:     l.cfg.UserAgent,
	}, nil
}

// Session is one running browser. Navigate is safe for concurrent use; each
// call renders in its own tab and closes it before returning.
type Session struct {
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	userAgent     string
	closeOnce     sync.Once
}

// Navigate loads rawURL in a fresh tab, waits for network idle, and returns the DOM.
// The tab is bounded by ctx, which carries the per-attempt timeout.
func (s *Session) Navigate(ctx context.Context, rawURL string) (string, error) {
	if err := s.browserCtx.Err(); err != nil {
		return "", fmt.Errorf("browser closed: %w", err)
	}
	tabCtx, tabCancel := chromedp.NewContext(s.browserCtx)
	defer tabCancel()
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	watcher := newIdleWatcher()
	chromedp.ListenTarget(tabCtx, func(ev any) {
		if e, ok := ev.(*page.EventLifecycleEvent); ok {
			watcher.observe(e.LoaderID, e.Name)
		}
	})

	var html string
	err := chromedp.Run(tabCtx,
		emulation.SetUserAgentOverride(s.userAgent),
		page.Enable(),
		page.SetLifecycleEventsEnabled(true),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, loaderID, errorText, _, err := page.Navigate(rawURL).Do(ctx)
			if err != nil {
				return fmt.Errorf("navigate: %w", err)
			}
			if errorText != "" {
				return fmt.Errorf("navigate: %s", errorText)
			}
			return watcher.wait(ctx, loaderID)
		}),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("render %s: %w", rawURL, ctxErr)
		}
		return "", fmt.Errorf("render %s: %w", rawURL, err)
	}
	return html, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.browserCancel()
		s.allocCancel()
	})
	return nil
}

// idleWatcher remembers which loaders have reached network idle.
type idleWatcher struct {
	mu     sync.Mutex
	idle   map[cdp.LoaderID]struct{}
	notify chan struct{}
}

func newIdleWatcher() *idleWatcher {
	return &idleWatcher{idle: make(map[cdp.LoaderID]struct{}), notify: make(chan struct{}, 1)}
}

func (w *idleWatcher) observe(loaderID cdp.LoaderID, name string) {
	if name != lifecycleNetworkIdle {
		return
	}
	w.mu.Lock()
	w.idle[loaderID] = struct{}{}
	w.mu.Unlock()
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

func (w *idleWatcher) reached(loaderID cdp.LoaderID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.idle[loaderID]
	return ok
}

// wait blocks until loaderID is idle. An empty loader ID means a same-document
// navigation, which has nothing to wait for.
func (w *idleWatcher) wait(ctx context.Context, loaderID cdp.LoaderID) error {
	if loaderID == "" {
		return nil
	}
	for {
		if w.reached(loaderID) {
			return nil
		}
		select {
		case <-w.notify:
		case <-ctx.Done():
			return errors.Join(errors.New("waiting for network idle"), ctx.Err())
		}
	}
}
