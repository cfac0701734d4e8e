package headless

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLauncherDefaults(t *testing.T) {
	l := NewLauncher(Config{}, nil)
	assert.Equal(t, DefaultUserAgent, l.cfg.UserAgent)
	assert.Contains(t, l.cfg.UserAgent, "Chrome/91.0.4472.124")

	l = NewLauncher(Config{UserAgent: "NewsRankBot/1.0", ExecPath: "/usr/bin/chromium"}, nil)
	assert.Equal(t, "NewsRankBot/1.0", l.cfg.UserAgent)
	assert.NotEmpty(t, l.allocatorOptions())
}

func TestLaunchFlags(t *testing.T) {
	flags := launchFlags()
	for _, name := range []string{"disable-gpu", "disable-dev-shm-usage", "disable-setuid-sandbox", "no-sandbox"} {
		assert.Equal(t, true, flags[name], name)
	}
}

func TestIdleWatcher(t *testing.T) {
	w := newIdleWatcher()
	loader := cdp.LoaderID("loader-1")

	w.observe(loader, "load")
	assert.False(t, w.reached(loader))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, w.wait(ctx, loader))

	go func() {
		time.Sleep(5 * time.Millisecond)
		w.observe(cdp.LoaderID("other"), lifecycleNetworkIdle)
		w.observe(loader, lifecycleNetworkIdle)
	}()
	require.NoError(t, w.wait(context.Background(), loader))
	require.NoError(t, w.wait(context.Background(), ""), "same-document navigations do not wait")
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	s := &Session{
		browserCtx:    ctx,
		browserCancel: func() { calls++; cancel() },
		allocCancel:   func() {},
	}
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, calls)

	_, err := s.Navigate(context.Background(), "https://vnexpress.net")
	require.ErrorContains(t, err, "browser closed")
}

func TestSessionNavigateRendersScripts(t *testing.T) {
	if !chromeAvailable() {
		t.Skip("chrome not installed")
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<!doctype html><html><body><script>document.body.innerHTML = '<div id="ua">'+navigator.userAgent+'</div>';</script></body></html>`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	browser, err := NewLauncher(Config{UserAgent: "NewsRankTest/1.0"}, nil).Launch(ctx)
	if err != nil {
		t.Skipf("chromedp unavailable: %v", err)
	}
	defer func() { _ = browser.Close() }()

	html, err := browser.Navigate(ctx, srv.URL)
	if err != nil {
		t.Skipf("render failed: %v", err)
	}
	assert.Contains(t, html, "NewsRankTest/1.0")
}

func chromeAvailable() bool {
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}
