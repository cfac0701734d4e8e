package crawler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCatalog map[string]Site

func (c mapCatalog) Lookup(siteID string) (Site, SiteAdapter, bool) {
	site, ok := c[siteID]
	if !ok {
		return Site{}, nil, false
	}
	return site, &mapAdapter{}, true
}

type blockingRunner struct {
	mu      sync.Mutex
	runs    int
	started chan struct{}
	release chan struct{}
	err     error
	panicOn bool
}

func (r *blockingRunner) Run(_ context.Context, site Site, _ SiteAdapter) (JobSummary, error) {
	r.mu.Lock()
	r.runs++
	r.mu.Unlock()
	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.release != nil {
		<-r.release
	}
	if r.panicOn {
		panic("nil pointer in adapter")
	}
	return JobSummary{JobID: "job-1", Site: site.ID, Status: JobStatusSucceeded}, r.err
}

func newTestService(t *testing.T, runner JobRunner, store ArticleStore) (*Service, *Registry) {
	t.Helper()
	registry := NewRegistry()
	catalog := mapCatalog{
		"https://vnexpress.net": {ID: "https://vnexpress.net", Slug: "vnexpress"},
		"https://tuoitre.vn":    {ID: "https://tuoitre.vn", Slug: "tuoitre"},
	}
	svc, err := NewService(catalog, registry, runner, store, nil)
	require.NoError(t, err)
	return svc, registry
}

func TestStartCrawlRejectsUnknownSite(t *testing.T) {
	runner := &blockingRunner{}
	svc, _ := newTestService(t, runner, newMemoryArticleStore())

	_, err := svc.StartCrawl(context.Background(), "https://example.com")
	require.ErrorIs(t, err, ErrInvalidSite)
	assert.Zero(t, runner.runs)
}

func TestStartCrawlSameSiteConcurrently(t *testing.T) {
	runner := &blockingRunner{started: make(chan struct{}, 2), release: make(chan struct{})}
	svc, registry := newTestService(t, runner, newMemoryArticleStore())

	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.StartCrawl(context.Background(), "https://vnexpress.net")
		firstErr <- err
	}()
	<-runner.started

	_, err := svc.StartCrawl(context.Background(), "https://vnexpress.net")
	require.ErrorIs(t, err, ErrAlreadyRunning)
	assert.Equal(t, []string{"https://vnexpress.net"}, svc.Running())

	close(runner.release)
	require.NoError(t, <-firstErr)
	assert.Equal(t, 1, runner.runs)
	assert.Zero(t, registry.ActiveCount())
}

func TestStartCrawlDifferentSitesRunTogether(t *testing.T) {
	runner := &blockingRunner{started: make(chan struct{}, 2), release: make(chan struct{})}
	svc, registry := newTestService(t, runner, newMemoryArticleStore())

	var wg sync.WaitGroup
	for _, site := range []string{"https://vnexpress.net", "https://tuoitre.vn"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.StartCrawl(context.Background(), site)
			assert.NoError(t, err)
		}()
	}
	<-runner.started
	<-runner.started
	assert.Equal(t, 2, registry.ActiveCount())
	close(runner.release)
	wg.Wait()
	assert.Zero(t, registry.ActiveCount())
}

func TestStartCrawlReleasesSlotOnFailure(t *testing.T) {
	runner := &blockingRunner{err: errors.New("recompute top articles: disk full")}
	svc, registry := newTestService(t, runner, newMemoryArticleStore())

	_, err := svc.StartCrawl(context.Background(), "https://tuoitre.vn")
	require.ErrorIs(t, err, ErrCrawlFailed)
	assert.ErrorContains(t, err, "disk full")
	assert.Zero(t, registry.ActiveCount())

	runner.err = nil
	_, err = svc.StartCrawl(context.Background(), "https://tuoitre.vn")
	require.NoError(t, err)
}

func TestStartCrawlRecoversPanic(t *testing.T) {
	runner := &blockingRunner{panicOn: true}
	svc, registry := newTestService(t, runner, newMemoryArticleStore())

	summary, err := svc.StartCrawl(context.Background(), "https://vnexpress.net")
	require.ErrorIs(t, err, ErrCrawlFailed)
	assert.Equal(t, JobStatusFailed, summary.Status)
	assert.Zero(t, registry.ActiveCount())
}

func TestLoadTop(t *testing.T) {
	store := newMemoryArticleStore()
	svc, _ := newTestService(t, &blockingRunner{}, store)

	data, err := svc.LoadTop(context.Background(), "https://vnexpress.net")
	require.NoError(t, err)
	assert.NotNil(t, data.Articles)
	assert.Empty(t, data.Articles)

	_, err = svc.LoadTop(context.Background(), "vnexpress")
	require.ErrorIs(t, err, ErrInvalidSite)
}
