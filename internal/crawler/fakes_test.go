package crawler

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"
)

// scriptedNavigator fails the first failures calls per URL, then serves pages[url].
type scriptedNavigator struct {
	mu       sync.Mutex
	pages    map[string]string
	failures map[string]int
	calls    map[string]int
	closed   bool
}

func newScriptedNavigator(pages map[string]string) *scriptedNavigator {
	return &scriptedNavigator{pages: pages, failures: map[string]int{}, calls: map[string]int{}}
}

func (n *scriptedNavigator) Navigate(_ context.Context, rawURL string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls[rawURL]++
	if n.calls[rawURL] <= n.failures[rawURL] {
		return "", errors.New("net::ERR_TIMED_OUT")
	}
	html, ok := n.pages[rawURL]
	if !ok {
		return "", errors.New("net::ERR_NAME_NOT_RESOLVED")
	}
	return html, nil
}

func (n *scriptedNavigator) Close() error {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
	return nil
}

func (n *scriptedNavigator) callCount(rawURL string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[rawURL]
}

type recordingPauser struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (p *recordingPauser) Pause(_ context.Context, delay time.Duration) {
	p.mu.Lock()
	p.delays = append(p.delays, delay)
	p.mu.Unlock()
}

func (p *recordingPauser) recorded() []time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]time.Duration(nil), p.delays...)
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type staticIDs struct{}

func (staticIDs) NewID() (string, error) { return "job-1", nil }

// countingNavigator serves every URL after delay and records peak concurrency.
type countingNavigator struct {
	delay time.Duration

	mu          sync.Mutex
	inFlight    int
	peak        int
	articles    int
	articlePeak int
}

func (n *countingNavigator) Navigate(ctx context.Context, rawURL string) (string, error) {
	article := strings.HasSuffix(rawURL, ".html")
	n.mu.Lock()
	n.inFlight++
	n.peak = max(n.peak, n.inFlight)
	if article {
		n.articles++
		n.articlePeak = max(n.articlePeak, n.articles)
	}
	n.mu.Unlock()

	defer func() {
		n.mu.Lock()
		n.inFlight--
		if article {
			n.articles--
		}
		n.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(n.delay):
	}
	return rawURL, nil
}

func (n *countingNavigator) Close() error { return nil }

func (n *countingNavigator) peaks() (overall, articles int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.peak, n.articlePeak
}

type fakeLauncher struct {
	nav      Browser
	err      error
	launches int
}

func (l *fakeLauncher) Launch(context.Context) (Browser, error) {
	l.launches++
	if l.err != nil {
		return nil, l.err
	}
	return l.nav, nil
}

// mapAdapter keys every extraction on the page body served by scriptedNavigator.
type mapAdapter struct {
	menus    map[string][]string
	subs     map[string][]string
	stubs    map[string][]ArticleStub
	articles map[string]Article
}

func (a *mapAdapter) MenuLinks(html string) []string { return a.menus[html] }

func (a *mapAdapter) SubMenuLinks(html, _ string) []string { return a.subs[html] }

func (a *mapAdapter) ArticleStubs(html string) []ArticleStub { return a.stubs[html] }

func (a *mapAdapter) ExtractArticle(html, rawURL, title string) (Article, bool) {
	article, ok := a.articles[html]
	if !ok {
		return Article{}, false
	}
	article.URL = rawURL
	article.Title = title
	return article, true
}

type memoryArticleStore struct {
	mu         sync.Mutex
	raw        []Article
	top        map[string]ArticleData
	recomputes int
	err        error
}

func newMemoryArticleStore() *memoryArticleStore {
	return &memoryArticleStore{top: map[string]ArticleData{}}
}

func (s *memoryArticleStore) AppendIfQualifies(_ context.Context, article Article, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.raw[:0]
	for _, a := range s.raw {
		if a.URL != article.URL {
			kept = append(kept, a)
		}
	}
	s.raw = append(kept, article)
	return nil
}

func (s *memoryArticleStore) RecomputeTop(_ context.Context, site Site, executeTime time.Time) (ArticleData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recomputes++
	if s.err != nil {
		return ArticleData{}, s.err
	}
	data := ArticleData{ExecuteTime: executeTime, Articles: RankTop(s.raw, site.ID, executeTime, RecentWindow, TopLimit)}
	s.top[site.ID] = data
	return data.Clone(), nil
}

func (s *memoryArticleStore) LoadTop(_ context.Context, site Site) (ArticleData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.top[site.ID].Clone(), nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []any
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, payload)
	return "msg-1", nil
}

type recordingBlob struct {
	mu    sync.Mutex
	paths []string
	body  []byte
}

func (b *recordingBlob) PutObject(_ context.Context, path, _ string, data io.Reader) (string, error) {
	raw, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paths = append(b.paths, path)
	b.body = raw
	return "gs://bucket/" + path, nil
}
