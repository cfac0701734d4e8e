// Package collyfetcher fetches static pages over plain HTTP using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// DefaultTimeout bounds one HTTP request.
const DefaultTimeout = 15 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Navigator implements crawler.Navigator without JavaScript rendering. It
// serves homepages whose navigation markup is present in the raw response.
type Navigator struct {
	cfg           Config
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Navigator.
func New(cfg Config) *Navigator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.IgnoreRobotsTxt = true
	c.WithTransport(newHTTPTransport())
	return &Navigator{cfg: cfg, baseCollector: c}
}

// Navigate performs one GET and returns the response body.
func (n *Navigator) Navigate(ctx context.Context, rawURL string) (string, error) {
	collector := n.baseCollector.Clone()
	if n.cfg.UserAgent != "" {
		collector.UserAgent = n.cfg.UserAgent
	}
	collector.SetRequestTimeout(n.cfg.Timeout)
	collector.Context = ctx

	var (
		body     string
		fetchErr error
	)
	configureHooks(collector, &body, &fetchErr)

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if fetchErr != nil {
			return "", fmt.Errorf("colly response failed: %w", fetchErr)
		}
		if err != nil {
			return "", fmt.Errorf("colly visit failed: %w", err)
		}
		return body, nil
	}
}

func configureHooks(hooks collectorHooks, body *string, fetchErr *error) {
	hooks.OnResponse(func(r *colly.Response) {
		*body = string(r.Body)
	})
	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			*fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
			return
		}
		*fetchErr = err
	})
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
