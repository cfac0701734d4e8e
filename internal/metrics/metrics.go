// Package metrics exposes Prometheus collectors for the news ranking crawler.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlJobsTotal             *prometheus.CounterVec
	crawlJobDurationSeconds    *prometheus.HistogramVec
	activeJobs                 prometheus.Gauge
	fetchAttemptsTotal         *prometheus.CounterVec
	articlesAppendedTotal      *prometheus.CounterVec
	extractionMissesTotal      *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newsrank_crawl_jobs_total",
				Help: "Total number of crawl jobs, labeled by site and final status.",
			},
			[]string{"site", "status"},
		)

		crawlJobDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "newsrank_crawl_job_duration_seconds",
				Help:    "Histogram of crawl job wall time, labeled by site.",
				Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 3600},
			},
			[]string{"site"},
		)

		activeJobs = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "newsrank_active_jobs",
				Help: "Number of crawl jobs currently running.",
			},
		)

		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newsrank_fetch_attempts_total",
				Help: "Total number of page navigation attempts, labeled by stage and outcome.",
			},
			[]string{"stage", "outcome"},
		)

		articlesAppendedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newsrank_articles_appended_total",
				Help: "Total number of qualifying articles written to the raw log, labeled by site.",
			},
			[]string{"site"},
		)

		extractionMissesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newsrank_extraction_misses_total",
				Help: "Total number of pages or containers skipped during extraction, labeled by site and reason.",
			},
			[]string{"site", "reason"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 30, 120},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveJob records a finished crawl job.
func ObserveJob(site, status string, duration time.Duration) {
	if crawlJobsTotal == nil {
		return
	}
	host := SanitizeSite(site)
	crawlJobsTotal.WithLabelValues(host, status).Inc()
	if duration > 0 {
		crawlJobDurationSeconds.WithLabelValues(host).Observe(duration.Seconds())
	}
}

// IncActiveJobs increments the active jobs gauge.
func IncActiveJobs() {
	if activeJobs != nil {
		activeJobs.Inc()
	}
}

// DecActiveJobs decrements the active jobs gauge.
func DecActiveJobs() {
	if activeJobs != nil {
		activeJobs.Dec()
	}
}

// ObserveFetchAttempt counts one navigation attempt for the given stage
// (homepage, menu, listing, article) and outcome (success, error, invalid_url).
func ObserveFetchAttempt(stage, outcome string) {
	if fetchAttemptsTotal != nil {
		fetchAttemptsTotal.WithLabelValues(stage, outcome).Inc()
	}
}

// ObserveArticleAppended counts an article persisted to the raw log.
func ObserveArticleAppended(site string) {
	if articlesAppendedTotal != nil {
		articlesAppendedTotal.WithLabelValues(SanitizeSite(site)).Inc()
	}
}

// ObserveExtractionMiss counts a skipped container or article page.
func ObserveExtractionMiss(site, reason string) {
	if extractionMissesTotal != nil {
		extractionMissesTotal.WithLabelValues(SanitizeSite(site), reason).Inc()
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
