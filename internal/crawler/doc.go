// Package crawler implements the crawl orchestration engine: the per-site job
// registry, the retrying page fetcher, the bounded batch runner, the job
// coordinator that walks menu, sub-menu and article levels, the weekly ranking
// window, and the Service exposing StartCrawl and LoadTop.
package crawler
