// Package api hosts the HTTP server, middleware, and REST handlers. Routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /webcrawler/v1/execute runs a crawl for {"website": ...} and blocks until it ends.
//   - POST /webcrawler/v1/load returns the ranked snapshot for {"website": ...}.
//   - GET /webcrawler/v1/running lists sites with an active crawl.
package api
