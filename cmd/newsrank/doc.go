// Package main hosts the newsrank entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, execute and load endpoints. An execute request
//     blocks until its crawl job finishes; a second request for a site that is already crawling is rejected.
//   - Crawl job: internal/crawler.Coordinator launches one headless Chrome per job, fetches the homepage
//     (optionally over plain HTTP with colly), walks menus and sub-menus in bounded batches, and fetches
//     every article whose listing shows a comment indicator. Batch sizes are divided among concurrently
//     running jobs.
//   - Extraction: internal/site/vnexpress and internal/site/tuoitre hold the CSS and XPath rules per portal.
//   - Persistence: raw.json and top_articles_<site>.json live under storage.output_dir. Each ranked snapshot
//     is optionally mirrored to GCS (or a local mirror directory) and a crawl.completed event is published
//     to Pub/Sub when a topic is configured.
//
// Quick checklist:
//   - Env vars use the NEWSRANK_ prefix (NEWSRANK_SERVER_PORT, NEWSRANK_CRAWLER_TIMEZONE, ...). BATCH_MENU,
//     BATCH_ARTICLE and PUPPETEER_EXECUTABLE_PATH are also honored.
//   - Run locally: go run ./cmd/newsrank serve, or go run ./cmd/newsrank crawl --site https://vnexpress.net.
package main
