// Package crawler implements the scope-limited crawl loop.
//
// # Architecture
//
// The package is designed around the Spider type, which coordinates the
// crawling process. It owns a FIFO frontier of URLs to visit and a visited
// set, and drives the per-page pipeline: robots check, fetch, extraction,
// link harvest, politeness delay.
//
// # Components
//
//   - Spider: the crawl scheduler; pops one URL at a time until the
//     frontier empties or the page budget is reached
//   - Extractor: pure per-page extraction of titles, metadata, forms,
//     comments, assets, selector matches, and pattern matches
//   - RobotsGate: robots.txt policy check with a per-origin cache,
//     failing closed when the policy cannot be retrieved
//   - Limiter: fixed inter-request delay with no burst allowance
//
// # Politeness
//
// The crawler is deliberately conservative:
//   - At most one request is in flight at any time
//   - A configurable delay is applied after every dequeue, whether the
//     fetch succeeded, failed, or was skipped
//   - robots.txt denial is the default when the policy is unreadable
//   - The page budget bounds the total number of fetch attempts
//
// # Concurrency
//
// The Spider is strictly sequential and owned by a single goroutine; the
// frontier, visited set, and result collection need no locking. Callers
// that want parallel crawls must use one Spider per crawl.
package crawler
