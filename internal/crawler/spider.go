package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/nao1215/scopecrawl/internal/model"
)

// Spider crawls same-origin web pages breadth-first from a seed URL.
// It manages a FIFO frontier of URLs, a visited set, a page budget, and
// politeness controls (fixed request spacing and robots exclusion).
//
// Design decision: We call it "Spider" rather than "Crawler" because:
//  1. "Spider" is the traditional term for web crawlers
//  2. Distinguishes the component from the package name
//  3. Clearer in code: crawler.NewSpider() vs crawler.NewCrawler()
type Spider struct {
	// client performs the HTTP requests. Redirects follow the client's
	// default policy.
	client *http.Client

	// maxPages limits the total number of pages fetched, counting
	// failures. This prevents runaway crawling on large sites.
	maxPages int

	// limiter spaces out requests. Every dequeue waits on it, even one
	// that turns out to be a duplicate, so the observable request rate
	// never exceeds the configured spacing.
	limiter *Limiter

	// timeout bounds each individual request.
	timeout time.Duration

	// userAgent is the User-Agent header to use.
	userAgent string

	// maxBodySize limits the size of response bodies to read.
	maxBodySize int64

	// sameOriginOnly restricts the frontier to the seed's host.
	sameOriginOnly bool

	// gate is the robots exclusion check. Nil means robots rules are
	// not consulted at all.
	gate *RobotsGate

	// extractor turns fetched pages into records.
	extractor *Extractor

	// logger receives per-page progress and skip diagnostics.
	logger *slog.Logger

	// selectors and pattern configure the extractor.
	selectors []string
	pattern   *regexp.Regexp

	// visited tracks normalized URLs already dequeued.
	visited map[string]bool

	// inFrontier tracks normalized URLs currently queued, so the same
	// page is never admitted twice.
	inFrontier map[string]bool
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxPages sets the maximum number of pages to fetch, counting
// failed fetches against the budget.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithDelay sets the minimum spacing between requests.
// Zero or negative disables the politeness delay.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.limiter = NewLimiter(d)
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.timeout = d
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) SpiderOption {
	return func(s *Spider) {
		s.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) SpiderOption {
	return func(s *Spider) {
		s.maxBodySize = size
	}
}

// WithSelectors sets the CSS selectors whose matched text is captured
// per page.
func WithSelectors(selectors []string) SpiderOption {
	return func(s *Spider) {
		s.selectors = selectors
	}
}

// WithPattern sets the regular expression searched against each page's
// visible text. Nil disables pattern matching.
func WithPattern(pattern *regexp.Regexp) SpiderOption {
	return func(s *Spider) {
		s.pattern = pattern
	}
}

// WithSameOriginOnly controls whether the crawl is restricted to the
// seed's host. Enabled by default.
func WithSameOriginOnly(enabled bool) SpiderOption {
	return func(s *Spider) {
		s.sameOriginOnly = enabled
	}
}

// WithRobotsGate sets the robots exclusion gate. Nil disables robots
// checks entirely.
func WithRobotsGate(gate *RobotsGate) SpiderOption {
	return func(s *Spider) {
		s.gate = gate
	}
}

// WithLogger sets the logger for crawl progress and skip diagnostics.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// NewSpider creates a new Spider with the given HTTP client.
//
// Design decision: We require an external client because:
//  1. Transport configuration (proxies, TLS) belongs to the caller
//  2. The robots gate can share the same client
//  3. Allows httptest clients in tests
func NewSpider(client *http.Client, opts ...SpiderOption) *Spider {
	s := &Spider{
		client:         client,
		maxPages:       20,
		limiter:        NewLimiter(1 * time.Second),
		timeout:        15 * time.Second,
		userAgent:      "scopecrawl/1.0 (+https://github.com/nao1215/scopecrawl)",
		maxBodySize:    10 * 1024 * 1024, // 10MB
		sameOriginOnly: true,
		logger:         slog.Default(),
		visited:        make(map[string]bool),
		inFrontier:     make(map[string]bool),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.extractor = NewExtractor(s.selectors, s.pattern, s.logger)
	return s
}

// Crawl runs a breadth-first crawl from the seed URL until the frontier
// drains or the page budget is exhausted. One Spider serves one crawl;
// the visited set is not reset between calls.
//
// A seed that is not an absolute http(s) URL returns ErrInvalidSeed, and
// a seed denied by robots rules returns ErrSeedDisallowed before any
// page is fetched. Individual page failures are counted and logged but
// never abort the crawl; only context cancellation does.
func (s *Spider) Crawl(ctx context.Context, seed string) (*model.CrawlResult, error) {
	seedURL, err := url.Parse(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeed, seed)
	}
	if (seedURL.Scheme != "http" && seedURL.Scheme != "https") || seedURL.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeed, seed)
	}

	if s.gate != nil && !s.gate.Allowed(seed) {
		return nil, fmt.Errorf("%w: %q", ErrSeedDisallowed, seed)
	}

	result := &model.CrawlResult{
		Seed:      seed,
		StartedAt: time.Now().UTC(),
		Records:   make([]model.PageRecord, 0),
	}

	frontier := []string{seed}
	s.inFrontier[normalizeURL(seed)] = true

	for len(frontier) > 0 && result.PagesAttempted < s.maxPages {
		select {
		case <-ctx.Done():
			result.FinishedAt = time.Now().UTC()
			return result, ctx.Err()
		default:
		}

		// The delay applies per dequeue, before we know whether the URL
		// is a duplicate or disallowed.
		if err := s.limiter.Wait(ctx); err != nil {
			result.FinishedAt = time.Now().UTC()
			return result, err
		}

		pageURL := frontier[0]
		frontier = frontier[1:]
		key := normalizeURL(pageURL)
		delete(s.inFrontier, key)

		if s.visited[key] {
			continue
		}
		s.visited[key] = true

		if s.gate != nil && !s.gate.Allowed(pageURL) {
			s.logger.Info("skipped by robots.txt", "url", pageURL)
			continue
		}

		result.PagesAttempted++

		record, err := s.fetchPage(ctx, pageURL)
		if err != nil {
			result.PagesFailed++
			s.logger.Warn("page fetch failed", "url", pageURL, "error", err)
			continue
		}

		result.Records = append(result.Records, *record)
		s.logger.Info("page crawled",
			"url", pageURL,
			"status", record.StatusCode,
			"links", len(record.Assets.Links))

		for _, link := range record.Assets.Links {
			if s.admit(seedURL, link) {
				frontier = append(frontier, link)
				s.inFrontier[normalizeURL(link)] = true
			}
		}
	}

	result.FinishedAt = time.Now().UTC()
	return result, nil
}

// fetchPage fetches a single page and extracts its record. A non-2xx
// status is a normal outcome; only transport and parse failures return
// an error.
func (s *Spider) fetchPage(ctx context.Context, pageURL string) (*model.PageRecord, error) {
	reqCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		return nil, err
	}

	headers := make(map[string]string, len(resp.Header))
	for name := range resp.Header {
		headers[name] = resp.Header.Get(name)
	}

	cookies := make(map[string]string)
	for _, c := range resp.Cookies() {
		cookies[c.Name] = c.Value
	}

	record, err := s.extractor.Extract(pageURL, &Response{
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Cookies:    cookies,
		Body:       body,
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// admit reports whether a discovered link should enter the frontier.
func (s *Spider) admit(seedURL *url.URL, link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if s.sameOriginOnly && !strings.EqualFold(u.Host, seedURL.Host) {
		return false
	}

	key := normalizeURL(link)
	return !s.visited[key] && !s.inFrontier[key]
}

// normalizeURL normalizes a URL for deduplication.
//
// Design decision: We normalize URLs because:
//  1. Same page can have different URL representations
//  2. Fragment (#anchor) doesn't change content
//  3. Scheme and host are case-insensitive per RFC 3986
func normalizeURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}
	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}
