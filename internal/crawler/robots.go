package crawler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/temoto/robotstxt"
)

// maxRobotsSize limits how much of a robots.txt response is read.
const maxRobotsSize = 512 * 1024 // 512 KB

// RobotsGate answers whether a URL may be fetched under the origin's
// robots exclusion policy.
//
// Design decision: The gate fails closed. When the policy resource cannot
// be retrieved or parsed, the answer is deny rather than allow: absence of
// a readable policy must not be treated as permission. This inverts the
// common crawler default on purpose; the tool is meant for authorized,
// bounded probing.
//
// HTTP status semantics are delegated to the robotstxt library: a 404
// means the site publishes no policy and everything is allowed, a 5xx
// means the policy is temporarily unavailable and everything is denied.
// Only transport failures and unparseable bodies are mapped to deny here.
type RobotsGate struct {
	// client issues the robots.txt requests.
	client *http.Client

	// userAgent is the agent name tested against the policy groups.
	userAgent string

	// cache holds the matched policy group per origin for the run's
	// lifetime. A nil entry records a retrieval failure so the origin
	// is denied without refetching. Single-goroutine access only.
	cache map[string]*robotstxt.Group

	// logger receives policy fetch diagnostics.
	logger *slog.Logger
}

// NewRobotsGate creates a RobotsGate that checks policies for the given
// user agent. A nil logger falls back to slog.Default().
func NewRobotsGate(client *http.Client, userAgent string, logger *slog.Logger) *RobotsGate {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsGate{
		client:    client,
		userAgent: userAgent,
		cache:     make(map[string]*robotstxt.Group),
		logger:    logger,
	}
}

// Allowed reports whether the given URL may be fetched by the configured
// agent. A URL that does not parse is denied.
func (g *RobotsGate) Allowed(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}

	origin := u.Scheme + "://" + u.Host
	group, ok := g.cache[origin]
	if !ok {
		group = g.fetchGroup(origin)
		g.cache[origin] = group
	}
	if group == nil {
		// Policy unreachable or unparseable: fail closed.
		return false
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return group.Test(path)
}

// fetchGroup retrieves and parses the origin's robots.txt, returning the
// policy group for the configured agent, or nil on failure.
func (g *RobotsGate) fetchGroup(origin string) *robotstxt.Group {
	robotsURL := fmt.Sprintf("%s/robots.txt", origin)

	req, err := http.NewRequest(http.MethodGet, robotsURL, nil)
	if err != nil {
		g.logger.Warn("robots.txt request failed", "origin", origin, "error", err)
		return nil
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn("robots.txt unreachable, denying origin", "origin", origin, "error", err)
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsSize))
	if err != nil {
		g.logger.Warn("robots.txt read failed, denying origin", "origin", origin, "error", err)
		return nil
	}

	robots, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		g.logger.Warn("robots.txt unparseable, denying origin", "origin", origin, "error", err)
		return nil
	}

	return robots.FindGroup(g.userAgent)
}
