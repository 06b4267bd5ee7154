package crawler

import "errors"

var (
	// ErrInvalidSeed means the seed URL is not an absolute http or https URL.
	ErrInvalidSeed = errors.New("crawler: seed must be an absolute http or https URL")

	// ErrSeedDisallowed means the seed itself is denied by robots exclusion
	// rules, so no page can be fetched at all.
	ErrSeedDisallowed = errors.New("crawler: seed URL is disallowed by robots.txt")
)
