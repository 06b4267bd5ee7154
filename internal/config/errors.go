package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Using errors.New() here rather than fmt.Errorf()
// because we don't need to include dynamic values in these messages.
var (
	// ErrNoSeed is returned when no starting URL is specified.
	// This error occurs when neither a positional argument nor the config
	// file provides a seed URL.
	ErrNoSeed = errors.New("no seed URL specified: provide a starting URL")

	// ErrInvalidSeed is returned when a seed URL is not an absolute
	// http or https URL.
	ErrInvalidSeed = errors.New("invalid seed URL: must be an absolute http or https URL")

	// ErrInvalidMaxPages is returned when the page budget is not positive.
	// A budget of zero would mean no crawling at all.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidDelay is returned when the request delay is negative.
	// A negative delay is invalid; use 0 for no delay between requests.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	// A timeout of zero or negative would cause immediate request failures.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidFormat is returned when the output format is not one of
	// json, csv, markdown, both, or all.
	ErrInvalidFormat = errors.New("invalid format: must be json, csv, markdown, both, or all")

	// ErrInvalidPattern is returned when the text search pattern is not a
	// valid regular expression.
	ErrInvalidPattern = errors.New("invalid pattern: must be a valid regular expression")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// A negative body size is invalid; use 0 to use the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")
)
