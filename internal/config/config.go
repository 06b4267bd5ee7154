package config

import (
	"net/url"
	"path/filepath"
	"regexp"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values are chosen to keep crawls small and polite by default;
// anything larger should be an explicit user decision.
const (
	// DefaultMaxPages is the maximum number of pages to fetch per crawl.
	// This prevents runaway crawling on large or infinitely-generating sites.
	// Users can override this via the --max-pages CLI flag.
	DefaultMaxPages = 20

	// DefaultDelay is the delay between HTTP requests during crawling.
	// This is a politeness setting to avoid overwhelming servers.
	// 1 second is conservative and respectful of server resources.
	DefaultDelay = 1 * time.Second

	// DefaultTimeout is the per-request timeout. 15 seconds is generous
	// for ordinary web servers while keeping stalled crawls short.
	DefaultTimeout = 15 * time.Second

	// DefaultUserAgent identifies scopecrawl in HTTP requests.
	// Using a descriptive User-Agent is good practice and allows operators
	// to identify crawler traffic in their logs. It is also the agent name
	// matched against robots.txt rules.
	DefaultUserAgent = "scopecrawl/1.0 (+https://github.com/nao1215/scopecrawl)"

	// DefaultMaxBodySize limits the maximum response body size to read.
	// 10MB is sufficient for most HTML pages while preventing memory
	// exhaustion from unexpectedly large responses.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultFormat is the default output format.
	DefaultFormat = "json"

	// DefaultOutputDir is the directory where output files are written.
	DefaultOutputDir = "data"

	// DefaultOutputBase is the base name for output files; the format
	// extension is appended per writer.
	DefaultOutputBase = "crawl_output"

	// AppName is the application name used for XDG directory paths.
	AppName = "scopecrawl"
)

// Output format names accepted by Config.Format.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatBoth     = "both" // json + csv
	FormatAll      = "all"  // json + csv + markdown
)

// Config holds all configuration options for scopecrawl.
// This struct is designed to be populated from CLI flags and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, OutputConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// Seeds is the list of starting URLs. Each seed is crawled as an
	// independent sequential session.
	Seeds []string

	// Selectors are CSS selectors whose matched text is captured per page.
	Selectors []string

	// Pattern is an optional regular expression searched against each
	// page's visible text. Empty means pattern matching is disabled.
	Pattern string

	// MaxPages is the page budget per crawl, counting failed fetches.
	MaxPages int

	// Delay is the fixed politeness delay between requests.
	Delay time.Duration

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// SameOriginOnly restricts the crawl to each seed's host.
	// Disabling it allows the crawl to wander offsite; use with care.
	SameOriginOnly bool

	// RespectRobots enables robots.txt enforcement. When the rules cannot
	// be retrieved the crawler refuses to fetch, so disabling this is the
	// only way to crawl a host whose robots.txt is unreachable.
	RespectRobots bool

	// UserAgent is the User-Agent header sent with HTTP requests and the
	// agent name used for robots.txt matching.
	UserAgent string

	// Format selects the output representation: json, csv, markdown,
	// both (json + csv), or all.
	Format string

	// OutputDir is the directory where output files are written.
	OutputDir string

	// OutputBase is the base file name for outputs; each writer appends
	// its own extension.
	OutputBase string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Responses larger than this are truncated to prevent memory exhaustion.
	// Set to 0 to use the default.
	MaxBodySize int64

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .scopecrawl in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the
	// config file. This is populated by LoadConfigFile.
	SiteConfigs *File

	// DBDir is the directory path for storing the SQLite database.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB indicates whether to save crawl results to the database.
	SaveToDB bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only info and above are logged.
	Verbose bool
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., delay, budget).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		MaxPages:       DefaultMaxPages,
		Delay:          DefaultDelay,
		Timeout:        DefaultTimeout,
		SameOriginOnly: true,
		RespectRobots:  true,
		UserAgent:      DefaultUserAgent,
		Format:         DefaultFormat,
		OutputDir:      DefaultOutputDir,
		OutputBase:     DefaultOutputBase,
		MaxBodySize:    DefaultMaxBodySize,
		DBDir:          XDGDataDir(),
		SaveToDB:       true,
	}
}

// XDGDataDir returns the XDG data directory for scopecrawl.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/scopecrawl
// On macOS: ~/Library/Application Support/scopecrawl
// On Windows: %LOCALAPPDATA%\scopecrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for scopecrawl.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.config/scopecrawl
// On macOS: ~/Library/Application Support/scopecrawl
// On Windows: %APPDATA%\scopecrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// CompilePattern compiles the configured text search pattern.
// Returns nil without error when no pattern is configured.
func (c *Config) CompilePattern() (*regexp.Regexp, error) {
	if c.Pattern == "" {
		return nil, nil
	}
	return regexp.Compile(c.Pattern)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any crawling begins.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeed
	}

	for _, seed := range c.Seeds {
		u, err := url.Parse(seed)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ErrInvalidSeed
		}
	}

	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}

	if c.Delay < 0 {
		return ErrInvalidDelay
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	switch c.Format {
	case FormatJSON, FormatCSV, FormatMarkdown, FormatBoth, FormatAll:
	default:
		return ErrInvalidFormat
	}

	if _, err := c.CompilePattern(); err != nil {
		return ErrInvalidPattern
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}
