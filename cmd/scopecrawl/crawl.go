package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/scopecrawl/internal/config"
	"github.com/nao1215/scopecrawl/internal/crawler"
	"github.com/nao1215/scopecrawl/internal/database"
	"github.com/nao1215/scopecrawl/internal/log"
	"github.com/nao1215/scopecrawl/internal/model"
	"github.com/nao1215/scopecrawl/internal/report"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url...]",
		Short: "Crawl a website and extract structured page data",
		Long: `Crawl fetches pages breadth-first from one or more seed URLs.

The crawler stays within each seed's domain by default, consults
robots.txt before every request, and waits a fixed delay between
fetches. Each page is reduced to a structured record: title, metadata,
forms, HTML comments, referenced assets, and optional CSS-selector and
regular-expression captures.

Examples:
  # Crawl a site with default settings (20 pages, 1s delay)
  scopecrawl crawl https://example.com

  # Capture article headings and prices
  scopecrawl crawl --selectors "h1,.price" https://example.com

  # Search visible text for email addresses
  scopecrawl crawl --pattern '[\w.]+@[\w.]+' https://example.com

  # Larger crawl with CSV and JSON output
  scopecrawl crawl --max-pages 100 --format both https://example.com

  # Use a custom configuration file with per-site settings
  scopecrawl crawl -c myconfig.yaml https://example.com

Configuration file (.scopecrawl) example:
  defaults:
    maxPages: 50
  sites:
    example.com:
      selectors:
        - h1
        - .article
      delaySeconds: 2`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Extraction flags
	cmd.Flags().StringP("selectors", "s", "",
		"Comma-separated CSS selectors to capture text for")
	cmd.Flags().StringP("pattern", "p", "",
		"Regular expression searched against each page's visible text")

	// Crawl behavior flags
	cmd.Flags().Int("max-pages", config.DefaultMaxPages,
		"Maximum number of pages to fetch per seed (failures count)")
	cmd.Flags().Duration("delay", config.DefaultDelay,
		"Fixed delay between requests")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().Bool("all-domains", false,
		"Follow links to other domains (default: stay on the seed's host)")
	cmd.Flags().Bool("no-robots", false,
		"Skip robots.txt checks (use only on sites you operate)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header and robots.txt agent name")

	// Output flags
	cmd.Flags().StringP("format", "f", config.DefaultFormat,
		"Output format: json, csv, markdown, both (json+csv), or all")
	cmd.Flags().StringP("output-dir", "d", config.DefaultOutputDir,
		"Directory for output files")
	cmd.Flags().StringP("output", "o", config.DefaultOutputBase,
		"Base name for output files (format extension is appended)")
	cmd.Flags().Bool("no-save", false,
		"Do not record this crawl in the history database")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .scopecrawl in current or home directory)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runCrawl(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	selectors, err := cmd.Flags().GetString("selectors")
	if err != nil {
		return nil, err
	}
	cfg.Selectors = splitSelectors(selectors)

	cfg.Pattern, err = cmd.Flags().GetString("pattern")
	if err != nil {
		return nil, err
	}

	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return nil, err
	}

	cfg.Delay, err = cmd.Flags().GetDuration("delay")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	allDomains, err := cmd.Flags().GetBool("all-domains")
	if err != nil {
		return nil, err
	}
	cfg.SameOriginOnly = !allDomains

	noRobots, err := cmd.Flags().GetBool("no-robots")
	if err != nil {
		return nil, err
	}
	cfg.RespectRobots = !noRobots

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	cfg.Format, err = cmd.Flags().GetString("format")
	if err != nil {
		return nil, err
	}

	cfg.OutputDir, err = cmd.Flags().GetString("output-dir")
	if err != nil {
		return nil, err
	}

	cfg.OutputBase, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load site-specific configurations from config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.Verbose = getVerboseFlag(cmd)

	// Positional arguments are the seed URLs
	cfg.Seeds = args

	return cfg, nil
}

// splitSelectors splits a comma-separated selector list, trimming
// whitespace and dropping empty entries.
func splitSelectors(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	selectors := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			selectors = append(selectors, trimmed)
		}
	}
	return selectors
}

// runCrawl crawls each seed sequentially and writes the outputs.
// A failed seed does not stop the remaining seeds; all errors are
// joined into the command's exit status.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting crawl",
		"seeds", cfg.Seeds,
		"maxPages", cfg.MaxPages,
		"delay", cfg.Delay,
		"respectRobots", cfg.RespectRobots,
		"saveToDB", cfg.SaveToDB,
	)

	var db *database.CrawlDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	client := &http.Client{}

	var errs []error
	for _, seed := range cfg.Seeds {
		select {
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
			return errors.Join(errs...)
		default:
		}

		fmt.Printf("Crawling %s...\n", seed)
		start := time.Now()

		result, err := crawlSeed(ctx, cfg, client, seed, logger)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				errs = append(errs, err)
				return errors.Join(errs...)
			}
			logger.Error("crawl failed", "seed", seed, "error", err)
			fmt.Fprintf(os.Stderr, "Crawl error for %s: %v\n", seed, err)
			errs = append(errs, err)
			continue
		}

		elapsed := time.Since(start)
		fmt.Printf("Crawl completed in %s: %d pages recorded, %d failed\n\n",
			elapsed.Round(time.Millisecond), result.PagesRecorded(), result.PagesFailed)

		if err := writeOutputs(cfg, seed, result); err != nil {
			logger.Error("output failed", "seed", seed, "error", err)
			errs = append(errs, err)
		}

		if db != nil {
			if err := saveCrawl(ctx, db, cfg, result, logger); err != nil {
				logger.Error("failed to save crawl", "seed", seed, "error", err)
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}

// crawlSeed runs a single crawl session for one seed URL, applying any
// site-specific configuration for the seed's host.
func crawlSeed(ctx context.Context, cfg *config.Config, client *http.Client, seed string, logger *slog.Logger) (*model.CrawlResult, error) {
	site := siteConfigFor(cfg, seed)

	selectors := cfg.Selectors
	if len(site.Selectors) > 0 {
		selectors = site.Selectors
	}

	patternSource := cfg.Pattern
	if site.Pattern != "" {
		patternSource = site.Pattern
	}
	patternCfg := config.Config{Pattern: patternSource}
	pattern, err := patternCfg.CompilePattern()
	if err != nil {
		return nil, fmt.Errorf("invalid pattern for %s: %w", seed, err)
	}

	maxPages := cfg.MaxPages
	if site.MaxPages > 0 {
		maxPages = site.MaxPages
	}

	delay := cfg.Delay
	if site.DelaySeconds > 0 {
		delay = time.Duration(site.DelaySeconds * float64(time.Second))
	}

	userAgent := cfg.UserAgent
	if site.UserAgent != "" {
		userAgent = site.UserAgent
	}

	opts := []crawler.SpiderOption{
		crawler.WithMaxPages(maxPages),
		crawler.WithDelay(delay),
		crawler.WithTimeout(cfg.Timeout),
		crawler.WithUserAgent(userAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithSelectors(selectors),
		crawler.WithPattern(pattern),
		crawler.WithSameOriginOnly(cfg.SameOriginOnly),
		crawler.WithLogger(logger),
	}
	if cfg.RespectRobots {
		opts = append(opts, crawler.WithRobotsGate(
			crawler.NewRobotsGate(client, userAgent, logger)))
	}

	spider := crawler.NewSpider(client, opts...)
	return spider.Crawl(ctx, seed)
}

// siteConfigFor returns the merged site configuration for a seed URL's host.
func siteConfigFor(cfg *config.Config, seed string) config.SiteConfig {
	if cfg.SiteConfigs == nil {
		return config.SiteConfig{}
	}
	u, err := url.Parse(seed)
	if err != nil {
		return cfg.SiteConfigs.Defaults
	}
	return cfg.SiteConfigs.GetSiteConfig(u.Host)
}

// writeOutputs writes the crawl result in every requested format.
func writeOutputs(cfg *config.Config, seed string, result *model.CrawlResult) error {
	if err := os.MkdirAll(cfg.OutputDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	base := cfg.OutputBase
	if len(cfg.Seeds) > 1 {
		// Multiple seeds share the output directory, so disambiguate by host.
		if u, err := url.Parse(seed); err == nil && u.Host != "" {
			base += "_" + strings.ReplaceAll(u.Host, ":", "_")
		}
	}

	formats := outputFormats(cfg.Format)
	for _, format := range formats {
		path := filepath.Join(cfg.OutputDir, base+formatExtension(format))
		if err := writeFormat(path, format, result); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
	}
	return nil
}

// outputFormats expands a format name into the concrete writer formats.
func outputFormats(format string) []string {
	switch format {
	case config.FormatBoth:
		return []string{config.FormatJSON, config.FormatCSV}
	case config.FormatAll:
		return []string{config.FormatJSON, config.FormatCSV, config.FormatMarkdown}
	default:
		return []string{format}
	}
}

// formatExtension returns the file extension for a writer format.
func formatExtension(format string) string {
	switch format {
	case config.FormatCSV:
		return ".csv"
	case config.FormatMarkdown:
		return ".md"
	default:
		return ".json"
	}
}

// writeFormat writes the result to a file in the given format.
func writeFormat(path, format string, result *model.CrawlResult) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	var w report.Writer
	switch format {
	case config.FormatCSV:
		w = report.NewCSVWriter(f)
	case config.FormatMarkdown:
		w = report.NewMarkdownWriter(f)
	default:
		w = report.NewJSONWriter(f, report.WithPrettyPrint())
	}

	if _, err := w.Write(result); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s output: %w", format, err)
	}
	return f.Close()
}

// saveCrawl records the crawl in the history database together with a
// snapshot of the effective configuration.
func saveCrawl(ctx context.Context, db *database.CrawlDB, cfg *config.Config, result *model.CrawlResult, logger *slog.Logger) error {
	snapshot := map[string]any{
		"selectors":        cfg.Selectors,
		"pattern":          cfg.Pattern,
		"max_pages":        cfg.MaxPages,
		"delay":            cfg.Delay.String(),
		"timeout":          cfg.Timeout.String(),
		"same_origin_only": cfg.SameOriginOnly,
		"respect_robots":   cfg.RespectRobots,
		"user_agent":       cfg.UserAgent,
	}
	configJSON, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to serialize config snapshot: %w", err)
	}

	sessionID, err := db.SaveCrawl(ctx, result, string(configJSON))
	if err != nil {
		return err
	}
	logger.Info("crawl saved", "sessionID", sessionID, "seed", result.Seed)
	return nil
}
