package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for scopecrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scopecrawl",
		Short: "Polite, scope-limited web crawler and data extractor",
		Long: `scopecrawl crawls a website one page at a time, staying within the
seed's domain, respecting robots.txt, and pausing between requests.

Each crawled page is reduced to a structured record: title, metadata,
forms, HTML comments, referenced assets, and optional CSS-selector and
regular-expression captures. Records are written as JSON, CSV, or
Markdown, and every crawl is stored in a local history database.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
