package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/scopecrawl/internal/config"
	"github.com/nao1215/scopecrawl/internal/database"
	"github.com/nao1215/scopecrawl/internal/log"
	"github.com/nao1215/scopecrawl/internal/model"
)

// TestNewCrawlCmd tests the crawl command creation.
func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "crawl [url...]" {
			t.Errorf("unexpected use: %q", cmd.Use)
		}
	})

	t.Run("has expected flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{
			"selectors", "pattern", "max-pages", "delay", "timeout",
			"all-domains", "no-robots", "user-agent", "format",
			"output-dir", "output", "no-save", "config",
		} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected flag %q", name)
			}
		}
	})
}

// TestBuildConfig tests flag-to-config translation.
func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags(nil); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{"http://example.com/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cfg.Seeds) != 1 || cfg.Seeds[0] != "http://example.com/" {
			t.Errorf("unexpected seeds: %v", cfg.Seeds)
		}
		if cfg.MaxPages != config.DefaultMaxPages {
			t.Errorf("unexpected max pages: %d", cfg.MaxPages)
		}
		if !cfg.SameOriginOnly || !cfg.RespectRobots || !cfg.SaveToDB {
			t.Errorf("unexpected toggles: %+v", cfg)
		}
	})

	t.Run("flags override defaults", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		err := cmd.ParseFlags([]string{
			"--selectors", "h1, .price ,",
			"--pattern", `\d+`,
			"--max-pages", "5",
			"--delay", "250ms",
			"--all-domains",
			"--no-robots",
			"--no-save",
			"--format", "both",
		})
		if err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{"http://example.com/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cfg.Selectors) != 2 || cfg.Selectors[0] != "h1" || cfg.Selectors[1] != ".price" {
			t.Errorf("unexpected selectors: %v", cfg.Selectors)
		}
		if cfg.MaxPages != 5 || cfg.Delay != 250*time.Millisecond {
			t.Errorf("unexpected crawl settings: %+v", cfg)
		}
		if cfg.SameOriginOnly || cfg.RespectRobots || cfg.SaveToDB {
			t.Errorf("expected toggles disabled: %+v", cfg)
		}
		if cfg.Format != config.FormatBoth {
			t.Errorf("unexpected format: %q", cfg.Format)
		}
	})

	t.Run("missing explicit config file fails", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		missing := filepath.Join(t.TempDir(), "nope.yaml")
		if err := cmd.ParseFlags([]string{"--config", missing}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}
		if _, err := buildConfig(cmd, []string{"http://example.com/"}); err == nil {
			t.Error("expected error for missing config file")
		}
	})
}

// TestSplitSelectors tests selector list parsing.
func TestSplitSelectors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"single", "h1", []string{"h1"}},
		{"trims and drops empties", " h1 , .price ,,", []string{"h1", ".price"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := splitSelectors(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

// TestOutputFormats tests format expansion and extensions.
func TestOutputFormats(t *testing.T) {
	t.Parallel()

	if got := outputFormats(config.FormatBoth); len(got) != 2 {
		t.Errorf("expected 2 formats for both, got %v", got)
	}
	if got := outputFormats(config.FormatAll); len(got) != 3 {
		t.Errorf("expected 3 formats for all, got %v", got)
	}
	if got := outputFormats(config.FormatCSV); len(got) != 1 || got[0] != config.FormatCSV {
		t.Errorf("unexpected formats: %v", got)
	}

	if formatExtension(config.FormatCSV) != ".csv" {
		t.Error("expected .csv extension")
	}
	if formatExtension(config.FormatMarkdown) != ".md" {
		t.Error("expected .md extension")
	}
	if formatExtension(config.FormatJSON) != ".json" {
		t.Error("expected .json extension")
	}
}

// TestRunCrawl runs a full crawl against a local test server and checks
// the written outputs and the history database.
func TestRunCrawl(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
		case "/":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><head><title>Start</title></head><body>
				<h1>Welcome</h1>
				<a href="/next">next</a>
				<a href="/private/hidden">hidden</a>
			</body></html>`)
		case "/next":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><head><title>Next</title></head><body><h1>Second</h1></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	outputDir := t.TempDir()
	cfg := config.NewConfig()
	cfg.Seeds = []string{server.URL + "/"}
	cfg.Selectors = []string{"h1"}
	cfg.Delay = 0
	cfg.OutputDir = outputDir
	cfg.Format = config.FormatAll
	cfg.DBDir = t.TempDir()
	cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}

	logger := log.NewSecureLogger(os.Stderr, false)
	if err := runCrawl(context.Background(), cfg, logger); err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	// JSON output holds the two allowed pages and skips the disallowed one.
	data, err := os.ReadFile(filepath.Join(outputDir, config.DefaultOutputBase+".json"))
	if err != nil {
		t.Fatalf("failed to read JSON output: %v", err)
	}
	var records []model.PageRecord
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("JSON output is invalid: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Title != "Start" || records[1].Title != "Next" {
		t.Errorf("unexpected titles: %q, %q", records[0].Title, records[1].Title)
	}
	if len(records[0].SelectedTexts) != 1 || records[0].SelectedTexts[0].Matches[0] != "Welcome" {
		t.Errorf("unexpected selector capture: %+v", records[0].SelectedTexts)
	}

	for _, name := range []string{
		config.DefaultOutputBase + ".csv",
		config.DefaultOutputBase + ".md",
	} {
		if _, err := os.Stat(filepath.Join(outputDir, name)); err != nil {
			t.Errorf("expected output file %s: %v", name, err)
		}
	}

	// The crawl is recorded in the history database.
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	sessions, err := db.ListSessions(context.Background(), "")
	if err != nil {
		t.Fatalf("failed to list sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if sessions[0].PagesAttempted != 2 || sessions[0].PagesFailed != 0 {
		t.Errorf("unexpected session counts: %+v", sessions[0])
	}
}

// TestRunCrawlDisallowedSeed verifies that a robots-denied seed fails
// the command without fetching any page.
func TestRunCrawlDisallowedSeed(t *testing.T) {
	t.Parallel()

	pageFetched := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fmt.Fprint(w, "User-agent: *\nDisallow: /\n")
			return
		}
		pageFetched = true
	}))
	t.Cleanup(server.Close)

	cfg := config.NewConfig()
	cfg.Seeds = []string{server.URL + "/"}
	cfg.Delay = 0
	cfg.OutputDir = t.TempDir()
	cfg.DBDir = t.TempDir()
	cfg.SaveToDB = false
	cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}

	logger := log.NewSecureLogger(os.Stderr, false)
	if err := runCrawl(context.Background(), cfg, logger); err == nil {
		t.Error("expected error for a robots-denied seed")
	}
	if pageFetched {
		t.Error("expected no page fetch for a denied seed")
	}
}
