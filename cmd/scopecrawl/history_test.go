package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/scopecrawl/internal/database"
	"github.com/nao1215/scopecrawl/internal/model"
)

func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()

	if cmd.Use != "history [seed-url]" {
		t.Errorf("unexpected Use: got %q", cmd.Use)
	}
	if cmd.Short == "" {
		t.Error("expected non-empty Short description")
	}
	if cmd.Long == "" {
		t.Error("expected non-empty Long description")
	}
	if cmd.Args == nil {
		t.Error("expected Args to be set")
	}

	flagsWithShort := map[string]string{
		"list-seeds": "l",
		"id":         "i",
	}
	for flag, shorthand := range flagsWithShort {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			t.Errorf("expected flag %q to exist", flag)
			continue
		}
		if f.Shorthand != shorthand {
			t.Errorf("flag %q: expected shorthand %q, got %q", flag, shorthand, f.Shorthand)
		}
	}

	// The database lives in the XDG data directory, not behind a flag.
	if cmd.Flags().Lookup("db-dir") != nil {
		t.Error("db-dir flag should not exist")
	}
}

func TestHistoryPrinting(t *testing.T) {
	t.Parallel()

	newDB := func(t *testing.T) *database.CrawlDB {
		t.Helper()
		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		t.Cleanup(func() {
			if err := db.Close(); err != nil {
				t.Errorf("failed to close database: %v", err)
			}
		})
		return db
	}

	saved := func(t *testing.T, db *database.CrawlDB, seed string) int64 {
		t.Helper()
		result := &model.CrawlResult{
			Seed:           seed,
			StartedAt:      time.Now().Add(-time.Minute),
			FinishedAt:     time.Now(),
			PagesAttempted: 2,
			PagesFailed:    1,
			Records: []model.PageRecord{
				{
					URL:           seed,
					StatusCode:    200,
					Title:         "Home",
					Headers:       map[string]string{},
					Cookies:       map[string]string{},
					Meta:          map[string]string{},
					Forms:         []model.Form{},
					Comments:      []string{},
					SelectedTexts: []model.SelectorMatch{},
				},
			},
		}
		id, err := db.SaveCrawl(context.Background(), result, "{}")
		if err != nil {
			t.Fatalf("failed to save crawl: %v", err)
		}
		return id
	}

	t.Run("prints sessions as a table", func(t *testing.T) {
		t.Parallel()

		db := newDB(t)
		saved(t, db, "https://example.com/")

		sessions, err := db.ListSessions(context.Background(), "")
		if err != nil {
			t.Fatalf("failed to list sessions: %v", err)
		}

		var buf bytes.Buffer
		cmd := NewHistoryCmd()
		cmd.SetOut(&buf)
		if err := printSessions(cmd, sessions); err != nil {
			t.Fatalf("printSessions failed: %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, "SEED") {
			t.Errorf("expected table header in output, got %q", out)
		}
		if !strings.Contains(out, "https://example.com/") {
			t.Errorf("expected seed URL in output, got %q", out)
		}
	})

	t.Run("reports empty history", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		cmd := NewHistoryCmd()
		cmd.SetOut(&buf)
		if err := printSessions(cmd, nil); err != nil {
			t.Fatalf("printSessions failed: %v", err)
		}
		if !strings.Contains(buf.String(), "No crawls recorded yet.") {
			t.Errorf("expected empty-history message, got %q", buf.String())
		}
	})

	t.Run("prints distinct seeds", func(t *testing.T) {
		t.Parallel()

		db := newDB(t)
		saved(t, db, "https://a.example/")
		saved(t, db, "https://b.example/")
		saved(t, db, "https://a.example/")

		var buf bytes.Buffer
		cmd := NewHistoryCmd()
		cmd.SetContext(context.Background())
		cmd.SetOut(&buf)
		if err := printSeeds(cmd, db); err != nil {
			t.Fatalf("printSeeds failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 2 {
			t.Errorf("expected 2 distinct seeds, got %d: %q", len(lines), lines)
		}
	})

	t.Run("dumps session records as JSON", func(t *testing.T) {
		t.Parallel()

		db := newDB(t)
		id := saved(t, db, "https://example.com/")

		var buf bytes.Buffer
		cmd := NewHistoryCmd()
		cmd.SetContext(context.Background())
		cmd.SetOut(&buf)
		if err := printSessionRecords(cmd, db, id); err != nil {
			t.Fatalf("printSessionRecords failed: %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, `"url": "https://example.com/"`) {
			t.Errorf("expected record URL in JSON output, got %q", out)
		}
		if !strings.Contains(out, `"title": "Home"`) {
			t.Errorf("expected record title in JSON output, got %q", out)
		}
	})

	t.Run("errors on missing session", func(t *testing.T) {
		t.Parallel()

		db := newDB(t)

		var buf bytes.Buffer
		cmd := NewHistoryCmd()
		cmd.SetContext(context.Background())
		cmd.SetOut(&buf)
		err := printSessionRecords(cmd, db, 9999)
		if err == nil {
			t.Fatal("expected error for missing session")
		}
		if !strings.Contains(err.Error(), "not found") {
			t.Errorf("expected not-found error, got %v", err)
		}
	})
}
