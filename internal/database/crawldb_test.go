package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/scopecrawl/internal/model"
)

// openTestDB creates a CrawlDB in a temporary directory.
func openTestDB(t *testing.T) *CrawlDB {
	t.Helper()

	cdb, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if err := cdb.Close(); err != nil {
			t.Errorf("failed to close database: %v", err)
		}
	})
	return cdb
}

// testResult creates a crawl result with two page records.
func testResult(seed string) *model.CrawlResult {
	return &model.CrawlResult{
		Seed:           seed,
		StartedAt:      time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		FinishedAt:     time.Date(2026, 8, 30, 10, 1, 0, 0, time.UTC),
		PagesAttempted: 3,
		PagesFailed:    1,
		Records: []model.PageRecord{
			{
				URL:        seed,
				StatusCode: 200,
				Title:      "Home",
				Headers:    map[string]string{"Content-Type": "text/html"},
				Meta:       map[string]string{"description": "home page"},
			},
			{
				URL:        seed + "about",
				StatusCode: 200,
				Title:      "About",
				Headers:    map[string]string{},
				Meta:       map[string]string{},
			},
		},
	}
}

// TestOpen tests database creation behavior.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates directory and database file", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "nested", "data")
		cdb, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		if err := cdb.Close(); err != nil {
			t.Errorf("failed to close database: %v", err)
		}
	})

	t.Run("fails when database is missing and creation is disabled", func(t *testing.T) {
		t.Parallel()

		opts := Options{CreateIfNotExists: false, EnableWAL: false}
		if _, err := Open(t.TempDir(), opts); err == nil {
			t.Error("expected error for missing database")
		}
	})
}

// TestSaveCrawl tests session and page persistence.
func TestSaveCrawl(t *testing.T) {
	t.Parallel()

	t.Run("stores session metadata and page records", func(t *testing.T) {
		t.Parallel()

		cdb := openTestDB(t)
		ctx := context.Background()

		sessionID, err := cdb.SaveCrawl(ctx, testResult("http://example.com/"), `{"max_pages":20}`)
		if err != nil {
			t.Fatalf("failed to save crawl: %v", err)
		}
		if sessionID == 0 {
			t.Error("expected non-zero session ID")
		}

		session, err := cdb.GetSession(ctx, sessionID)
		if err != nil {
			t.Fatalf("failed to get session: %v", err)
		}
		if session == nil {
			t.Fatal("expected session to exist")
		}
		if session.Seed != "http://example.com/" {
			t.Errorf("unexpected seed: %q", session.Seed)
		}
		if session.PagesAttempted != 3 || session.PagesFailed != 1 {
			t.Errorf("unexpected counts: attempted=%d failed=%d", session.PagesAttempted, session.PagesFailed)
		}
		if session.StartedAt.IsZero() || session.FinishedAt.IsZero() {
			t.Error("expected parsed timestamps")
		}

		records, err := cdb.GetSessionRecords(ctx, sessionID)
		if err != nil {
			t.Fatalf("failed to get records: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records[0].Title != "Home" || records[1].Title != "About" {
			t.Errorf("unexpected record order: %q, %q", records[0].Title, records[1].Title)
		}
		if records[0].Headers["Content-Type"] != "text/html" {
			t.Errorf("unexpected headers round-trip: %v", records[0].Headers)
		}
	})

	t.Run("missing session returns nil without error", func(t *testing.T) {
		t.Parallel()

		cdb := openTestDB(t)
		session, err := cdb.GetSession(context.Background(), 9999)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if session != nil {
			t.Errorf("expected nil session, got %+v", session)
		}
	})
}

// TestListSessions tests history listing and filtering.
func TestListSessions(t *testing.T) {
	t.Parallel()

	t.Run("lists sessions newest first", func(t *testing.T) {
		t.Parallel()

		cdb := openTestDB(t)
		ctx := context.Background()

		first := testResult("http://a.example.com/")
		second := testResult("http://b.example.com/")
		second.StartedAt = second.StartedAt.Add(time.Hour)

		if _, err := cdb.SaveCrawl(ctx, first, ""); err != nil {
			t.Fatalf("failed to save first crawl: %v", err)
		}
		if _, err := cdb.SaveCrawl(ctx, second, ""); err != nil {
			t.Fatalf("failed to save second crawl: %v", err)
		}

		sessions, err := cdb.ListSessions(ctx, "")
		if err != nil {
			t.Fatalf("failed to list sessions: %v", err)
		}
		if len(sessions) != 2 {
			t.Fatalf("expected 2 sessions, got %d", len(sessions))
		}
		if sessions[0].Seed != "http://b.example.com/" {
			t.Errorf("expected newest session first, got %q", sessions[0].Seed)
		}
	})

	t.Run("filters sessions by seed", func(t *testing.T) {
		t.Parallel()

		cdb := openTestDB(t)
		ctx := context.Background()

		if _, err := cdb.SaveCrawl(ctx, testResult("http://a.example.com/"), ""); err != nil {
			t.Fatalf("failed to save crawl: %v", err)
		}
		if _, err := cdb.SaveCrawl(ctx, testResult("http://b.example.com/"), ""); err != nil {
			t.Fatalf("failed to save crawl: %v", err)
		}

		sessions, err := cdb.ListSessions(ctx, "http://a.example.com/")
		if err != nil {
			t.Fatalf("failed to list sessions: %v", err)
		}
		if len(sessions) != 1 || sessions[0].Seed != "http://a.example.com/" {
			t.Errorf("unexpected filtered sessions: %+v", sessions)
		}
	})

	t.Run("lists distinct seeds sorted", func(t *testing.T) {
		t.Parallel()

		cdb := openTestDB(t)
		ctx := context.Background()

		for _, seed := range []string{"http://b.example.com/", "http://a.example.com/", "http://b.example.com/"} {
			if _, err := cdb.SaveCrawl(ctx, testResult(seed), ""); err != nil {
				t.Fatalf("failed to save crawl: %v", err)
			}
		}

		seeds, err := cdb.ListSeeds(ctx)
		if err != nil {
			t.Fatalf("failed to list seeds: %v", err)
		}
		if len(seeds) != 2 || seeds[0] != "http://a.example.com/" || seeds[1] != "http://b.example.com/" {
			t.Errorf("unexpected seeds: %v", seeds)
		}
	})
}
