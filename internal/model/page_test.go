package model

import (
	"encoding/json"
	"strings"
	"testing"
)

// TestPageRecordJSON tests JSON serialization of page records.
func TestPageRecordJSON(t *testing.T) {
	t.Parallel()

	t.Run("omits regex matches when no pattern was configured", func(t *testing.T) {
		t.Parallel()

		record := PageRecord{
			URL:        "http://example.test/",
			StatusCode: 200,
			Title:      "Example",
		}

		data, err := json.Marshal(record)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if strings.Contains(string(data), "regex_matches") {
			t.Errorf("expected regex_matches to be absent, got %s", data)
		}
	})

	t.Run("serializes empty regex matches when pattern matched nothing", func(t *testing.T) {
		t.Parallel()

		matches := []string{}
		record := PageRecord{
			URL:          "http://example.test/",
			StatusCode:   200,
			RegexMatches: &matches,
		}

		data, err := json.Marshal(record)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(string(data), `"regex_matches":[]`) {
			t.Errorf("expected empty regex_matches array, got %s", data)
		}
	})

	t.Run("serializes absent form attributes as empty strings", func(t *testing.T) {
		t.Parallel()

		form := Form{
			Action: "/submit",
			Method: "get",
			Inputs: []FormInput{{Tag: "input", Type: "text", Name: "q"}},
		}

		data, err := json.Marshal(form)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, key := range []string{`"id":""`, `"placeholder":""`, `"value":""`} {
			if !strings.Contains(string(data), key) {
				t.Errorf("expected %s in output, got %s", key, data)
			}
		}
	})
}

// TestPageRecordHelpers tests the record convenience methods.
func TestPageRecordHelpers(t *testing.T) {
	t.Parallel()

	t.Run("GetHeader returns empty for missing header", func(t *testing.T) {
		t.Parallel()

		record := PageRecord{Headers: map[string]string{"Content-Type": "text/html"}}
		if got := record.GetHeader("Content-Type"); got != "text/html" {
			t.Errorf("expected text/html, got %q", got)
		}
		if got := record.GetHeader("X-Missing"); got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})

	t.Run("HasPattern distinguishes unset from empty", func(t *testing.T) {
		t.Parallel()

		record := PageRecord{}
		if record.HasPattern() {
			t.Error("expected HasPattern to be false with nil matches")
		}

		empty := []string{}
		record.RegexMatches = &empty
		if !record.HasPattern() {
			t.Error("expected HasPattern to be true with empty matches")
		}
	})
}

// TestCrawlResult tests the aggregate result helpers.
func TestCrawlResult(t *testing.T) {
	t.Parallel()

	result := CrawlResult{
		Seed:           "http://example.test/",
		PagesAttempted: 3,
		PagesFailed:    1,
		Records: []PageRecord{
			{URL: "http://example.test/"},
			{URL: "http://example.test/a"},
		},
	}

	if got := result.PagesRecorded(); got != 2 {
		t.Errorf("expected 2 recorded pages, got %d", got)
	}
}
