package model

import "time"

// PageRecord holds everything extracted from a single successfully fetched
// page. A record is created atomically once the response is parsed and is
// never mutated afterwards.
//
// Design decision: We keep one flat record per page rather than splitting
// headers/forms/assets into separate collections because:
//  1. The record is the unit of output in every sink (JSON, CSV, database)
//  2. Records are small; pages are bounded by the configured body size limit
//  3. A self-contained record keeps the round-trip through CSV trivial
type PageRecord struct {
	// URL is the address the page was fetched from, as dequeued.
	URL string `json:"url"`

	// StatusCode is the HTTP response status code. A non-2xx status is
	// recorded as data, not treated as a fetch failure.
	StatusCode int `json:"status_code"`

	// Title is the text of the first <title> element, trimmed.
	// Empty when the page has no title.
	Title string `json:"title"`

	// Headers contains the response headers, first value per key.
	Headers map[string]string `json:"headers"`

	// Cookies maps response cookie names to values.
	Cookies map[string]string `json:"cookies"`

	// Meta maps meta tag names to their content. The name is taken from
	// the name, property, or http-equiv attribute, in that preference
	// order; later duplicates overwrite earlier ones.
	Meta map[string]string `json:"meta"`

	// Forms contains every <form> element in document order.
	Forms []Form `json:"forms"`

	// Comments contains trimmed, non-empty markup comments in document order.
	Comments []string `json:"comments"`

	// Assets groups the resource URLs referenced by the page.
	Assets Assets `json:"assets"`

	// SelectedTexts contains one entry per configured CSS selector that
	// matched at least one non-empty text. Always present, possibly empty.
	SelectedTexts []SelectorMatch `json:"selected_texts"`

	// RegexMatches contains the pattern matches over the page's visible
	// text. Nil means no pattern was configured; a non-nil empty slice
	// means the pattern was configured but matched nothing. The pointer
	// keeps that distinction through JSON serialization.
	RegexMatches *[]string `json:"regex_matches,omitempty"`
}

// Form represents an HTML form element.
type Form struct {
	// Action is the form's action attribute, empty when absent.
	Action string `json:"action"`

	// Method is the HTTP method, lowercased. Defaults to "get" when the
	// attribute is absent.
	Method string `json:"method"`

	// Inputs contains the form's input, textarea, and select elements
	// in document order.
	Inputs []FormInput `json:"inputs"`
}

// FormInput describes a single form field. Absent attributes are recorded
// as empty strings and always serialized, so consumers can distinguish the
// field set without probing for missing keys.
type FormInput struct {
	// Tag is the element name: input, textarea, or select.
	Tag string `json:"tag"`

	// Type is the type attribute (text, password, hidden, ...).
	Type string `json:"type"`

	// Name is the name attribute.
	Name string `json:"name"`

	// ID is the id attribute.
	ID string `json:"id"`

	// Placeholder is the placeholder attribute.
	Placeholder string `json:"placeholder"`

	// Value is the value attribute.
	Value string `json:"value"`
}

// Assets groups the resource URLs referenced by a page. All URLs are
// resolved against the page URL; a reference that fails to parse is kept
// as-is rather than dropped. Lists preserve document order and may contain
// duplicates.
type Assets struct {
	// Scripts are the src URLs of script elements.
	Scripts []string `json:"scripts"`

	// Stylesheets are the href URLs of link elements whose rel attribute
	// contains the "stylesheet" token.
	Stylesheets []string `json:"stylesheets"`

	// Images are the src URLs of img elements.
	Images []string `json:"images"`

	// Links are the href URLs of anchor elements. These feed link
	// discovery during the crawl.
	Links []string `json:"links"`
}

// SelectorMatch holds the non-empty trimmed texts matched by one CSS
// selector.
type SelectorMatch struct {
	// Selector is the selector string as configured.
	Selector string `json:"selector"`

	// Matches are the trimmed texts of the matching nodes, in document
	// order. Never empty: selectors with no matches contribute no entry.
	Matches []string `json:"matches"`
}

// CrawlResult is the aggregate outcome of a crawl run. Records appear in
// the order their URLs were dequeued, which is breadth-first by discovery
// depth with ties broken by discovery order within a page.
type CrawlResult struct {
	// Seed is the starting URL of the run.
	Seed string `json:"seed"`

	// StartedAt is when the first dequeue happened.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run loop exited.
	FinishedAt time.Time `json:"finished_at"`

	// PagesAttempted counts dequeued URLs that reached a terminal state
	// (recorded or failed). The page budget is measured against this.
	PagesAttempted int `json:"pages_attempted"`

	// PagesFailed counts attempts that produced no record (transport
	// failure or unparseable response).
	PagesFailed int `json:"pages_failed"`

	// Records holds one entry per successfully fetched and parsed page.
	Records []PageRecord `json:"records"`
}

// PagesRecorded returns the number of pages that produced a record.
func (r *CrawlResult) PagesRecorded() int {
	return len(r.Records)
}

// GetHeader returns the recorded value of the given header, or the empty
// string when the header is not present.
func (p *PageRecord) GetHeader(name string) string {
	return p.Headers[name]
}

// HasPattern reports whether a search pattern was configured for the run
// that produced this record.
func (p *PageRecord) HasPattern() bool {
	return p.RegexMatches != nil
}
