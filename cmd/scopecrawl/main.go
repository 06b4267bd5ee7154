// Package main provides the entry point for the scopecrawl CLI.
//
// scopecrawl is a polite, scope-limited web crawler. It fetches pages
// one at a time from a seed URL, respects robots.txt, and extracts
// structured data (titles, metadata, forms, comments, assets) into
// JSON, CSV, or Markdown output.
//
// Usage:
//
//	scopecrawl crawl <url>
//	scopecrawl crawl --selectors "h1,.article" <url>
//
// See --help for all available options.
package main

// main is the entry point for scopecrawl.
func main() {
	Execute()
}
