// Package model defines the data structures shared across scopecrawl.
// It contains the page record produced for every fetched page and the
// aggregate crawl result, both designed for direct JSON serialization.
package model
