// Package config provides configuration structures and utilities for
// scopecrawl. It defines the main configuration options for crawling,
// extraction, and output generation preferences.
package config
