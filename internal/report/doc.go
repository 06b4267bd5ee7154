// Package report provides crawl result output functionality.
//
// This package contains writers for different output formats:
//   - JSONWriter: Structured JSON output for tool integration
//   - CSVWriter: Flattened tabular output for spreadsheets
//   - MarkdownWriter: Human-readable summaries for documentation
//
// Design decision: We separate result writing from the result data
// structures (which are in the model package) to follow the single
// responsibility principle. This allows adding new output formats
// without modifying the core data structures.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
