package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/nao1215/scopecrawl/internal/model"
)

// MarkdownWriter outputs crawl results in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the crawl result as a Markdown document with a session
// summary table and one row per crawled page.
func (w *MarkdownWriter) Write(result *model.CrawlResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writePages(md, result)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the session summary section.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.CrawlResult) {
	md.H1("Crawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seed URL", "`" + result.Seed + "`"},
			{"Started", result.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Finished", result.FinishedAt.Format("2006-01-02 15:04:05 MST")},
			{"Pages Attempted", strconv.Itoa(result.PagesAttempted)},
			{"Pages Recorded", strconv.Itoa(result.PagesRecorded())},
			{"Pages Failed", strconv.Itoa(result.PagesFailed)},
		},
	})
	md.PlainText("")
}

// writePages writes the per-page results table.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, result *model.CrawlResult) {
	md.H2("Pages")
	md.PlainText("")

	if len(result.Records) == 0 {
		md.PlainText("No pages were recorded.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(result.Records))
	for i := range result.Records {
		r := &result.Records[i]
		title := r.Title
		if title == "" {
			title = "(untitled)"
		}
		rows = append(rows, []string{
			"`" + r.URL + "`",
			strconv.Itoa(r.StatusCode),
			title,
			strconv.Itoa(len(r.Assets.Links)),
			strconv.Itoa(len(r.Forms)),
			strconv.Itoa(len(r.Comments)),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Status", "Title", "Links", "Forms", "Comments"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the closing attribution line.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("Generated by scopecrawl.")
}
