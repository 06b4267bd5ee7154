package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/nao1215/scopecrawl/internal/model"
)

// csvHeader lists the CSV columns in output order.
var csvHeader = []string{
	"url",
	"status_code",
	"title",
	"headers",
	"meta",
	"forms",
	"assets",
	"selected_texts",
	"regex_matches",
}

// CSVWriter outputs crawl results as a flat CSV table.
//
// Structured fields (headers, meta, forms, assets, selected texts) are
// JSON-encoded inside their cells, so the table stays one row per page
// while keeping the nested data recoverable.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs one CSV row per page record, preceded by a header row.
// A result with no records produces no output at all, not a lone header.
//
// The byte count is approximate: encoding/csv buffers internally, so we
// count what we handed to it rather than what reached the destination.
func (w *CSVWriter) Write(result *model.CrawlResult) (int, error) {
	if len(result.Records) == 0 {
		return 0, nil
	}

	cw := csv.NewWriter(w.output)

	var total int
	writeRow := func(row []string) error {
		for _, cell := range row {
			total += len(cell)
		}
		return cw.Write(row)
	}

	if err := writeRow(csvHeader); err != nil {
		return total, err
	}

	for i := range result.Records {
		row, err := recordRow(&result.Records[i])
		if err != nil {
			return total, err
		}
		if err := writeRow(row); err != nil {
			return total, err
		}
	}

	cw.Flush()
	return total, cw.Error()
}

// recordRow flattens a page record into CSV cells.
func recordRow(r *model.PageRecord) ([]string, error) {
	headers, err := json.Marshal(r.Headers)
	if err != nil {
		return nil, err
	}
	meta, err := json.Marshal(r.Meta)
	if err != nil {
		return nil, err
	}
	forms, err := json.Marshal(r.Forms)
	if err != nil {
		return nil, err
	}
	assets, err := json.Marshal(r.Assets)
	if err != nil {
		return nil, err
	}
	selected, err := json.Marshal(r.SelectedTexts)
	if err != nil {
		return nil, err
	}

	// Pattern matching not requested, or requested with zero hits, both
	// leave the cell empty.
	regexCell := ""
	if r.RegexMatches != nil && len(*r.RegexMatches) > 0 {
		matches, err := json.Marshal(*r.RegexMatches)
		if err != nil {
			return nil, err
		}
		regexCell = string(matches)
	}

	return []string{
		r.URL,
		strconv.Itoa(r.StatusCode),
		r.Title,
		string(headers),
		string(meta),
		string(forms),
		string(assets),
		string(selected),
		regexCell,
	}, nil
}
