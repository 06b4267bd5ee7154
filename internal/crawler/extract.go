package crawler

import (
	"bytes"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/nao1215/scopecrawl/internal/model"
)

// Response is the outcome of a single page fetch as consumed by the
// extractor. Redirects are followed by the HTTP client before this point,
// and a non-2xx status is a normal response, not an error.
type Response struct {
	// StatusCode is the final HTTP status code.
	StatusCode int

	// Headers holds the response headers, first value per key.
	Headers map[string]string

	// Cookies maps response cookie names to values.
	Cookies map[string]string

	// Body is the (possibly truncated) response body.
	Body []byte
}

// Extractor turns a fetched page into a model.PageRecord.
//
// Design decision: We parse with goquery rather than walking
// golang.org/x/net/html directly because the configured CSS selectors
// need a real selector engine, and goquery exposes the underlying node
// tree for the pieces selectors cannot reach (comment nodes, raw text).
// Extraction is a pure function of its inputs: no network access, no
// shared state.
type Extractor struct {
	// selectors are the CSS selector strings to capture text for.
	selectors []string

	// pattern is the optional text search pattern. Nil means the
	// regex_matches field is omitted from every record.
	pattern *regexp.Regexp

	// logger receives per-selector diagnostics.
	logger *slog.Logger
}

// NewExtractor creates an Extractor for the given selectors and optional
// pattern. A nil logger falls back to slog.Default().
func NewExtractor(selectors []string, pattern *regexp.Regexp, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		selectors: selectors,
		pattern:   pattern,
		logger:    logger,
	}
}

// Extract parses the response body and assembles the complete page record
// for the given URL. A parse failure is returned to the caller; everything
// downstream of a successful parse is best-effort and never fails the page.
func (e *Extractor) Extract(pageURL string, resp *Response) (model.PageRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return model.PageRecord{}, err
	}

	record := model.PageRecord{
		URL:           pageURL,
		StatusCode:    resp.StatusCode,
		Title:         strings.TrimSpace(doc.Find("title").First().Text()),
		Headers:       resp.Headers,
		Cookies:       resp.Cookies,
		Meta:          e.extractMeta(doc),
		Forms:         e.extractForms(doc),
		Assets:        e.extractAssets(doc, pageURL),
		SelectedTexts: e.extractSelectedTexts(doc, pageURL),
	}

	// One walk over the node tree collects both comment nodes and the
	// visible text used for pattern matching.
	comments, visibleText := walkNodes(doc)
	record.Comments = comments

	if e.pattern != nil {
		matches := e.pattern.FindAllString(visibleText, -1)
		if matches == nil {
			// Requested but zero hits: an empty list, not an absent field.
			matches = []string{}
		}
		record.RegexMatches = &matches
	}

	return record, nil
}

// extractMeta collects meta tags in document order. A tag contributes only
// when it carries both a name-like attribute (name, property, or
// http-equiv, in that preference order) and a non-empty content attribute.
// Later duplicates overwrite earlier ones.
func (e *Extractor) extractMeta(doc *goquery.Document) map[string]string {
	meta := make(map[string]string)
	doc.Find("meta").Each(func(_ int, sel *goquery.Selection) {
		name := sel.AttrOr("name", "")
		if name == "" {
			name = sel.AttrOr("property", "")
		}
		if name == "" {
			name = sel.AttrOr("http-equiv", "")
		}
		content := sel.AttrOr("content", "")
		if name != "" && content != "" {
			meta[name] = content
		}
	})
	return meta
}

// extractForms collects every form element regardless of validity.
func (e *Extractor) extractForms(doc *goquery.Document) []model.Form {
	forms := make([]model.Form, 0)
	doc.Find("form").Each(func(_ int, sel *goquery.Selection) {
		method := strings.ToLower(sel.AttrOr("method", ""))
		if method == "" {
			method = "get"
		}

		form := model.Form{
			Action: sel.AttrOr("action", ""),
			Method: method,
			Inputs: make([]model.FormInput, 0),
		}

		sel.Find("input, textarea, select").Each(func(_ int, field *goquery.Selection) {
			form.Inputs = append(form.Inputs, model.FormInput{
				Tag:         goquery.NodeName(field),
				Type:        field.AttrOr("type", ""),
				Name:        field.AttrOr("name", ""),
				ID:          field.AttrOr("id", ""),
				Placeholder: field.AttrOr("placeholder", ""),
				Value:       field.AttrOr("value", ""),
			})
		})

		forms = append(forms, form)
	})
	return forms
}

// extractAssets collects the page's referenced resources, resolved against
// the page URL. Duplicates are kept and document order is preserved.
func (e *Extractor) extractAssets(doc *goquery.Document, pageURL string) model.Assets {
	assets := model.Assets{
		Scripts:     make([]string, 0),
		Stylesheets: make([]string, 0),
		Images:      make([]string, 0),
		Links:       make([]string, 0),
	}

	doc.Find("script[src]").Each(func(_ int, sel *goquery.Selection) {
		if src := sel.AttrOr("src", ""); src != "" {
			assets.Scripts = append(assets.Scripts, resolveURL(pageURL, src))
		}
	})

	doc.Find("link").Each(func(_ int, sel *goquery.Selection) {
		if !relContainsStylesheet(sel.AttrOr("rel", "")) {
			return
		}
		if href := sel.AttrOr("href", ""); href != "" {
			assets.Stylesheets = append(assets.Stylesheets, resolveURL(pageURL, href))
		}
	})

	doc.Find("img[src]").Each(func(_ int, sel *goquery.Selection) {
		if src := sel.AttrOr("src", ""); src != "" {
			assets.Images = append(assets.Images, resolveURL(pageURL, src))
		}
	})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		assets.Links = append(assets.Links, resolveURL(pageURL, href))
	})

	return assets
}

// extractSelectedTexts runs each configured selector independently and
// collects non-empty trimmed texts. A selector with no matches contributes
// no entry; a syntactically invalid selector is skipped with a diagnostic
// rather than failing the page.
func (e *Extractor) extractSelectedTexts(doc *goquery.Document, pageURL string) []model.SelectorMatch {
	selected := make([]model.SelectorMatch, 0)
	for _, selector := range e.selectors {
		matcher, err := cascadia.Compile(selector)
		if err != nil {
			e.logger.Warn("invalid selector skipped", "selector", selector, "url", pageURL, "error", err)
			continue
		}

		matches := make([]string, 0)
		doc.FindMatcher(matcher).Each(func(_ int, sel *goquery.Selection) {
			if text := strings.TrimSpace(sel.Text()); text != "" {
				matches = append(matches, text)
			}
		})

		if len(matches) > 0 {
			selected = append(selected, model.SelectorMatch{
				Selector: selector,
				Matches:  matches,
			})
		}
	}
	return selected
}

// walkNodes traverses the parsed tree once, returning the trimmed
// non-empty comment strings in document order and the page's visible text
// joined with single spaces.
func walkNodes(doc *goquery.Document) ([]string, string) {
	comments := make([]string, 0)
	var textParts []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.CommentNode:
			if text := strings.TrimSpace(n.Data); text != "" {
				comments = append(comments, text)
			}
		case html.TextNode:
			if text := strings.TrimSpace(n.Data); text != "" {
				textParts = append(textParts, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, root := range doc.Selection.Nodes {
		walk(root)
	}

	return comments, strings.Join(textParts, " ")
}

// relContainsStylesheet reports whether a rel attribute contains the
// "stylesheet" token. The attribute is space-separated and case-insensitive.
func relContainsStylesheet(rel string) bool {
	for _, token := range strings.Fields(rel) {
		if strings.EqualFold(token, "stylesheet") {
			return true
		}
	}
	return false
}

// resolveURL resolves a reference against a base URL per standard URL
// joining rules. A reference that fails to parse is passed through
// unresolved rather than dropped, so the record still accounts for it.
func resolveURL(base, ref string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
