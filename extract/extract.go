// Package extract converts rendered page snapshots into structured records.
// Extraction rules come entirely from configuration; nothing here knows what
// site it is reading.
package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/lookout/models"
)

// Engine applies a task's field rules and content capture to a PageState.
// It reads the snapshot only; the live session is never touched.
type Engine struct {
	mdConverter *converter.Converter
}

// NewEngine initialises the Engine with a reusable Markdown converter
// (goroutine-safe, created once).
func NewEngine() *Engine {
	return &Engine{mdConverter: newMarkdownConverter()}
}

// Extract produces a Record from the page snapshot. A missing required field
// is a structural mismatch (EXTRACT_FAILED): the page loaded, but its shape
// no longer matches the configured expectation, so retrying won't help.
func (e *Engine) Extract(state *models.PageState, task *models.Task) (*models.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(state.HTML))
	if err != nil {
		return nil, models.NewRunError(models.ErrCodeExtraction,
			"snapshot is not parseable HTML", err)
	}

	fields := make(map[string]any, len(task.Fields))
	var missing []string

	for name, rule := range task.Fields {
		if rule.List {
			values := e.selectAll(doc, rule)
			if len(values) == 0 && rule.Required {
				missing = append(missing, name)
				continue
			}
			fields[name] = values
			continue
		}

		value, found := e.selectOne(doc, rule)
		if !found && rule.Required {
			missing = append(missing, name)
			continue
		}
		fields[name] = value
	}

	if len(missing) > 0 {
		return nil, models.NewRunError(models.ErrCodeExtraction,
			fmt.Sprintf("required fields absent from page: %s", strings.Join(missing, ", ")), nil)
	}

	content, err := e.captureContent(doc, state, task)
	if err != nil {
		return nil, err
	}

	return &models.Record{
		TaskID:     task.ID,
		SourceURL:  state.FinalURL,
		FetchedAt:  time.Now().UTC(),
		StatusCode: state.StatusCode,
		Fields:     fields,
		Content:    content,
		Title:      state.Title,
	}, nil
}

// selectOne resolves a scalar field rule against the document.
func (e *Engine) selectOne(doc *goquery.Document, rule models.FieldRule) (string, bool) {
	sel := doc.Find(rule.Selector).First()
	if sel.Length() == 0 {
		return "", false
	}
	return readValue(sel, rule)
}

// selectAll resolves a list field rule, skipping matches whose value is empty.
func (e *Engine) selectAll(doc *goquery.Document, rule models.FieldRule) []string {
	values := []string{}
	doc.Find(rule.Selector).Each(func(_ int, sel *goquery.Selection) {
		if v, ok := readValue(sel, rule); ok {
			values = append(values, v)
		}
	})
	return values
}

// readValue pulls the attribute or trimmed text from one selection.
// An attribute rule whose attribute is absent counts as not found.
func readValue(sel *goquery.Selection, rule models.FieldRule) (string, bool) {
	if rule.Attr != "" {
		v, ok := sel.Attr(rule.Attr)
		return strings.TrimSpace(v), ok
	}
	return strings.TrimSpace(sel.Text()), true
}
