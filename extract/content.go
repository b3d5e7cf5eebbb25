package extract

import (
	"log/slog"
	nurl "net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/use-agent/lookout/models"
)

// minReadableLength is the minimum text length (in characters) for
// readability output to be trusted. Below it we assume the algorithm missed
// the main content and fall back to the full snapshot.
const minReadableLength = 50

// captureContent renders the snapshot in the task's capture format. When a
// content selector is set, only its first match is captured; this is how a
// watch target scopes change detection to the part of the page that matters.
func (e *Engine) captureContent(doc *goquery.Document, state *models.PageState, task *models.Task) (string, error) {
	if task.Capture == "none" {
		return "", nil
	}

	scopedHTML := state.HTML
	scoped := false
	if task.ContentSelector != "" {
		sel := doc.Find(task.ContentSelector).First()
		if sel.Length() > 0 {
			if h, err := goquery.OuterHtml(sel); err == nil {
				scopedHTML = h
				scoped = true
			}
		}
	}

	switch task.Capture {
	case "html":
		return scopedHTML, nil

	case "markdown":
		// Readability first strips chrome (nav, footers, consent banners)
		// unless the capture is already scoped to one element.
		body := scopedHTML
		if !scoped {
			if article, ok := readable(scopedHTML, state.FinalURL); ok {
				body = article.Content
			}
		}
		md, err := e.mdConverter.ConvertString(body, converter.WithDomain(state.FinalURL))
		if err != nil {
			return "", models.NewRunError(models.ErrCodeExtraction,
				"markdown conversion failed", err)
		}
		return md, nil

	default: // "text"
		if scoped {
			frag, err := goquery.NewDocumentFromReader(strings.NewReader(scopedHTML))
			if err != nil {
				return "", models.NewRunError(models.ErrCodeExtraction,
					"content selector fragment is not parseable", err)
			}
			return normalizeText(frag.Text()), nil
		}
		if article, ok := readable(scopedHTML, state.FinalURL); ok {
			return normalizeText(article.TextContent), nil
		}
		return normalizeText(doc.Text()), nil
	}
}

// readable runs the Mozilla Readability algorithm. It returns ok=false when
// extraction fails or yields too little text, in which case callers fall back
// to the raw snapshot: capture must never fail just because readability choked.
func readable(rawHTML, sourceURL string) (readability.Article, bool) {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		slog.Warn("readability: invalid source URL, using raw snapshot",
			"url", sourceURL, "error", err)
		return readability.Article{}, false
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Warn("readability: extraction failed, using raw snapshot",
			"url", sourceURL, "error", err)
		return readability.Article{}, false
	}

	if len(strings.TrimSpace(article.TextContent)) < minReadableLength {
		return readability.Article{}, false
	}
	return article, true
}

// normalizeText collapses runs of whitespace so fingerprints don't wobble on
// layout-only differences between renders.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// newMarkdownConverter builds the shared converter: base plugin strips
// script/style/head noise, commonmark renders standard Markdown, and the
// table plugin keeps tabular structure with minimal cell padding.
func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(
				table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
			),
		),
	)
}
