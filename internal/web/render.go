package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/wavemo/wavemo/internal/catalog"
	"github.com/wavemo/wavemo/internal/errors"
	"github.com/wavemo/wavemo/internal/explore"
	"github.com/wavemo/wavemo/internal/records"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "records", "cards", "about"
}

// RecordsPageData is the template data for the record list page.
type RecordsPageData struct {
	PageData
	Items      []records.Record
	Pagination records.Pagination
	Query      string
	From       string
	To         string
}

// RecordPageData is the template data for the record detail page.
type RecordPageData struct {
	PageData
	Record *records.Record
}

// CardsPageData is the template data for the card catalog page.
type CardsPageData struct {
	PageData
	Categories []catalog.Category
	Cards      map[int][]catalog.Card
}

// AboutArticle is one rendered about-emotions article.
type AboutArticle struct {
	Title string
	HTML  template.HTML
}

// AboutPageData is the template data for the about-emotions page.
type AboutPageData struct {
	PageData
	Articles []AboutArticle
}

// AnalysisPageData is the template data for the analysis page.
type AnalysisPageData struct {
	PageData
	Analysis *records.AnalysisOutput
	From     string
	To       string
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string) *Renderer {
	funcMap := template.FuncMap{
		"add":         func(a, b int) int { return a + b },
		"sub":         func(a, b int) int { return a - b },
		"formatTime":  formatTime,
		"formatDelta": formatDelta,
		"expectLabel": expectLabel,
		"levelDots":   levelDots,
	}

	// Parse layout as the base template
	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"records":  "records.html",
		"record":   "record.html",
		"cards":    "cards.html",
		"about":    "about.html",
		"analysis": "analysis.html",
		"error":    "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
	}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, name string, data any) {
	r.renderPageStatus(w, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and status code.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		log.Printf("template %q not found", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Printf("template execution error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation: JSON for
// API callers, a full error page otherwise.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	wErr := asWavemoError(err)

	if strings.HasPrefix(req.URL.Path, "/api/") ||
		strings.Contains(req.Header.Get("Accept"), "application/json") {
		writeError(w, err)
		return
	}

	r.renderPageStatus(w, wErr.Status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", wErr.Status),
			Version: r.version,
		},
		StatusCode: wErr.Status,
		Message:    wErr.Message,
	})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes the structured JSON error envelope used by the API.
// The shape matches what records.Client parses on the submitting side.
func writeError(w http.ResponseWriter, err error) {
	wErr := asWavemoError(err)
	renderJSON(w, wErr.Status, map[string]any{
		"error": map[string]any{
			"code":    string(wErr.Code),
			"message": wErr.Message,
			"details": wErr.Details,
		},
	})
}

// asWavemoError coerces any error into a structured one.
func asWavemoError(err error) *errors.WavemoError {
	var wErr *errors.WavemoError
	if !stderrors.As(err, &wErr) {
		wErr = errors.NewInternal(err)
	}
	return wErr
}

// renderMarkdown converts markdown text to HTML using goldmark.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// formatTime formats a Unix timestamp as "2006-01-02 15:04" UTC.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}

// formatDelta renders a signed average with two decimals.
func formatDelta(v float64) string {
	return fmt.Sprintf("%+.2f", v)
}

// expectLabel maps the tri-state answer to display text.
func expectLabel(e explore.Expectation) string {
	switch e {
	case explore.ExpectYes:
		return "expected"
	case explore.ExpectNo:
		return "unexpected"
	}
	return "unclear"
}

// levelDots renders a 1-5 rating as filled and empty dots. Zero means the
// card was not rated.
func levelDots(level int) string {
	if level <= 0 {
		return "—"
	}
	if level > explore.MaxLevel {
		level = explore.MaxLevel
	}
	return strings.Repeat("●", level) + strings.Repeat("○", explore.MaxLevel-level)
}
