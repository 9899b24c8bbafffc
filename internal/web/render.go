package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hpungsan/dwell/internal/errors"
	"github.com/hpungsan/dwell/internal/ops"
	"github.com/hpungsan/dwell/internal/site"
	"github.com/hpungsan/dwell/internal/tracker"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
}

// DashboardPageData is the template data for the dashboard.
type DashboardPageData struct {
	PageData
	Report     *ops.ReportOutput
	ReportHTML template.HTML
	Stats      tracker.SessionStats
	Current    *tracker.CurrentSession
	IsToday    bool
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// markdown renders reports; tables need the GFM table extension.
var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string) *Renderer {
	funcMap := template.FuncMap{
		"duration":  func(ms int64) string { return site.FormatDuration(time.Duration(ms) * time.Millisecond) },
		"stopwatch": func(ms int64) string { return site.FormatStopwatch(time.Duration(ms) * time.Millisecond) },
	}

	// Parse layout as the base template
	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"dashboard": "dashboard.html",
		"error":     "error.html",
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
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
// For HTMX requests, only the "content" block is rendered to avoid duplicating the layout.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		slog.Error("template not found", slog.String("template", name))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	block := "layout"
	if req != nil && req.Header.Get("HX-Request") == "true" {
		block = "content"
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		slog.Error("template execution failed", slog.String("template", name), slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	dErr := asDwellError(err)

	// JSON request
	if strings.Contains(req.Header.Get("Accept"), "application/json") {
		renderJSONError(w, dErr)
		return
	}

	// Full error page
	r.renderPageStatus(w, req, dErr.Status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", dErr.Status),
			Version: r.version,
		},
		StatusCode: dErr.Status,
		Message:    dErr.Message,
	})
}

// renderJSONError writes the structured failure payload. Internal errors keep
// their code but hide message and details.
func renderJSONError(w http.ResponseWriter, err error) {
	dErr := asDwellError(err)

	errorObj := map[string]any{
		"code":    string(dErr.Code),
		"message": dErr.Message,
		"status":  dErr.Status,
	}
	if dErr.Code == errors.ErrInternal {
		errorObj["message"] = "an internal error occurred"
	} else if dErr.Details != nil {
		errorObj["details"] = dErr.Details
	}
	renderJSON(w, dErr.Status, map[string]any{"error": errorObj})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderMarkdown converts markdown text to HTML using goldmark.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

func asDwellError(err error) *errors.DwellError {
	var dErr *errors.DwellError
	if stderrors.As(err, &dErr) {
		return dErr
	}
	return errors.NewInternal(err)
}
