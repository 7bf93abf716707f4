// Package render formats review results for terminals, files and tools.
package render

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/sprite-ai/repolens/internal/model"
)

// Format is a report output format.
type Format int

const (
	FormatText Format = iota
	FormatMarkdown
	FormatJSON
	FormatHTML
)

func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatMarkdown:
		return "markdown"
	case FormatJSON:
		return "json"
	case FormatHTML:
		return "html"
	default:
		return "unknown"
	}
}

// ParseFormat parses a --format value.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "html":
		return FormatHTML, nil
	}
	return 0, fmt.Errorf("unknown format %q: choose text, markdown, json, or html", s)
}

// Report is everything a finished run produced.
type Report struct {
	Status  model.AppStatus      `json:"status"`
	Context *model.ReviewContext `json:"context,omitempty"`
	Output  *model.ReviewOutput  `json:"output,omitempty"`
}

// Write renders r to w in format f.
func Write(w io.Writer, f Format, r Report) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatMarkdown:
		return writeMarkdown(w, r)
	case FormatHTML:
		return writeHTML(w, r)
	default:
		return writeText(w, r)
	}
}

// SignalLocation renders a signal's position as "path:line".
func SignalLocation(sig model.Signal) string {
	return fmt.Sprintf("%s:%d", sig.Path, sig.Line)
}

// CycleString renders a cycle as "a -> b -> a".
func CycleString(cycle []string) string {
	if len(cycle) == 0 {
		return ""
	}
	return strings.Join(cycle, " -> ") + " -> " + cycle[0]
}

func languages(rc *model.ReviewContext) string {
	parts := make([]string, len(rc.Languages))
	for i, lc := range rc.Languages {
		parts[i] = fmt.Sprintf("%s %d", lc.Language, lc.Files)
	}
	return strings.Join(parts, ", ")
}

// sections returns the sections to print: the structured ones, or the raw
// reply under a single heading when nothing was parsed.
func sections(out *model.ReviewOutput) []model.Section {
	if out == nil {
		return nil
	}
	if !out.HasSections() {
		return []model.Section{{Title: "Review", Body: out.Raw}}
	}
	var secs []model.Section
	for _, s := range out.Sections() {
		if strings.TrimSpace(s.Body) != "" {
			secs = append(secs, s)
		}
	}
	return secs
}

func writeText(w io.Writer, r Report) error {
	ew := &errWriter{w: w}
	if rc := r.Context; rc != nil {
		ew.printf("%d file(s), %d line(s), mode %s, model %s\n", rc.TotalFiles, rc.TotalLines, rc.Mode, rc.Model)
		if len(rc.Languages) > 0 {
			ew.printf("Languages: %s\n", languages(rc))
		}
		if len(rc.TopFiles) > 0 {
			ew.printf("\nLargest files:\n")
			for _, f := range rc.TopFiles {
				ew.printf("  %6d  %s\n", f.Lines, f.Path)
			}
		}
		ew.printf("\nCircular dependencies: %d\n", len(rc.CircularDeps))
		for _, c := range rc.CircularDeps {
			ew.printf("  %s\n", CycleString(c))
		}
		if len(rc.Signals) > 0 {
			ew.printf("\nStatic signals:\n")
			for _, sig := range rc.Signals {
				ew.printf("  %s  %s: %s\n", SignalLocation(sig), sig.Category, sig.Text)
			}
		}
		ew.printf("\n")
	}
	ew.printf("Status: %s\n", r.Status)
	for _, s := range sections(r.Output) {
		ew.printf("\n== %s ==\n%s\n", s.Title, strings.TrimSpace(s.Body))
	}
	return ew.err
}

func writeMarkdown(w io.Writer, r Report) error {
	ew := &errWriter{w: w}
	ew.printf("# Repository Review\n\n")
	if rc := r.Context; rc != nil {
		ew.printf("**%d file(s)**, **%d line(s)** | **Mode:** %s | **Model:** `%s`\n\n", rc.TotalFiles, rc.TotalLines, rc.Mode, rc.Model)
		if len(rc.Languages) > 0 {
			ew.printf("**Languages:** %s\n\n", languages(rc))
		}
		if len(rc.TopFiles) > 0 {
			ew.printf("| Lines | File |\n|------:|------|\n")
			for _, f := range rc.TopFiles {
				ew.printf("| %d | `%s` |\n", f.Lines, f.Path)
			}
			ew.printf("\n")
		}
		if len(rc.CircularDeps) > 0 {
			ew.printf("### Circular dependencies\n\n")
			for _, c := range rc.CircularDeps {
				ew.printf("- `%s`\n", CycleString(c))
			}
			ew.printf("\n")
		}
		if len(rc.Signals) > 0 {
			ew.printf("### Static signals\n\n| Where | Kind | Category |\n|-------|------|----------|\n")
			for _, sig := range rc.Signals {
				ew.printf("| `%s` | %s | %s |\n", SignalLocation(sig), sig.Kind, sig.Category)
			}
			ew.printf("\n")
		}
	}
	if r.Status.Status == model.StatusError {
		ew.printf("> **%s**\n", r.Status)
	}
	for _, s := range sections(r.Output) {
		ew.printf("## %s\n\n%s\n\n", s.Title, strings.TrimSpace(s.Body))
	}
	return ew.err
}

func writeHTML(w io.Writer, r Report) error {
	ew := &errWriter{w: w}
	ew.printf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>repolens review</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 900px; margin: 40px auto; padding: 0 20px; background: #282a36; color: #f8f8f2; }
  h1 { color: #bd93f9; }
  h2 { color: #8be9fd; }
  .summary { background: #343746; padding: 16px; border-radius: 8px; margin-bottom: 24px; }
  .summary span { margin-right: 24px; }
  .error { color: #ff5555; font-weight: bold; }
  .cycle { color: #f1fa8c; }
  .security { color: #ff5555; }
  .smell { color: #ffb86c; }
  pre { background: #343746; padding: 12px; border-radius: 8px; white-space: pre-wrap; }
  code { background: #343746; padding: 2px 6px; border-radius: 4px; font-size: 0.9em; }
  footer { margin-top: 32px; color: #6272a4; font-size: 0.85em; }
</style>
</head>
<body>
<h1>repolens review</h1>
`)
	if rc := r.Context; rc != nil {
		ew.printf(`<div class="summary">
  <span><strong>%d</strong> file(s)</span>
  <span><strong>%d</strong> line(s)</span>
  <span>Mode: %s</span>
  <span>Model: <code>%s</code></span>
</div>
`, rc.TotalFiles, rc.TotalLines, rc.Mode, html.EscapeString(rc.Model))
		if len(rc.CircularDeps) > 0 {
			ew.printf("<h2>Circular dependencies</h2>\n<ul>\n")
			for _, c := range rc.CircularDeps {
				ew.printf("<li class=\"cycle\"><code>%s</code></li>\n", html.EscapeString(CycleString(c)))
			}
			ew.printf("</ul>\n")
		}
		if len(rc.Signals) > 0 {
			ew.printf("<h2>Static signals</h2>\n<ul>\n")
			for _, sig := range rc.Signals {
				ew.printf("<li class=\"%s\"><code>%s</code> %s</li>\n",
					sig.Kind, html.EscapeString(SignalLocation(sig)), html.EscapeString(sig.Category))
			}
			ew.printf("</ul>\n")
		}
	}
	if r.Status.Status == model.StatusError {
		ew.printf("<p class=\"error\">%s</p>\n", html.EscapeString(r.Status.String()))
	}
	for _, s := range sections(r.Output) {
		ew.printf("<h2>%s</h2>\n<pre>%s</pre>\n", html.EscapeString(s.Title), html.EscapeString(strings.TrimSpace(s.Body)))
	}
	ew.printf("<footer>Generated by <strong>repolens</strong></footer>\n</body>\n</html>\n")
	return ew.err
}

// errWriter keeps the first write error so report code can print freely.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
