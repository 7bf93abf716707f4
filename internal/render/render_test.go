package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sprite-ai/repolens/internal/model"
)

func TestHighlightLines(t *testing.T) {
	lines := []string{
		"package main",
		"",
		"func main() {",
		`	fmt.Println("hello")`,
		"}",
	}

	highlighted := HighlightLines("go", lines)
	if len(highlighted) != len(lines) {
		t.Fatalf("expected %d highlighted lines, got %d", len(lines), len(highlighted))
	}
	if len(highlighted[0].Tokens) == 0 {
		t.Error("expected tokens in first line")
	}
	if highlighted[0].Plain() != "package main" {
		t.Errorf("plain text mismatch: %q", highlighted[0].Plain())
	}
	colored := false
	for _, tok := range highlighted[0].Tokens {
		if tok.Color != "" {
			colored = true
		}
	}
	if !colored {
		t.Error("expected the keyword to carry a color")
	}
}

func TestHighlightLinesUnknownLanguage(t *testing.T) {
	lines := []string{"some content", "more content"}
	highlighted := HighlightLines("nosuchlang123", lines)
	if len(highlighted) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(highlighted))
	}
	if highlighted[0].Plain() != "some content" {
		t.Errorf("expected plain passthrough, got %q", highlighted[0].Plain())
	}
}

func TestBody(t *testing.T) {
	text := "Split the module.\n```python\nimport os\n```\nDone."
	lines := Body(text)
	if len(lines) != 5 {
		t.Fatalf("Body returned %d lines, want 5", len(lines))
	}
	if lines[0].Code || lines[0].Plain() != "Split the module." {
		t.Errorf("line 0 = %+v", lines[0])
	}
	if !lines[1].Fence || !lines[3].Fence {
		t.Error("fence delimiters not marked")
	}
	if !lines[2].Code || lines[2].Plain() != "import os" {
		t.Errorf("code line = %+v", lines[2])
	}
	if lines[4].Code {
		t.Error("text after the fence should not be code")
	}
}

func TestBodyUnterminatedFence(t *testing.T) {
	lines := Body("```go\nx := 1")
	if len(lines) != 2 || lines[1].Plain() != "x := 1" || !lines[1].Code {
		t.Errorf("Body = %+v", lines)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatText},
		{"text", FormatText},
		{"MD", FormatMarkdown},
		{"markdown", FormatMarkdown},
		{"json", FormatJSON},
		{"html", FormatHTML},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %s, %v; want %s", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("expected error for yaml")
	}
}

func sampleReport() Report {
	return Report{
		Status: model.AppStatus{Status: model.StatusDone},
		Context: &model.ReviewContext{
			TotalFiles:   2,
			TotalLines:   120,
			TopFiles:     []model.FileEntry{{Path: "src/a.rs", Lines: 100, Language: "rust"}},
			Languages:    []model.LanguageCount{{Language: "rust", Files: 2}},
			CircularDeps: [][]string{{"src/a.rs", "src/b.rs"}},
			Signals: []model.Signal{
				{Path: "src/b.rs", Line: 7, Kind: model.SignalSmell, Category: "leftover marker", Text: "// TODO: split"},
			},
			Mode:  model.ModeCalm,
			Model: "llama3.1",
		},
		Output: &model.ReviewOutput{
			Architecture: "Two modules <tightly> coupled.",
			Raw:          "## Architecture\nTwo modules <tightly> coupled.",
		},
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatText, sampleReport()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"2 file(s), 120 line(s), mode calm, model llama3.1",
		"Languages: rust 2",
		"src/a.rs -> src/b.rs -> src/a.rs",
		"Status: Review complete",
		"src/b.rs:7  leftover marker: // TODO: split",
		"== Architecture ==",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "== Security ==") {
		t.Error("empty sections should be omitted")
	}
}

func TestWriteRawFallback(t *testing.T) {
	r := Report{
		Status: model.AppStatus{Status: model.StatusDone},
		Output: &model.ReviewOutput{Raw: "free-form reply"},
	}
	var buf bytes.Buffer
	if err := Write(&buf, FormatMarkdown, r); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "## Review\n\nfree-form reply") {
		t.Errorf("markdown report = %q", buf.String())
	}
}

func TestWriteMarkdownError(t *testing.T) {
	r := Report{Status: model.AppStatus{Status: model.StatusError, Message: "scan: denied"}}
	var buf bytes.Buffer
	if err := Write(&buf, FormatMarkdown, r); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "> **Error: scan: denied**") {
		t.Errorf("markdown report = %q", buf.String())
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatJSON, sampleReport()); err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Status struct {
			Status string `json:"status"`
		} `json:"status"`
		Context struct {
			Languages [][]any `json:"languages"`
			Mode      string  `json:"mode"`
		} `json:"context"`
		Output struct {
			Architecture string `json:"architecture"`
		} `json:"output"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Status.Status != "done" || decoded.Context.Mode != "calm" {
		t.Errorf("decoded = %+v", decoded)
	}
	if len(decoded.Context.Languages) != 1 || decoded.Context.Languages[0][0] != "rust" {
		t.Errorf("languages = %v", decoded.Context.Languages)
	}
}

func TestWriteHTMLEscapes(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatHTML, sampleReport()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, "<tightly>") {
		t.Error("review text was not escaped")
	}
	if !strings.Contains(out, "&lt;tightly&gt;") {
		t.Errorf("escaped text missing:\n%s", out)
	}
}
