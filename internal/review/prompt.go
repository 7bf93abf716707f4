// Package review builds model prompts from a ReviewContext and parses the
// model's reply into review sections.
package review

import (
	"fmt"
	"strings"

	"github.com/sprite-ai/repolens/internal/model"
)

// maxPromptEdges caps how many dependency edges are listed verbatim.
const maxPromptEdges = 200

const outputContract = `Structure your answer as markdown with exactly these five level-2 headings, in this order:

## Architecture
## Performance
## Security
## Code Smells
## Structural Improvements

Under each heading, refer to concrete file paths from the repository summary. If a heading has nothing worth saying, write "Nothing notable." under it. Do not add other top-level headings.`

var tones = map[model.ReviewMode]string{
	model.ModeCalm: `You are a kind senior engineer reviewing a colleague's repository. Lead with what works well, phrase problems as suggestions, and keep the overall tone encouraging. Mention only the issues that matter most.`,
	model.ModeInformative: `You are an experienced staff engineer reviewing a repository. Be balanced and specific: explain each issue, why it matters, and how to address it. Prefer concrete recommendations over general advice.`,
	model.ModeHardcore: `You are a demanding principal engineer doing an uncompromising review of a repository. Be blunt and exhaustive. Call out every structural weakness, risk and smell you can infer, rank issues by severity, and do not soften criticism.`,
}

// BuildSystemPrompt returns the persona and output contract for mode.
func BuildSystemPrompt(mode model.ReviewMode) string {
	tone, ok := tones[mode]
	if !ok {
		tone = tones[model.ModeInformative]
	}
	return tone + "\n\nYou only see a structural summary of the repository: file sizes, languages, the file-level dependency graph and a few lines flagged by static patterns. Base your review on that structure.\n\n" + outputContract
}

// BuildUserPrompt renders rc as the repository summary sent to the model.
func BuildUserPrompt(rc model.ReviewContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Review this repository (%s mode).\n\n", rc.Mode)

	b.WriteString("## Overview\n")
	fmt.Fprintf(&b, "- Files: %d\n", rc.TotalFiles)
	fmt.Fprintf(&b, "- Lines: %d\n", rc.TotalLines)
	if len(rc.Languages) > 0 {
		parts := make([]string, len(rc.Languages))
		for i, lc := range rc.Languages {
			parts[i] = fmt.Sprintf("%s (%d)", lc.Language, lc.Files)
		}
		fmt.Fprintf(&b, "- Languages: %s\n", strings.Join(parts, ", "))
	}

	writeFiles(&b, "Largest files", rc.TopFiles)
	writeFiles(&b, "Files over the size threshold", rc.LargeFiles)

	b.WriteString("\n## Circular dependencies\n")
	if len(rc.CircularDeps) == 0 {
		b.WriteString("None detected.\n")
	}
	for _, cycle := range rc.CircularDeps {
		fmt.Fprintf(&b, "- %s -> %s\n", strings.Join(cycle, " -> "), cycle[0])
	}

	if len(rc.Signals) > 0 {
		b.WriteString("\n## Static signals\n")
		for _, sig := range rc.Signals {
			fmt.Fprintf(&b, "- [%s] %s:%d %s: %s\n", sig.Kind, sig.Path, sig.Line, sig.Category, sig.Text)
		}
	}

	fmt.Fprintf(&b, "\n## Dependency edges (%d)\n", len(rc.DependencyEdges))
	for i, e := range rc.DependencyEdges {
		if i == maxPromptEdges {
			fmt.Fprintf(&b, "- ... and %d more\n", len(rc.DependencyEdges)-maxPromptEdges)
			break
		}
		fmt.Fprintf(&b, "- %s -> %s\n", e.From, e.To)
	}

	return b.String()
}

func writeFiles(b *strings.Builder, title string, files []model.FileEntry) {
	if len(files) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s\n", title)
	for _, f := range files {
		fmt.Fprintf(b, "- %s: %d lines (%s)\n", f.Path, f.Lines, f.Language)
	}
}
