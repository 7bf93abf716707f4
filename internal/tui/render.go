package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sprite-ai/repolens/internal/app"
	"github.com/sprite-ai/repolens/internal/model"
	"github.com/sprite-ai/repolens/internal/render"
)

// contentLines lays out the scrollable body for st at the given width.
func contentLines(st app.State, width int) []string {
	if width < 10 {
		width = 10
	}
	var lines []string

	if st.Status.Status == model.StatusError {
		lines = append(lines, wrap(errorStyle, st.Status.String(), width)...)
		lines = append(lines, waitingStyle.Render("Press r to try again."), "")
	}

	if rc := st.Context; rc != nil {
		lines = append(lines, statsLines(rc, width)...)
	} else if st.Status.Status.InFlight() {
		lines = append(lines, waitingStyle.Render("Waiting for the scan to finish..."))
	} else if st.Status.Status == model.StatusIdle {
		lines = append(lines, waitingStyle.Render("Press r to start a review."))
	}

	if out := st.Output; out != nil {
		lines = append(lines, "")
		lines = append(lines, sectionLines(out, width)...)
	} else if st.Status.Status == model.StatusQueryingOllama {
		lines = append(lines, "", waitingStyle.Render(fmt.Sprintf("Waiting for %s...", st.Model)))
	}
	return lines
}

func statsLines(rc *model.ReviewContext, width int) []string {
	stat := func(label string, value any) string {
		return statLabelStyle.Render(label) + " " + statValueStyle.Render(fmt.Sprint(value))
	}

	lines := []string{
		sectionHeaderStyle.Render("Repository"),
		stat("Files:", rc.TotalFiles) + "   " + stat("Lines:", rc.TotalLines) + "   " + stat("Edges:", len(rc.DependencyEdges)),
	}

	if len(rc.Languages) > 0 {
		parts := make([]string, len(rc.Languages))
		for i, lc := range rc.Languages {
			parts[i] = fmt.Sprintf("%s %d", lc.Language, lc.Files)
		}
		lines = append(lines, wrap(textStyle, "Languages: "+strings.Join(parts, ", "), width)...)
	}

	if len(rc.TopFiles) > 0 {
		lines = append(lines, "", sectionHeaderStyle.Render("Largest files"))
		for _, f := range rc.TopFiles {
			marker := "  "
			if isLarge(rc, f) {
				marker = "! "
			}
			lines = append(lines, truncate(fmt.Sprintf("%s%6d  %s", marker, f.Lines, f.Path), width))
		}
	}

	lines = append(lines, "", sectionHeaderStyle.Render(fmt.Sprintf("Circular dependencies (%d)", len(rc.CircularDeps))))
	if len(rc.CircularDeps) == 0 {
		lines = append(lines, noCycleStyle.Render("None"))
	}
	for _, c := range rc.CircularDeps {
		lines = append(lines, wrap(cycleStyle, render.CycleString(c), width)...)
	}

	if len(rc.Signals) > 0 {
		lines = append(lines, "", sectionHeaderStyle.Render(fmt.Sprintf("Static signals (%d)", len(rc.Signals))))
		for _, sig := range rc.Signals {
			style := textStyle
			if sig.Kind == model.SignalSecurity {
				style = cycleStyle
			}
			lines = append(lines, style.Render(truncate(render.SignalLocation(sig)+"  "+sig.Category, width)))
		}
	}
	return lines
}

func isLarge(rc *model.ReviewContext, f model.FileEntry) bool {
	for _, l := range rc.LargeFiles {
		if l.Path == f.Path {
			return true
		}
	}
	return false
}

func sectionLines(out *model.ReviewOutput, width int) []string {
	secs := out.Sections()
	if !out.HasSections() {
		secs = []model.Section{{Title: "Review", Body: out.Raw}}
	}

	var lines []string
	for _, s := range secs {
		body := strings.TrimSpace(s.Body)
		if body == "" {
			continue
		}
		lines = append(lines, sectionHeaderStyle.Render(s.Title))
		for _, l := range render.Body(body) {
			lines = append(lines, styleLine(l, width)...)
		}
		lines = append(lines, "")
	}
	return lines
}

// styleLine colors a review line. Code is truncated, prose is wrapped.
func styleLine(l render.Line, width int) []string {
	switch {
	case l.Fence:
		return []string{fenceStyle.Render(truncate(l.Plain(), width))}
	case l.Code:
		var b strings.Builder
		used := 0
		for _, tok := range l.Tokens {
			r := []rune(tok.Text)
			if used+len(r) > width {
				r = r[:max(0, width-used)]
			}
			used += len(r)
			if tok.Color != "" {
				b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(tok.Color)).Render(string(r)))
			} else {
				b.WriteString(string(r))
			}
			if used >= width {
				break
			}
		}
		return []string{b.String()}
	default:
		return wrap(textStyle, l.Plain(), width)
	}
}

func wrap(style lipgloss.Style, text string, width int) []string {
	if text == "" {
		return []string{""}
	}
	return strings.Split(style.Width(width).Render(text), "\n")
}

func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	if len(r) > width-1 {
		r = r[:max(0, width-1)]
	}
	return string(r) + "…"
}
