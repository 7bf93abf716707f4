package review

import (
	"errors"
	"strings"

	"github.com/sprite-ai/repolens/internal/model"
)

// ErrUnstructured is returned by ParseOutput when the reply has none of the
// expected section headings. The returned output still carries Raw.
var ErrUnstructured = errors.New("model reply has no recognizable review sections")

type sectionKey int

const (
	secNone sectionKey = iota
	secArchitecture
	secPerformance
	secSecurity
	secCodeSmells
	secStructural
)

var sectionAliases = map[string]sectionKey{
	"architecture":            secArchitecture,
	"architecture review":     secArchitecture,
	"design":                  secArchitecture,
	"performance":             secPerformance,
	"security":                secSecurity,
	"code smells":             secCodeSmells,
	"code smell":              secCodeSmells,
	"smells":                  secCodeSmells,
	"structural improvements": secStructural,
	"structural improvement":  secStructural,
	"improvements":            secStructural,
	"refactoring":             secStructural,
}

// ParseOutput splits a markdown reply into the five review sections.
// Headings may use any '#' level or be a bold line; numbering and trailing
// colons are ignored. Headings inside fenced code blocks are not headings.
// Raw always equals raw.
func ParseOutput(raw string) (model.ReviewOutput, error) {
	out := model.ReviewOutput{Raw: raw}
	bodies := make(map[sectionKey]*strings.Builder)

	current := secNone
	inFence := false
	found := false

	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
		} else if !inFence {
			if key := headingKey(trimmed); key != secNone {
				current = key
				found = true
				if bodies[key] == nil {
					bodies[key] = &strings.Builder{}
				} else {
					bodies[key].WriteString("\n")
				}
				continue
			}
		}
		if current != secNone {
			bodies[current].WriteString(line)
			bodies[current].WriteString("\n")
		}
	}

	if !found {
		return out, ErrUnstructured
	}

	text := func(k sectionKey) string {
		if b := bodies[k]; b != nil {
			return strings.TrimSpace(b.String())
		}
		return ""
	}
	out.Architecture = text(secArchitecture)
	out.Performance = text(secPerformance)
	out.Security = text(secSecurity)
	out.CodeSmells = text(secCodeSmells)
	out.StructuralImprovements = text(secStructural)
	return out, nil
}

func headingKey(line string) sectionKey {
	var title string
	switch {
	case strings.HasPrefix(line, "#"):
		title = strings.TrimLeft(line, "#")
		if title == line || (title != "" && title[0] != ' ' && title[0] != '\t') {
			return secNone
		}
	case strings.HasPrefix(line, "**") && strings.HasSuffix(strings.TrimSuffix(line, ":"), "**") && len(line) > 4:
		title = strings.Trim(strings.TrimSuffix(line, ":"), "*")
	default:
		return secNone
	}
	return sectionAliases[normalizeTitle(title)]
}

func normalizeTitle(s string) string {
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "*_"))
	s = strings.TrimSuffix(s, ":")
	// "1. Architecture" or "2) Performance"
	if i := strings.IndexAny(s, ".)"); i > 0 && isDigits(s[:i]) {
		s = s[i+1:]
	}
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
