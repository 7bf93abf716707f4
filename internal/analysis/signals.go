package analysis

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/sprite-ai/repolens/internal/logging"
	"github.com/sprite-ai/repolens/internal/model"
)

// DefaultMaxSignals caps how many static signals reach the prompt.
const DefaultMaxSignals = 40

const maxSignalText = 120

type signalRule struct {
	kind     model.SignalKind
	category string
	patterns []*regexp.Regexp
	// comments makes the rule apply to comment lines only; other rules
	// skip comment lines.
	comments bool
}

var signalRules = []signalRule{
	{
		kind:     model.SignalSecurity,
		category: "hardcoded secret",
		patterns: compilePatterns(
			`(?i)(api.?key|secret|password|passwd|token)\s*[:=]\s*["'][^"']{6,}["']`,
			`-----BEGIN (RSA |EC |OPENSSH )?PRIVATE KEY-----`,
		),
	},
	{
		kind:     model.SignalSecurity,
		category: "TLS verification disabled",
		patterns: compilePatterns(
			`InsecureSkipVerify:\s*true`,
			`(?i)verify\s*=\s*False`,
			`(?i)rejectUnauthorized:\s*false`,
		),
	},
	{
		kind:     model.SignalSecurity,
		category: "dynamic execution",
		patterns: compilePatterns(
			`(?i)(\beval\(|os\.system\(|shell\s*=\s*True|child_process|shell_exec\()`,
		),
	},
	{
		kind:     model.SignalSecurity,
		category: "SQL built from strings",
		patterns: compilePatterns(
			`(?i)["'](SELECT|INSERT|UPDATE|DELETE)\b[^"']*["']\s*(\+|%)`,
			`(?i)(Sprintf|format)\(\s*["'](SELECT|INSERT|UPDATE|DELETE)\b`,
		),
	},
	{
		kind:     model.SignalSmell,
		category: "broad exception handling",
		patterns: compilePatterns(
			`(?i)except\s*:`,
			`(?i)except\s+Exception\s*:`,
			`(?i)catch\s*\(\s*(Exception|Error|e)\s*\)`,
			`\.catch\(\s*(?:_|err|\(\s*\))\s*=>`,
		),
	},
	{
		kind:     model.SignalSmell,
		category: "unwrap in library code",
		patterns: compilePatterns(`\.unwrap\(\)`),
	},
	{
		kind:     model.SignalSmell,
		category: "leftover marker",
		patterns: compilePatterns(`\b(TODO|FIXME|HACK|XXX)\b`),
		comments: true,
	},
	{
		kind:     model.SignalSmell,
		category: "commented-out code",
		patterns: compilePatterns(
			`^\s*(?://|#)\s*(?:func |def |class |if |for |while |return |import |const |let |var |pub fn )`,
		),
		comments: true,
	},
}

func compilePatterns(patterns ...string) []*regexp.Regexp {
	var compiled []*regexp.Regexp
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}

func isComment(trimmed string) bool {
	return strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") ||
		strings.HasPrefix(trimmed, "*") || strings.HasPrefix(trimmed, "/*")
}

// FindSignals reads every file under root and returns lines matching the
// static signal rules, at most one per rule per line, ordered by path and
// line. Security signals are kept ahead of smells when limit cuts the list.
// Unreadable files are skipped.
func FindSignals(ctx context.Context, root string, files []model.FileEntry, limit int) ([]model.Signal, error) {
	if limit <= 0 {
		limit = DefaultMaxSignals
	}

	var found []model.Signal
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sigs, err := scanSignals(root, f.Path)
		if err != nil {
			logging.Debugf("skipping signals in %s: %v", f.Path, err)
			continue
		}
		found = append(found, sigs...)
	}

	sort.SliceStable(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if a.Kind != b.Kind {
			return a.Kind == model.SignalSecurity
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Line < b.Line
	})
	if len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}

func scanSignals(root, rel string) ([]model.Signal, error) {
	f, err := os.Open(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []model.Signal
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			continue
		}
		comment := isComment(trimmed)
		for _, rule := range signalRules {
			if rule.comments != comment {
				continue
			}
			for _, re := range rule.patterns {
				if re.MatchString(text) {
					out = append(out, model.Signal{
						Path:     rel,
						Line:     line,
						Kind:     rule.kind,
						Category: rule.category,
						Text:     clip(trimmed, maxSignalText),
					})
					break
				}
			}
		}
	}
	return out, sc.Err()
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
