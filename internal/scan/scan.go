// Package scan walks a source tree and classifies files by language.
package scan

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/sprite-ai/repolens/internal/model"
)

// DefaultMaxFileBytes skips generated blobs and vendored bundles.
const DefaultMaxFileBytes = 1 << 20

// Directories that never hold reviewable source.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
	"target":       true,
	"build":        true,
	"dist":         true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	".next":        true,
	".cache":       true,
}

// Languages that chroma recognizes but that are not source code.
var ignoredLanguages = map[string]bool{
	"plaintext": true,
	"text only": true,
	"json":      true,
	"diff":      true,
}

// Scanner enumerates source files under a root directory.
type Scanner struct {
	// MaxFileBytes skips larger files; 0 means DefaultMaxFileBytes.
	MaxFileBytes int64
	// Exclude holds slash-separated glob patterns matched against the
	// repo-relative path and against the base name.
	Exclude []string
}

// Scan walks root and returns one entry per recognized source file, sorted by path.
func (s *Scanner) Scan(ctx context.Context, root string) ([]model.FileEntry, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	maxBytes := s.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}

	var entries []model.FileEntry
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			return nil // skip unreadable entries
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel, _ := filepath.Rel(root, p)
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if p == root {
				return nil
			}
			base := d.Name()
			if skipDirs[base] || strings.HasPrefix(base, ".") || s.excluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || s.excluded(rel) {
			return nil
		}

		lang := Language(rel)
		if lang == "" {
			return nil
		}

		fi, err := d.Info()
		if err != nil || fi.Size() > maxBytes {
			return nil
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return nil
		}
		if isBinary(data) {
			return nil
		}

		entries = append(entries, model.FileEntry{
			Path:     rel,
			Lines:    CountLines(data),
			Language: lang,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (s *Scanner) excluded(rel string) bool {
	base := path.Base(rel)
	for _, pat := range s.Exclude {
		if ok, _ := path.Match(pat, rel); ok {
			return true
		}
		if ok, _ := path.Match(pat, base); ok {
			return true
		}
		// "dir/**" excludes everything under dir.
		if prefix, found := strings.CutSuffix(pat, "/**"); found {
			if rel == prefix || strings.HasPrefix(rel, prefix+"/") {
				return true
			}
		}
	}
	return false
}

// Language classifies a file by name using chroma's lexer registry. It
// returns the lowercase lexer name, or "" when the file is not source code.
func Language(filename string) string {
	lexer := lexers.Match(path.Base(filename))
	if lexer == nil {
		ext := path.Ext(filename)
		if ext == "" {
			return ""
		}
		lexer = lexers.Match("file" + ext)
	}
	if lexer == nil {
		return ""
	}
	name := strings.ToLower(lexerName(lexer))
	if ignoredLanguages[name] {
		return ""
	}
	return name
}

func lexerName(l chroma.Lexer) string {
	if cfg := l.Config(); cfg != nil {
		return cfg.Name
	}
	return ""
}

// CountLines counts newline-terminated lines, plus one for an unterminated
// final line.
func CountLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := bytes.Count(data, []byte{'\n'})
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}

func isBinary(data []byte) bool {
	head := data
	if len(head) > 8192 {
		head = head[:8192]
	}
	return bytes.IndexByte(head, 0) >= 0
}
