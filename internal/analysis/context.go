// Package analysis aggregates scan results into the context handed to the model.
package analysis

import (
	"sort"

	"github.com/sprite-ai/repolens/internal/model"
)

// Default limits for context assembly.
const (
	DefaultTopFiles       = 10
	DefaultLargeFileLines = 500
)

// Options controls context assembly.
type Options struct {
	TopFiles       int // how many of the largest files to keep
	LargeFileLines int // files with more lines than this are "large"
	MaxSignals     int // cap on static signals; see FindSignals
	Mode           model.ReviewMode
	Model          string
}

func (o Options) withDefaults() Options {
	if o.TopFiles <= 0 {
		o.TopFiles = DefaultTopFiles
	}
	if o.LargeFileLines <= 0 {
		o.LargeFileLines = DefaultLargeFileLines
	}
	return o
}

// BuildContext aggregates a scan into a ReviewContext. It performs no I/O and
// copies every slice it keeps, so later changes to the inputs do not leak
// into the returned snapshot.
func BuildContext(files []model.FileEntry, edges []model.DependencyEdge, cycles [][]string, opts Options) model.ReviewContext {
	opts = opts.withDefaults()

	bySize := make([]model.FileEntry, len(files))
	copy(bySize, files)
	sort.SliceStable(bySize, func(i, j int) bool {
		if bySize[i].Lines != bySize[j].Lines {
			return bySize[i].Lines > bySize[j].Lines
		}
		return bySize[i].Path < bySize[j].Path
	})

	total := 0
	for _, f := range files {
		total += f.Lines
	}

	top := bySize
	if len(top) > opts.TopFiles {
		top = top[:opts.TopFiles]
	}

	large := []model.FileEntry{}
	for _, f := range bySize {
		if f.Lines > opts.LargeFileLines {
			large = append(large, f)
		}
	}

	return model.ReviewContext{
		TotalFiles:      len(files),
		TotalLines:      total,
		TopFiles:        append([]model.FileEntry{}, top...),
		LargeFiles:      large,
		Languages:       LanguageHistogram(files),
		CircularDeps:    copyCycles(cycles),
		DependencyEdges: append([]model.DependencyEdge{}, edges...),
		Mode:            opts.Mode,
		Model:           opts.Model,
	}
}

// LanguageHistogram counts files per language, most common first, ties by name.
func LanguageHistogram(files []model.FileEntry) []model.LanguageCount {
	counts := make(map[string]int)
	for _, f := range files {
		counts[f.Language]++
	}

	out := make([]model.LanguageCount, 0, len(counts))
	for lang, n := range counts {
		out = append(out, model.LanguageCount{Language: lang, Files: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Files != out[j].Files {
			return out[i].Files > out[j].Files
		}
		return out[i].Language < out[j].Language
	})
	return out
}

func copyCycles(cycles [][]string) [][]string {
	out := make([][]string, 0, len(cycles))
	for _, c := range cycles {
		out = append(out, append([]string(nil), c...))
	}
	return out
}
