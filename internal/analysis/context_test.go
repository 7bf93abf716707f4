package analysis

import (
	"reflect"
	"testing"

	"github.com/sprite-ai/repolens/internal/model"
)

func TestLanguageHistogram(t *testing.T) {
	files := []model.FileEntry{
		{Path: "x.rs", Lines: 10, Language: "rust"},
		{Path: "y.rs", Lines: 20, Language: "rust"},
		{Path: "z.py", Lines: 30, Language: "python"},
	}
	got := LanguageHistogram(files)
	want := []model.LanguageCount{{Language: "rust", Files: 2}, {Language: "python", Files: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LanguageHistogram = %v, want %v", got, want)
	}
}

func TestLanguageHistogramTieBreak(t *testing.T) {
	files := []model.FileEntry{
		{Path: "a.ts", Language: "typescript"},
		{Path: "b.go", Language: "go"},
		{Path: "c.py", Language: "python"},
	}
	got := LanguageHistogram(files)
	want := []model.LanguageCount{{Language: "go", Files: 1}, {Language: "python", Files: 1}, {Language: "typescript", Files: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LanguageHistogram = %v, want %v", got, want)
	}
}

func TestBuildContext(t *testing.T) {
	files := []model.FileEntry{
		{Path: "small.go", Lines: 5, Language: "go"},
		{Path: "b.go", Lines: 900, Language: "go"},
		{Path: "a.go", Lines: 900, Language: "go"},
		{Path: "mid.py", Lines: 300, Language: "python"},
		{Path: "huge.py", Lines: 2000, Language: "python"},
	}
	edges := []model.DependencyEdge{{From: "a.go", To: "b.go"}, {From: "b.go", To: "a.go"}}
	cycles := [][]string{{"a.go", "b.go"}}

	rc := BuildContext(files, edges, cycles, Options{
		TopFiles:       3,
		LargeFileLines: 500,
		Mode:           model.ModeCalm,
		Model:          "qwen2.5-coder",
	})

	if rc.TotalFiles != 5 {
		t.Errorf("TotalFiles = %d, want 5", rc.TotalFiles)
	}
	if rc.TotalLines != 4105 {
		t.Errorf("TotalLines = %d, want 4105", rc.TotalLines)
	}

	var top []string
	for _, f := range rc.TopFiles {
		top = append(top, f.Path)
	}
	if !reflect.DeepEqual(top, []string{"huge.py", "a.go", "b.go"}) {
		t.Errorf("TopFiles = %v", top)
	}

	var large []string
	for _, f := range rc.LargeFiles {
		large = append(large, f.Path)
	}
	if !reflect.DeepEqual(large, []string{"huge.py", "a.go", "b.go"}) {
		t.Errorf("LargeFiles = %v", large)
	}

	if rc.Mode != model.ModeCalm || rc.Model != "qwen2.5-coder" {
		t.Errorf("mode/model = %s/%s", rc.Mode, rc.Model)
	}
	if !reflect.DeepEqual(rc.CircularDeps, cycles) {
		t.Errorf("CircularDeps = %v", rc.CircularDeps)
	}
	if !reflect.DeepEqual(rc.DependencyEdges, edges) {
		t.Errorf("DependencyEdges = %v", rc.DependencyEdges)
	}
}

func TestBuildContextDoesNotAlias(t *testing.T) {
	files := []model.FileEntry{{Path: "a.go", Lines: 1, Language: "go"}}
	edges := []model.DependencyEdge{{From: "a.go", To: "a.go"}}
	cycles := [][]string{{"a.go"}}

	rc := BuildContext(files, edges, cycles, Options{})

	files[0].Path = "mutated"
	edges[0].To = "mutated"
	cycles[0][0] = "mutated"

	if rc.TopFiles[0].Path != "a.go" {
		t.Error("TopFiles aliases input")
	}
	if rc.DependencyEdges[0].To != "a.go" {
		t.Error("DependencyEdges aliases input")
	}
	if rc.CircularDeps[0][0] != "a.go" {
		t.Error("CircularDeps aliases input")
	}
}

func TestBuildContextDefaults(t *testing.T) {
	var files []model.FileEntry
	for i := 0; i < 25; i++ {
		files = append(files, model.FileEntry{Path: string(rune('a' + i)), Lines: i, Language: "go"})
	}
	rc := BuildContext(files, nil, nil, Options{})
	if len(rc.TopFiles) != DefaultTopFiles {
		t.Errorf("len(TopFiles) = %d, want %d", len(rc.TopFiles), DefaultTopFiles)
	}
	if len(rc.LargeFiles) != 0 {
		t.Errorf("LargeFiles = %v, want none", rc.LargeFiles)
	}
	if rc.CircularDeps == nil || rc.DependencyEdges == nil {
		t.Error("expected empty, non-nil slices")
	}
}
