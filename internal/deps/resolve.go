package deps

import (
	"bufio"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Resolver rewrites raw import specifiers into scanned, repo-relative paths.
// It is built once per run from the set of scanned files.
type Resolver struct {
	fileSet  map[string]bool
	dirIndex map[string][]string
	goModule string
}

// NewResolver indexes the scanned paths and reads the module path from
// root/go.mod when present.
func NewResolver(root string, paths []string) *Resolver {
	r := &Resolver{
		fileSet:  make(map[string]bool, len(paths)),
		dirIndex: make(map[string][]string),
	}
	for _, p := range paths {
		r.fileSet[p] = true
		dir := path.Dir(p)
		r.dirIndex[dir] = append(r.dirIndex[dir], p)
	}
	for _, files := range r.dirIndex {
		sort.Strings(files)
	}
	r.goModule = readGoModule(filepath.Join(root, "go.mod"))
	return r
}

func readGoModule(goModPath string) string {
	f, err := os.Open(goModPath)
	if err != nil {
		return ""
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if rest, ok := strings.CutPrefix(line, "module"); ok {
			return strings.Trim(strings.TrimSpace(rest), "\"")
		}
	}
	return ""
}

// Resolve maps spec, imported by the file from, to a scanned path.
// ok is false for standard-library, third-party and unknown imports.
func (r *Resolver) Resolve(from, spec string, g Grammar) (string, bool) {
	switch g {
	case GrammarGo:
		return r.resolveGo(spec)
	case GrammarPython:
		return r.resolvePython(from, spec)
	case GrammarRust:
		return r.resolveRust(from, spec)
	case GrammarTypeScript, GrammarTSX:
		return r.resolveTS(from, spec)
	}
	return "", false
}

// resolveGo maps a package import to the first non-test file of the
// package directory, which stands in for the whole package.
func (r *Resolver) resolveGo(spec string) (string, bool) {
	if r.goModule == "" {
		return "", false
	}
	var relDir string
	switch {
	case spec == r.goModule:
		relDir = "."
	case strings.HasPrefix(spec, r.goModule+"/"):
		relDir = strings.TrimPrefix(spec, r.goModule+"/")
	default:
		return "", false
	}

	for _, f := range r.dirIndex[relDir] {
		if strings.HasSuffix(f, ".go") && !strings.HasSuffix(f, "_test.go") {
			return f, true
		}
	}
	return "", false
}

var pyExtensions = []string{".py", ".pyi", "/__init__.py"}

func (r *Resolver) resolvePython(from, spec string) (string, bool) {
	if strings.HasPrefix(spec, ".") {
		dots := len(spec) - len(strings.TrimLeft(spec, "."))
		module := spec[dots:]

		base := path.Dir(from)
		for i := 1; i < dots; i++ {
			base = path.Dir(base)
		}
		if module == "" {
			return r.withExtension(path.Join(base, "__init__"), []string{".py"})
		}
		return r.withExtension(path.Join(base, strings.ReplaceAll(module, ".", "/")), pyExtensions)
	}

	rel := strings.ReplaceAll(spec, ".", "/")
	for _, root := range []string{".", "src", "lib"} {
		if p, ok := r.withExtension(path.Join(root, rel), pyExtensions); ok {
			return p, true
		}
	}
	return "", false
}

var tsExtensions = []string{".ts", ".tsx", ".d.ts", ".js", ".jsx", ".mjs", ".cjs",
	"/index.ts", "/index.tsx", "/index.js", "/index.jsx"}

func (r *Resolver) resolveTS(from, spec string) (string, bool) {
	if !strings.HasPrefix(spec, "./") && !strings.HasPrefix(spec, "../") {
		return "", false // bare specifiers are packages
	}
	base := path.Join(path.Dir(from), spec)
	if p, ok := r.withExtension(base, tsExtensions); ok {
		return p, true
	}
	// ESM TypeScript imports name the emitted .js file.
	switch ext := path.Ext(base); ext {
	case ".js", ".jsx", ".mjs", ".cjs":
		return r.withExtension(strings.TrimSuffix(base, ext), tsExtensions)
	}
	return "", false
}

var rsExtensions = []string{".rs", "/mod.rs"}

func (r *Resolver) resolveRust(from, spec string) (string, bool) {
	if i := strings.Index(spec, "::{"); i != -1 {
		spec = spec[:i]
	}
	segs := strings.Split(spec, "::")
	if len(segs) == 0 {
		return "", false
	}

	var base string
	switch segs[0] {
	case "mod", "self":
		base = rustModuleDir(from)
		segs = segs[1:]
	case "super":
		base = rustModuleDir(from)
		for len(segs) > 0 && segs[0] == "super" {
			base = path.Dir(base)
			segs = segs[1:]
		}
	case "crate":
		base = findCrateRoot(from)
		segs = segs[1:]
	default:
		return "", false // external crate or std
	}

	for len(segs) > 0 && segs[len(segs)-1] == "*" {
		segs = segs[:len(segs)-1]
	}

	// Trailing segments may name items rather than modules; try the
	// longest module path first.
	for n := len(segs); n > 0; n-- {
		if p, ok := r.withExtension(path.Join(base, path.Join(segs[:n]...)), rsExtensions); ok {
			return p, true
		}
	}
	return "", false
}

// rustModuleDir returns the directory holding the child modules of the
// module defined by file.
func rustModuleDir(file string) string {
	switch path.Base(file) {
	case "mod.rs", "lib.rs", "main.rs":
		return path.Dir(file)
	}
	return strings.TrimSuffix(file, ".rs")
}

func findCrateRoot(file string) string {
	dir := path.Dir(file)
	for dir != "." && dir != "/" && dir != "" {
		if path.Base(dir) == "src" {
			return dir
		}
		dir = path.Dir(dir)
	}
	return "src"
}

func (r *Resolver) withExtension(base string, extensions []string) (string, bool) {
	base = path.Clean(base)
	if r.fileSet[base] {
		return base, true
	}
	for _, ext := range extensions {
		if candidate := base + ext; r.fileSet[candidate] {
			return candidate, true
		}
	}
	return "", false
}
