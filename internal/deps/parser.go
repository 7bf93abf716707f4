// Package deps extracts file-level dependency edges from import statements.
package deps

import (
	"fmt"
	"path"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Grammar identifies a tree-sitter grammar.
type Grammar string

const (
	GrammarGo         Grammar = "go"
	GrammarPython     Grammar = "python"
	GrammarRust       Grammar = "rust"
	GrammarTypeScript Grammar = "typescript"
	GrammarTSX        Grammar = "tsx"
)

// GrammarFor picks the grammar for a file by extension. ok is false for
// files whose imports are not extracted.
func GrammarFor(file string) (Grammar, bool) {
	switch strings.ToLower(path.Ext(file)) {
	case ".go":
		return GrammarGo, true
	case ".py", ".pyi":
		return GrammarPython, true
	case ".rs":
		return GrammarRust, true
	case ".ts", ".mts", ".cts", ".js", ".mjs", ".cjs":
		return GrammarTypeScript, true
	case ".tsx", ".jsx":
		return GrammarTSX, true
	}
	return "", false
}

// Parser returns the raw import specifiers of a source file. A new
// tree-sitter parser is created per call, so one Parser may be shared by
// concurrent goroutines.
type Parser struct {
	languages map[Grammar]*tree_sitter.Language
}

// NewParser registers the Go, Python, Rust, TypeScript and TSX grammars.
func NewParser() *Parser {
	return &Parser{
		languages: map[Grammar]*tree_sitter.Language{
			GrammarGo:         tree_sitter.NewLanguage(tree_sitter_go.Language()),
			GrammarPython:     tree_sitter.NewLanguage(tree_sitter_python.Language()),
			GrammarRust:       tree_sitter.NewLanguage(tree_sitter_rust.Language()),
			GrammarTypeScript: tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
			GrammarTSX:        tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()),
		},
	}
}

// Imports parses source and returns its import specifiers in source order.
//
// Specifier forms per grammar:
//   - go: the import path
//   - python: dotted module, with leading dots for relative imports;
//     "from m import a" yields both "m" and "m.a"
//   - rust: the use path ("crate::a::b"), and "mod::name" for `mod name;`
//   - typescript/tsx: the module string of import/export-from statements
func (p *Parser) Imports(g Grammar, source []byte) ([]string, error) {
	lang, ok := p.languages[g]
	if !ok {
		return nil, fmt.Errorf("unsupported grammar: %s", g)
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("set language %s: %w", g, err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter returned nil tree")
	}
	defer tree.Close()

	var specs []string
	visit := func(node *tree_sitter.Node) {
		switch g {
		case GrammarGo:
			specs = append(specs, goImports(node, source)...)
		case GrammarPython:
			specs = append(specs, pyImports(node, source)...)
		case GrammarRust:
			specs = append(specs, rsImports(node, source)...)
		case GrammarTypeScript, GrammarTSX:
			specs = append(specs, tsImports(node, source)...)
		}
	}

	walk(tree.RootNode(), visit)
	return specs, nil
}

// walk visits every node in document order without recursion.
func walk(root *tree_sitter.Node, visit func(*tree_sitter.Node)) {
	cursor := root.Walk()
	defer cursor.Close()

	for {
		visit(cursor.Node())

		if cursor.GotoFirstChild() {
			continue
		}
		for !cursor.GotoNextSibling() {
			if !cursor.GotoParent() {
				return
			}
		}
	}
}

func goImports(node *tree_sitter.Node, source []byte) []string {
	if node.Kind() != "import_spec" {
		return nil
	}
	pathNode := node.ChildByFieldName("path")
	if pathNode == nil {
		return nil
	}
	spec := strings.Trim(pathNode.Utf8Text(source), "\"`")
	if spec == "" {
		return nil
	}
	return []string{spec}
}

func pyImports(node *tree_sitter.Node, source []byte) []string {
	switch node.Kind() {
	case "import_statement":
		var out []string
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child == nil {
				continue
			}
			if name := pyModuleName(child, source); name != "" {
				out = append(out, name)
			}
		}
		return out

	case "import_from_statement":
		moduleNode := node.ChildByFieldName("module_name")
		if moduleNode == nil {
			return nil
		}
		module := moduleNode.Utf8Text(source)
		if module == "" {
			return nil
		}
		out := []string{module}

		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child == nil || child.StartByte() == moduleNode.StartByte() {
				continue
			}
			name := pyModuleName(child, source)
			if name == "" {
				continue
			}
			if strings.HasSuffix(module, ".") {
				out = append(out, module+name)
			} else {
				out = append(out, module+"."+name)
			}
		}
		return out
	}
	return nil
}

func pyModuleName(node *tree_sitter.Node, source []byte) string {
	switch node.Kind() {
	case "dotted_name":
		return node.Utf8Text(source)
	case "aliased_import":
		if name := node.ChildByFieldName("name"); name != nil {
			return name.Utf8Text(source)
		}
	}
	return ""
}

func rsImports(node *tree_sitter.Node, source []byte) []string {
	switch node.Kind() {
	case "use_declaration":
		arg := node.ChildByFieldName("argument")
		if arg == nil {
			return nil
		}
		return expandRustUse(arg.Utf8Text(source))

	case "mod_item":
		// Only `mod name;` refers to another file; inline modules have a body.
		if node.ChildByFieldName("body") != nil {
			return nil
		}
		name := node.ChildByFieldName("name")
		if name == nil {
			return nil
		}
		return []string{"mod::" + name.Utf8Text(source)}
	}
	return nil
}

// expandRustUse flattens one level of `a::{b, c}` groups and drops aliases.
func expandRustUse(text string) []string {
	text = strings.TrimSpace(text)
	open := strings.Index(text, "::{")
	if open == -1 || !strings.HasSuffix(text, "}") {
		return []string{stripRustAlias(text)}
	}

	prefix := strings.TrimSpace(text[:open])
	inner := text[open+3 : len(text)-1]

	var out []string
	depth, start := 0, 0
	for i := 0; i <= len(inner); i++ {
		if i < len(inner) {
			switch inner[i] {
			case '{':
				depth++
			case '}':
				depth--
			}
			if inner[i] != ',' || depth > 0 {
				continue
			}
		}
		item := stripRustAlias(inner[start:i])
		start = i + 1
		switch {
		case item == "":
		case item == "self":
			out = append(out, prefix)
		default:
			out = append(out, prefix+"::"+item)
		}
	}
	return out
}

// stripRustAlias turns "a::B as C" into "a::B".
func stripRustAlias(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 3 && fields[1] == "as" {
		return fields[0]
	}
	return strings.Join(fields, "")
}

func tsImports(node *tree_sitter.Node, source []byte) []string {
	switch node.Kind() {
	case "import_statement", "export_statement":
	default:
		return nil
	}
	src := node.ChildByFieldName("source")
	if src == nil {
		return nil
	}
	spec := strings.Trim(src.Utf8Text(source), "\"'`")
	if spec == "" {
		return nil
	}
	return []string{spec}
}
