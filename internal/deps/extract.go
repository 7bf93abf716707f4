package deps

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sprite-ai/repolens/internal/logging"
	"github.com/sprite-ai/repolens/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultCacheSize bounds the number of memoized parse results.
const DefaultCacheSize = 4096

// Extractor turns scanned files into dependency edges. Parse results are
// memoized by path and content hash, so re-running a review over an
// unchanged tree skips tree-sitter entirely.
type Extractor struct {
	parser  *Parser
	cache   *lru.Cache[string, []string]
	workers int
}

// NewExtractor creates an Extractor with an LRU of cacheSize entries.
func NewExtractor(cacheSize int) (*Extractor, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, []string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating parse cache: %w", err)
	}
	return &Extractor{
		parser:  NewParser(),
		cache:   cache,
		workers: runtime.GOMAXPROCS(0),
	}, nil
}

// Extract parses every file with a supported grammar and returns the
// resolved edges, deduplicated and sorted by (from, to). Imports that
// resolve back to the importing file are dropped.
func (x *Extractor) Extract(ctx context.Context, root string, files []model.FileEntry) ([]model.DependencyEdge, error) {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	resolver := NewResolver(root, paths)

	specs := make([][]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(x.workers)

	for i, f := range files {
		grammar, ok := GrammarFor(f.Path)
		if !ok {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := x.imports(root, f.Path, grammar)
			if err != nil {
				return err
			}
			specs[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[model.DependencyEdge]bool)
	var edges []model.DependencyEdge
	for i, f := range files {
		grammar, _ := GrammarFor(f.Path)
		for _, spec := range specs[i] {
			to, ok := resolver.Resolve(f.Path, spec, grammar)
			if !ok || to == f.Path {
				continue
			}
			e := model.DependencyEdge{From: f.Path, To: to}
			if !seen[e] {
				seen[e] = true
				edges = append(edges, e)
			}
		}
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges, nil
}

func (x *Extractor) imports(root, rel string, g Grammar) ([]string, error) {
	source, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rel, err)
	}

	sum := sha256.Sum256(source)
	key := rel + "@" + hex.EncodeToString(sum[:])
	if cached, ok := x.cache.Get(key); ok {
		return cached, nil
	}

	specs, err := x.parser.Imports(g, source)
	if err != nil {
		// One unparsable file should not sink the whole graph.
		logging.Debugf("skipping imports of %s: %v", rel, err)
		return nil, nil
	}
	x.cache.Add(key, specs)
	return specs, nil
}
