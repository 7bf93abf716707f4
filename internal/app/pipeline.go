package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sprite-ai/repolens/internal/analysis"
	"github.com/sprite-ai/repolens/internal/graph"
	"github.com/sprite-ai/repolens/internal/logging"
	"github.com/sprite-ai/repolens/internal/model"
	"github.com/sprite-ai/repolens/internal/review"
)

// Scanner lists the reviewable files under root.
type Scanner interface {
	Scan(ctx context.Context, root string) ([]model.FileEntry, error)
}

// Extractor derives file-level dependency edges.
type Extractor interface {
	Extract(ctx context.Context, root string, files []model.FileEntry) ([]model.DependencyEdge, error)
}

// Querier returns the model's raw reply for a context.
type Querier interface {
	Query(ctx context.Context, rc model.ReviewContext) (string, error)
}

// Stage names prefixed to failure messages.
const (
	StageScan  = "scan"
	StageGraph = "graph"
	StageQuery = "query"
)

// ErrNoFiles is reported by the scan stage when nothing is reviewable.
var ErrNoFiles = errors.New("no reviewable source files found")

// Pipeline drives one run through scan, graph and query.
type Pipeline struct {
	Scanner   Scanner
	Extractor Extractor
	Querier   Querier
	Options   analysis.Options
}

// Run starts a run on s and blocks until it reaches Done or Error.
// It returns ErrRunInFlight without touching s if a run is active.
func (p *Pipeline) Run(ctx context.Context, s *Session, root string) error {
	run, err := s.Start(ctx)
	if err != nil {
		return err
	}
	return p.Execute(s, run, root)
}

// Execute drives a run already started with s.Start. Collaborator errors
// and panics become an Error status; the returned error is the same
// failure, or ErrStaleRun if the run was cancelled meanwhile.
func (p *Pipeline) Execute(s *Session, run Run, root string) error {
	ctx := run.Ctx

	fail := func(stage string, err error) error {
		wrapped := fmt.Errorf("%s: %w", stage, err)
		logging.Debugf("run %d failed: %v", run.ID, wrapped)
		if ferr := s.Fail(run.ID, wrapped); ferr != nil {
			return ferr
		}
		return wrapped
	}

	var files []model.FileEntry
	err := guard(func() (err error) {
		files, err = p.Scanner.Scan(ctx, root)
		if err == nil && len(files) == 0 {
			err = ErrNoFiles
		}
		return err
	})
	if err != nil {
		return fail(StageScan, err)
	}
	logging.Debugf("run %d: scanned %d files", run.ID, len(files))
	if err := s.ScanComplete(run.ID); err != nil {
		return err
	}

	var rc model.ReviewContext
	err = guard(func() error {
		edges, err := p.Extractor.Extract(ctx, root, files)
		if err != nil {
			return err
		}
		opts := p.Options
		opts.Mode = run.Mode
		opts.Model = run.Model
		rc = analysis.BuildContext(files, edges, graph.FindCycles(edges), opts)
		rc.Signals, err = analysis.FindSignals(ctx, root, files, opts.MaxSignals)
		return err
	})
	if err != nil {
		return fail(StageGraph, err)
	}
	logging.Debugf("run %d: %d edges, %d cycles", run.ID, len(rc.DependencyEdges), len(rc.CircularDeps))
	if err := s.GraphComplete(run.ID, rc); err != nil {
		return err
	}

	var raw string
	err = guard(func() (err error) {
		raw, err = p.Querier.Query(ctx, rc)
		return err
	})
	if err != nil {
		return fail(StageQuery, err)
	}

	out, err := review.ParseOutput(raw)
	if err != nil {
		logging.Warnf("%v; showing the raw reply", err)
	}
	return s.QueryComplete(run.ID, out)
}

// guard runs fn, converting a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
