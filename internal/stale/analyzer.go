// Package stale decides which sources of a compile task have to be rebuilt.
//
// A source is stale when it is new, when its bytes or its resolved includes
// changed, when any header it reaches through the include graph changed, or
// when the include search path changed. Headers are rescanned on every pass,
// since the files they resolve to may change without their own bytes changing.
package stale

import (
	"context"
	"runtime"
	"slices"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/Norgate-AV/ncc/internal/cache"
	"github.com/Norgate-AV/ncc/internal/utils"
)

// Scanner returns the resolved direct includes of a file
type Scanner interface {
	Scan(path string, searchPath []string) ([]string, error)
}

// Result is the outcome of one analysis pass. It is never persisted itself;
// State is what gets saved once compilation of Stale succeeded.
type Result struct {
	// Stale lists the sources to recompile, sorted
	Stale []string

	// Removed lists previously tracked sources that are no longer candidates, sorted
	Removed []string

	// State holds fresh records of every file touched by this pass
	State *cache.State
}

// Analyzer computes stale sources from the current files and the previous state
type Analyzer struct {
	hasher  cache.Hasher
	scanner Scanner
	jobs    int
	logger  *log.Logger
}

// New creates an analyzer hashing and scanning up to jobs files at a time.
// jobs <= 0 means one per CPU.
func New(hasher cache.Hasher, scanner Scanner, jobs int) *Analyzer {
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	return &Analyzer{
		hasher:  hasher,
		scanner: scanner,
		jobs:    jobs,
		logger:  log.Default(),
	}
}

// SetLogger replaces the analyzer's logger
func (a *Analyzer) SetLogger(l *log.Logger) {
	if l != nil {
		a.logger = l
	}
}

// ComputeStale compares the candidate sources against prev.
// A nil prev is treated as an empty state, making every source stale.
func (a *Analyzer) ComputeStale(ctx context.Context, sources []string, prev *cache.State, searchPath []string) (*Result, error) {
	if prev == nil {
		prev = cache.NewState(searchPath)
	}

	sources = dedupe(sources)
	next := cache.NewState(searchPath)

	// sources are always hashed and rescanned
	records, err := a.records(ctx, sources, searchPath)
	if err != nil {
		return nil, err
	}

	var frontier []string
	for _, r := range records {
		next.Sources[r.Path] = r
		frontier = append(frontier, r.Includes...)
	}

	// headers are visited level by level, each reached header once
	for len(frontier) > 0 {
		var level []string
		queued := make(map[string]bool)
		for _, h := range frontier {
			if _, ok := next.Headers[h]; ok || queued[h] {
				continue
			}

			queued[h] = true
			level = append(level, h)
		}

		records, err := a.records(ctx, level, searchPath)
		if err != nil {
			return nil, err
		}

		frontier = frontier[:0]
		for _, r := range records {
			next.Headers[r.Path] = r
			frontier = append(frontier, r.Includes...)
		}
	}

	affected := affectedHeaders(prev, next)
	searchPathChanged := !slices.Equal(prev.SearchPath, searchPath)

	res := &Result{State: next}
	for _, src := range sources {
		rec := next.Sources[src]
		old, known := prev.Sources[src]

		switch {
		case searchPathChanged:
			a.logger.Debug("stale: search path changed", "source", src)
		case !known:
			a.logger.Debug("stale: new source", "source", src)
		case old.Hash != rec.Hash:
			a.logger.Debug("stale: source changed", "source", src)
		case !slices.Equal(old.Includes, rec.Includes):
			a.logger.Debug("stale: includes changed", "source", src)
		case slices.ContainsFunc(rec.Includes, func(h string) bool { return affected[h] }):
			a.logger.Debug("stale: header changed", "source", src)
		default:
			continue
		}

		res.Stale = append(res.Stale, src)
	}

	for src := range prev.Sources {
		if _, ok := next.Sources[src]; !ok {
			res.Removed = append(res.Removed, src)
		}
	}

	slices.Sort(res.Stale)
	slices.Sort(res.Removed)

	a.logger.Info("analyzed sources",
		"sources", len(sources),
		"headers", len(next.Headers),
		"stale", len(res.Stale),
		"removed", len(res.Removed))

	return res, nil
}

// records hashes and scans paths on a bounded pool; the result keeps the order of paths
func (a *Analyzer) records(ctx context.Context, paths []string, searchPath []string) ([]cache.FileRecord, error) {
	out := make([]cache.FileRecord, len(paths))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(a.jobs)

	for i, path := range paths {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			hash, err := a.hasher.Hash(path)
			if err != nil {
				return err
			}

			includes, err := a.scanner.Scan(path, searchPath)
			if err != nil {
				return err
			}

			out[i] = cache.FileRecord{Path: path, Hash: hash, Includes: includes}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

// affectedHeaders returns every header of next that is dirty itself (new,
// changed bytes, changed includes) or reaches a dirty header.
// Propagation walks reverse include edges, so include cycles are harmless.
func affectedHeaders(prev, next *cache.State) map[string]bool {
	includedBy := make(map[string][]string)
	for _, h := range utils.SortedKeys(next.Headers) {
		for _, inc := range next.Headers[h].Includes {
			includedBy[inc] = append(includedBy[inc], h)
		}
	}

	affected := make(map[string]bool)

	var stack []string
	for h, rec := range next.Headers {
		old, ok := prev.Headers[h]
		if !ok || !old.Equal(rec) {
			stack = append(stack, h)
		}
	}

	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if affected[h] {
			continue
		}

		affected[h] = true
		stack = append(stack, includedBy[h]...)
	}

	return affected
}

func dedupe(paths []string) []string {
	out := make([]string, 0, len(paths))
	seen := make(map[string]bool, len(paths))

	for _, p := range paths {
		if seen[p] {
			continue
		}

		seen[p] = true
		out = append(out, p)
	}

	return out
}
