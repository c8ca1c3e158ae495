package compiler

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Norgate-AV/ncc/internal/cache"
	"github.com/Norgate-AV/ncc/internal/stale"
	"github.com/Norgate-AV/ncc/internal/utils"
)

// IncrementalCompiler hands only stale sources to the wrapped compiler.
// State is saved only after the wrapped compiler succeeded for every one of
// them; any failure leaves the previous state in place, so the next build
// looks at the same sources again.
type IncrementalCompiler struct {
	taskID   string
	includes []string
	store    *cache.Store
	analyzer *stale.Analyzer
	delegate Compiler
	logger   *log.Logger
}

func (c *IncrementalCompiler) Compile(ctx context.Context, spec Spec) (*Result, error) {
	sources, err := utils.CanonicalPaths(spec.Sources)
	if err != nil {
		return nil, err
	}

	var res *Result
	err = c.store.WithLock(ctx, c.taskID, func(tc *cache.TaskCache) error {
		prev, err := tc.Load(c.includes)
		if err != nil {
			return err
		}

		if prev.IsEmpty() {
			c.logger.Info("no previous compilation state, compiling everything")
		}

		analysis, err := c.analyzer.ComputeStale(ctx, sources, prev, c.includes)
		if err != nil {
			return err
		}

		if spec.ObjectDir != "" && len(analysis.Removed) > 0 {
			removed, err := cache.RemoveArtifacts(spec.ObjectDir, analysis.Removed)
			if err != nil {
				return err
			}

			c.logger.Debug("removed stale objects", "objects", removed)
		}

		if len(analysis.Stale) == 0 {
			c.logger.Info("up to date", "sources", len(sources))
			res = &Result{Success: true, Skipped: sources, Removed: analysis.Removed}

			if len(analysis.Removed) == 0 {
				return nil
			}

			return saveState(tc, analysis.State)
		}

		delegated := spec
		delegated.Sources = analysis.Stale

		c.logger.Info("recompiling", "stale", len(analysis.Stale), "sources", len(sources))

		out, err := c.delegate.Compile(ctx, delegated)
		res = out
		if err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if out == nil || !out.Success {
			return out.Err()
		}

		if err := saveState(tc, analysis.State); err != nil {
			return err
		}

		res = &Result{
			Success:    true,
			Recompiled: analysis.Stale,
			Skipped:    skipped(sources, analysis.Stale),
			Removed:    analysis.Removed,
			Artifacts:  out.Artifacts,
		}

		return nil
	})

	return res, err
}

// saveState stamps st with a fresh build id and persists it
func saveState(tc *cache.TaskCache, st *cache.State) error {
	st.BuildID = uuid.NewString()
	st.UpdatedAt = time.Now()

	return tc.Save(st)
}

// skipped returns the sources not in stale, keeping the order of sources
func skipped(sources, stale []string) []string {
	recompiled := make(map[string]bool, len(stale))
	for _, s := range stale {
		recompiled[s] = true
	}

	var out []string
	for _, s := range sources {
		if !recompiled[s] {
			out = append(out, s)
		}
	}

	return out
}
