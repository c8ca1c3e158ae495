package compiler

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/Norgate-AV/ncc/internal/cache"
	"github.com/Norgate-AV/ncc/internal/stale"
	"github.com/Norgate-AV/ncc/internal/utils"
)

// CleanCompiler recompiles every candidate source regardless of what changed.
// The persisted state is deleted up front and only written again, from
// scratch, once the wrapped compiler succeeded.
type CleanCompiler struct {
	taskID   string
	includes []string
	store    *cache.Store
	analyzer *stale.Analyzer
	delegate Compiler
	logger   *log.Logger
}

func (c *CleanCompiler) Compile(ctx context.Context, spec Spec) (*Result, error) {
	sources, err := utils.CanonicalPaths(spec.Sources)
	if err != nil {
		return nil, err
	}

	var res *Result
	err = c.store.WithLock(ctx, c.taskID, func(tc *cache.TaskCache) error {
		if err := tc.Delete(); err != nil {
			return err
		}

		if spec.ObjectDir != "" {
			objects, err := cache.CollectOutputs(spec.ObjectDir)
			if err != nil {
				return err
			}

			if err := cache.CleanArtifacts(spec.ObjectDir); err != nil {
				return err
			}

			c.logger.Debug("removed previous objects", "count", len(objects))
		}

		// analyzing against no previous state hashes and scans everything once
		analysis, err := c.analyzer.ComputeStale(ctx, sources, nil, c.includes)
		if err != nil {
			return err
		}

		delegated := spec
		delegated.Sources = sources

		c.logger.Info("clean compile", "sources", len(sources))

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
			Recompiled: sources,
			Artifacts:  out.Artifacts,
		}

		return nil
	})

	return res, err
}
