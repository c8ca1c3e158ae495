package compiler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/Norgate-AV/ncc/internal/cache"
)

// Commander interface for testing
type Commander interface {
	CombinedOutput() ([]byte, error)
}

// ExecCompiler runs a native compiler binary once per source
type ExecCompiler struct {
	path        string
	jobs        int
	logger      *log.Logger
	execCommand func(ctx context.Context, name string, args ...string) Commander
}

// NewExecCompiler creates a compiler invoking the binary at path,
// running up to jobs processes at a time (one per CPU when jobs <= 0)
func NewExecCompiler(path string, jobs int) *ExecCompiler {
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	return &ExecCompiler{
		path:   path,
		jobs:   jobs,
		logger: log.Default(),
		execCommand: func(ctx context.Context, name string, args ...string) Commander {
			return exec.CommandContext(ctx, name, args...)
		},
	}
}

// SetLogger replaces the compiler's logger
func (c *ExecCompiler) SetLogger(l *log.Logger) {
	if l != nil {
		c.logger = l
	}
}

// CommandArgs builds the command arguments compiling one source
func (c *ExecCompiler) CommandArgs(spec Spec, source string) []string {
	args := make([]string, 0, len(spec.Flags)+2*len(spec.IncludeDirs)+4)
	args = append(args, spec.Flags...)

	for _, dir := range spec.IncludeDirs {
		if dir != "" {
			args = append(args, "-I"+dir)
		}
	}

	return append(args, "-c", source, "-o", cache.ObjectFile(spec.ObjectDir, source))
}

// Compile compiles every source of spec. A source the compiler rejects is
// reported as a Failure; a compiler that cannot be started, or a cancelled
// context, is returned as an error.
func (c *ExecCompiler) Compile(ctx context.Context, spec Spec) (*Result, error) {
	if spec.ObjectDir == "" {
		return nil, errors.New("object directory is required")
	}

	failures := make([]*Failure, len(spec.Sources))
	artifacts := make([]string, len(spec.Sources))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(c.jobs)

	for i, src := range spec.Sources {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			obj := cache.ObjectFile(spec.ObjectDir, src)
			if err := os.MkdirAll(filepath.Dir(obj), 0o755); err != nil {
				return fmt.Errorf("failed to create object directory: %w", err)
			}

			args := c.CommandArgs(spec, src)
			c.logger.Debug("compile", "source", src, "command", c.path+" "+strings.Join(args, " "))

			out, err := c.execCommand(gctx, c.path, args...).CombinedOutput()
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}

				var exitErr *exec.ExitError
				if !errors.As(err, &exitErr) {
					return fmt.Errorf("failed to run compiler %s: %w", c.path, err)
				}

				failures[i] = &Failure{
					Path:    src,
					Message: fmt.Sprintf("exit code %d: %s", exitErr.ExitCode(), strings.TrimSpace(string(out))),
				}
				c.logger.Error("compile failed", "source", src, "exit", exitErr.ExitCode())
				return nil
			}

			if msg := strings.TrimSpace(string(out)); msg != "" {
				c.logger.Warn("compiler output", "source", src, "output", msg)
			}

			artifacts[i] = obj
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Success: true}
	for i, src := range spec.Sources {
		if failures[i] != nil {
			res.Success = false
			res.Failures = append(res.Failures, *failures[i])
			continue
		}

		res.Recompiled = append(res.Recompiled, src)
		res.Artifacts = append(res.Artifacts, artifacts[i])
	}

	return res, nil
}
