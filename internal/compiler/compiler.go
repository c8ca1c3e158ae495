// Package compiler selects and runs native compilers for a compile task.
//
// Compiler is the single capability every variant satisfies. ExecCompiler
// invokes the real toolchain; IncrementalCompiler and CleanCompiler decorate
// another Compiler, deciding which sources actually reach it and keeping the
// persisted task state in step. Builder picks the decorator.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ErrCompileFailed is matched by every error reporting failed sources
var ErrCompileFailed = errors.New("compilation failed")

// Spec describes one compile request
type Spec struct {
	// Sources are the candidate source files
	Sources []string

	// Flags are passed to the native compiler verbatim
	Flags []string

	// IncludeDirs are passed to the native compiler as -I options
	IncludeDirs []string

	// ObjectDir receives the object files
	ObjectDir string
}

// Failure is one source that did not compile
type Failure struct {
	Path    string
	Message string
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Path, f.Message)
}

// Result reports the outcome of a compile request
type Result struct {
	Success bool

	// Recompiled lists sources handed to the native compiler
	Recompiled []string

	// Skipped lists candidate sources left untouched because they were up to date
	Skipped []string

	// Removed lists sources dropped since the previous build
	Removed []string

	Failures  []Failure
	Artifacts []string
}

// Err returns nil for a successful result, otherwise a *FailureError
func (r *Result) Err() error {
	if r == nil {
		return ErrCompileFailed
	}

	if r.Success {
		return nil
	}

	return &FailureError{Failures: r.Failures}
}

// FailureError carries the per-file detail of a failed compile
type FailureError struct {
	Failures []Failure
}

func (e *FailureError) Error() string {
	if len(e.Failures) == 0 {
		return ErrCompileFailed.Error()
	}

	var merr *multierror.Error
	for _, f := range e.Failures {
		merr = multierror.Append(merr, f)
	}

	merr.ErrorFormat = func(errs []error) string {
		lines := make([]string, 0, len(errs))
		for _, err := range errs {
			lines = append(lines, "  "+err.Error())
		}

		return fmt.Sprintf("%s: %d file(s) failed:\n%s", ErrCompileFailed, len(errs), strings.Join(lines, "\n"))
	}

	return merr.Error()
}

func (e *FailureError) Is(target error) bool {
	return target == ErrCompileFailed
}

// Compiler compiles a set of sources
type Compiler interface {
	Compile(ctx context.Context, spec Spec) (*Result, error)
}

// CompilerFunc adapts a function to the Compiler interface
type CompilerFunc func(ctx context.Context, spec Spec) (*Result, error)

func (f CompilerFunc) Compile(ctx context.Context, spec Spec) (*Result, error) {
	return f(ctx, spec)
}
