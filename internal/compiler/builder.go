package compiler

import (
	"slices"

	"github.com/charmbracelet/log"

	"github.com/Norgate-AV/ncc/internal/cache"
	"github.com/Norgate-AV/ncc/internal/stale"
	"github.com/Norgate-AV/ncc/internal/utils"
)

// Builder configures and creates the compiler used by one compile task.
// A builder is bound to a single task identity; it may create compilers
// for any number of wrapped compilers.
type Builder struct {
	taskID       string
	store        *cache.Store
	hasher       cache.Hasher
	scanner      stale.Scanner
	cleanCompile bool
	includes     []string
	jobs         int
	logger       *log.Logger
}

// NewBuilder creates a builder for taskID, persisting state in store
func NewBuilder(store *cache.Store, hasher cache.Hasher, scanner stale.Scanner, taskID string) *Builder {
	return &Builder{
		taskID:  taskID,
		store:   store,
		hasher:  hasher,
		scanner: scanner,
		logger:  log.Default(),
	}
}

// WithCleanCompile makes Build return a CleanCompiler
func (b *Builder) WithCleanCompile() *Builder {
	b.cleanCompile = true
	return b
}

// WithIncludes sets the include search path used to resolve headers
func (b *Builder) WithIncludes(includes []string) *Builder {
	canonical, err := utils.CanonicalPaths(includes)
	if err != nil {
		b.logger.Warn("cannot canonicalize include path, using it as given", "includes", includes, "err", err)
		b.includes = slices.Clone(includes)
		return b
	}

	b.includes = canonical

	return b
}

// WithJobs bounds how many files are hashed and scanned concurrently
func (b *Builder) WithJobs(jobs int) *Builder {
	b.jobs = jobs
	return b
}

// WithLogger sets the logger handed to the created compilers
func (b *Builder) WithLogger(l *log.Logger) *Builder {
	if l != nil {
		b.logger = l
	}

	return b
}

// Build wraps compiler in a CleanCompiler if a clean compile was requested,
// otherwise in an IncrementalCompiler
func (b *Builder) Build(compiler Compiler) Compiler {
	logger := b.logger.With("task", b.taskID)

	analyzer := stale.New(b.hasher, b.scanner, b.jobs)
	analyzer.SetLogger(logger)

	includes := slices.Clone(b.includes)

	if b.cleanCompile {
		return &CleanCompiler{
			taskID:   b.taskID,
			includes: includes,
			store:    b.store,
			analyzer: analyzer,
			delegate: compiler,
			logger:   logger,
		}
	}

	return &IncrementalCompiler{
		taskID:   b.taskID,
		includes: includes,
		store:    b.store,
		analyzer: analyzer,
		delegate: compiler,
		logger:   logger,
	}
}
