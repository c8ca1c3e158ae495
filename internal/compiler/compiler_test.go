package compiler

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/ncc/internal/cache"
	"github.com/Norgate-AV/ncc/internal/scan"
)

// recordingCompiler stands in for the native compiler and remembers what it was asked to build
type recordingCompiler struct {
	mu    sync.Mutex
	calls [][]string
	fail  map[string]string
	err   error
}

func (r *recordingCompiler) Compile(ctx context.Context, spec Spec) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, slices.Clone(spec.Sources))
	if r.err != nil {
		return nil, r.err
	}

	res := &Result{Success: true}
	for _, src := range spec.Sources {
		if msg, ok := r.fail[src]; ok {
			res.Success = false
			res.Failures = append(res.Failures, Failure{Path: src, Message: msg})
			continue
		}

		res.Recompiled = append(res.Recompiled, src)
		res.Artifacts = append(res.Artifacts, cache.ObjectFile(spec.ObjectDir, src))
	}

	return res, nil
}

func (r *recordingCompiler) lastCall() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.calls) == 0 {
		return nil
	}

	return r.calls[len(r.calls)-1]
}

func (r *recordingCompiler) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.calls)
}

// project is a temporary source tree with its own cache
type project struct {
	t     *testing.T
	root  string
	store *cache.Store
}

func newProject(t *testing.T) *project {
	t.Helper()

	root := t.TempDir()
	store, err := cache.New(filepath.Join(root, ".ncc-cache"))
	require.NoError(t, err)

	return &project{t: t, root: root, store: store}
}

func (p *project) path(rel string) string {
	return filepath.Join(p.root, rel)
}

func (p *project) write(rel, content string) string {
	p.t.Helper()

	path := p.path(rel)
	require.NoError(p.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(p.t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func (p *project) builder() *Builder {
	return NewBuilder(p.store, cache.NewFileHasher(nil), scan.New(nil), "compileMain").WithJobs(2)
}

func (p *project) compile(c Compiler, sources ...string) (*Result, error) {
	return c.Compile(context.Background(), Spec{Sources: sources})
}

func TestResult_Err(t *testing.T) {
	ok := &Result{Success: true}
	assert.NoError(t, ok.Err())

	failed := &Result{Failures: []Failure{
		{Path: "/src/a.c", Message: "expected ';'"},
		{Path: "/src/b.c", Message: "unknown type name"},
	}}

	err := failed.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCompileFailed)
	assert.Contains(t, err.Error(), "2 file(s) failed")
	assert.Contains(t, err.Error(), "/src/a.c: expected ';'")
	assert.Contains(t, err.Error(), "/src/b.c: unknown type name")

	var failure *FailureError
	require.ErrorAs(t, err, &failure)
	assert.Len(t, failure.Failures, 2)

	var nilResult *Result
	assert.ErrorIs(t, nilResult.Err(), ErrCompileFailed)
	assert.ErrorIs(t, (&Result{}).Err(), ErrCompileFailed)
}

func TestCompilerFunc(t *testing.T) {
	var got Spec
	c := CompilerFunc(func(ctx context.Context, spec Spec) (*Result, error) {
		got = spec
		return &Result{Success: true}, nil
	})

	res, err := c.Compile(context.Background(), Spec{Sources: []string{"a.c"}})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"a.c"}, got.Sources)
}
