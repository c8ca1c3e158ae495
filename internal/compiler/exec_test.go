package compiler

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/ncc/internal/cache"
)

func TestExecCompiler_CommandArgs(t *testing.T) {
	c := NewExecCompiler("cc", 1)
	obj := cache.ObjectFile("/out", "/src/main.c")

	tests := []struct {
		name string
		spec Spec
		want []string
	}{
		{
			name: "bare",
			spec: Spec{ObjectDir: "/out"},
			want: []string{"-c", "/src/main.c", "-o", obj},
		},
		{
			name: "flags first",
			spec: Spec{ObjectDir: "/out", Flags: []string{"-O2", "-Wall"}},
			want: []string{"-O2", "-Wall", "-c", "/src/main.c", "-o", obj},
		},
		{
			name: "include dirs",
			spec: Spec{ObjectDir: "/out", Flags: []string{"-g"}, IncludeDirs: []string{"/inc", "", "/lib/inc"}},
			want: []string{"-g", "-I/inc", "-I/lib/inc", "-c", "/src/main.c", "-o", obj},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.CommandArgs(tt.spec, "/src/main.c"))
		})
	}
}

// shellCompiler fakes a compiler with sh: sources containing "bad" fail,
// everything else produces its object file
func shellCompiler(t *testing.T) *ExecCompiler {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}

	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("requires sh")
	}

	c := NewExecCompiler("cc", 2)
	c.execCommand = func(ctx context.Context, name string, args ...string) Commander {
		src, obj := args[len(args)-3], args[len(args)-1]

		script := "touch '" + obj + "'"
		if strings.Contains(filepath.Base(src), "bad") {
			script = "echo \"" + filepath.Base(src) + ": syntax error\" >&2; exit 2"
		}

		return exec.CommandContext(ctx, "sh", "-c", script)
	}

	return c
}

func TestExecCompiler_Compile(t *testing.T) {
	dir := t.TempDir()
	objDir := filepath.Join(dir, "obj")
	good := filepath.Join(dir, "good.c")
	bad := filepath.Join(dir, "bad.c")

	t.Run("success", func(t *testing.T) {
		c := shellCompiler(t)

		res, err := c.Compile(context.Background(), Spec{Sources: []string{good}, ObjectDir: objDir})
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, []string{good}, res.Recompiled)
		assert.Equal(t, []string{cache.ObjectFile(objDir, good)}, res.Artifacts)
		assert.FileExists(t, cache.ObjectFile(objDir, good))
	})

	t.Run("failing source", func(t *testing.T) {
		c := shellCompiler(t)

		res, err := c.Compile(context.Background(), Spec{Sources: []string{bad, good}, ObjectDir: objDir})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, []string{good}, res.Recompiled)
		require.Len(t, res.Failures, 1)
		assert.Equal(t, bad, res.Failures[0].Path)
		assert.Equal(t, "exit code 2: bad.c: syntax error", res.Failures[0].Message)
		assert.ErrorIs(t, res.Err(), ErrCompileFailed)
	})

	t.Run("requires object dir", func(t *testing.T) {
		c := NewExecCompiler("cc", 1)

		_, err := c.Compile(context.Background(), Spec{Sources: []string{good}})
		assert.Error(t, err)
	})

	t.Run("missing compiler", func(t *testing.T) {
		c := NewExecCompiler(filepath.Join(dir, "no-such-cc"), 1)

		_, err := c.Compile(context.Background(), Spec{Sources: []string{good}, ObjectDir: objDir})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to run compiler")
	})

	t.Run("cancelled", func(t *testing.T) {
		c := shellCompiler(t)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.Compile(ctx, Spec{Sources: []string{good}, ObjectDir: objDir})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestExecCompiler_UnderIncremental(t *testing.T) {
	p := newProject(t)
	a := p.write("src/a.c", "int a;\n")
	objDir := p.path("obj")

	c := p.builder().Build(shellCompiler(t))

	res, err := c.Compile(context.Background(), Spec{Sources: []string{a}, ObjectDir: objDir})
	require.NoError(t, err)
	assert.Equal(t, []string{a}, res.Recompiled)

	outputs, err := cache.CollectOutputs(objDir)
	require.NoError(t, err)
	assert.Equal(t, []string{cache.ObjectFile(objDir, a)}, outputs)

	_, err = os.Stat(cache.ObjectFile(objDir, a))
	assert.NoError(t, err)
}
