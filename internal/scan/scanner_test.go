package scan

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()

	mem := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(mem, path, []byte(content), 0o644))
	}

	return mem
}

func TestScanner_Scan(t *testing.T) {
	mem := newTestFs(t, map[string]string{
		"/proj/src/main.c": `
#include <stdio.h>
#include "local.h"
#include "common.h"
#include <common.h>
#include "sub/nested.h"
#include CONFIG_H
#define CONFIG_H "config.h"
`,
		"/proj/src/local.h":          "",
		"/proj/src/sub/nested.h":     "",
		"/proj/include/common.h":     "",
		"/proj/include/config.h":     "",
		"/proj/include2/common.h":    "",
		"/proj/include2/only_here.h": "",
	})

	s := New(mem)

	got, err := s.Scan("/proj/src/main.c", []string{"/proj/include", "/proj/include2"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/proj/src/local.h",
		"/proj/include/common.h",
		"/proj/src/sub/nested.h",
		"/proj/include/config.h",
	}, got)
}

func TestScanner_SearchPathOrder(t *testing.T) {
	mem := newTestFs(t, map[string]string{
		"/p/a.c":          `#include <common.h>`,
		"/p/one/common.h": "",
		"/p/two/common.h": "",
	})

	s := New(mem)

	got, err := s.Scan("/p/a.c", []string{"/p/one", "/p/two"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/p/one/common.h"}, got)

	got, err = s.Scan("/p/a.c", []string{"/p/two", "/p/one"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/p/two/common.h"}, got, "first directory in the search path wins")
}

func TestScanner_QuotedPrefersIncludingDir(t *testing.T) {
	mem := newTestFs(t, map[string]string{
		"/p/src/a.c":      `#include "util.h"`,
		"/p/src/util.h":   "",
		"/p/inc/util.h":   "",
		"/p/src/b.c":      `#include <util.h>`,
		"/p/inc/dir.h/x":  "",
		"/p/src/c.c":      `#include <dir.h>`,
		"/abs/absolute.h": "",
		"/p/src/d.c":      `#include "/abs/absolute.h"`,
	})

	s := New(mem)
	searchPath := []string{"/p/inc"}

	got, err := s.Scan("/p/src/a.c", searchPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"/p/src/util.h"}, got)

	got, err = s.Scan("/p/src/b.c", searchPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"/p/inc/util.h"}, got, "angle includes ignore the including directory")

	got, err = s.Scan("/p/src/c.c", searchPath)
	require.NoError(t, err)
	assert.Empty(t, got, "directories never resolve an include")

	got, err = s.Scan("/p/src/d.c", searchPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"/abs/absolute.h"}, got)
}

func TestScanner_Unresolved(t *testing.T) {
	mem := newTestFs(t, map[string]string{
		"/p/a.c": "#include <vector>\n#include \"missing.h\"\n#include UNKNOWN_H\n",
	})

	got, err := New(mem).Scan("/p/a.c", []string{"/p/inc"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScanner_Unreadable(t *testing.T) {
	_, err := New(afero.NewMemMapFs()).Scan("/p/missing.c", nil)
	require.Error(t, err)

	var scanErr *ScanError
	require.True(t, errors.As(err, &scanErr))
	assert.Equal(t, "/p/missing.c", scanErr.Path)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}
