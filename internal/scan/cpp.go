package scan

import (
	"bytes"
	"strings"
)

// maxMacroDepth bounds macro expansion, so self referencing macros terminate
const maxMacroDepth = 16

// Directives returns the include operands of buf in order of appearance and the
// path-like macros it defines. Operands keep their delimiters, e.g. `"foo.h"`,
// `<foo.h>`, or a bare macro name.
func Directives(buf []byte) ([]string, map[string][]string) {
	var includes []string
	defines := make(map[string][]string)

	for len(buf) > 0 {
		var line []byte
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			line, buf = buf, nil
		} else {
			line, buf = buf[:i], buf[i+1:]
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 || line[0] != '#' {
			continue
		}

		line = bytes.TrimSpace(line[1:])

		switch {
		case bytes.HasPrefix(line, []byte("include_next")):
			line = line[len("include_next"):]
		case bytes.HasPrefix(line, []byte("include")):
			line = line[len("include"):]
		case bytes.HasPrefix(line, []byte("import")):
			line = line[len("import"):]
		case bytes.HasPrefix(line, []byte("define")):
			line = line[len("define"):]
			if !startsWithBlank(line) {
				continue
			}

			addDefine(defines, bytes.TrimSpace(line))
			continue
		default:
			continue
		}

		// `#include"foo.h"` is valid, `#includefoo` is not
		if len(line) == 0 || (!startsWithBlank(line) && line[0] != '"' && line[0] != '<') {
			continue
		}

		if operand, ok := includeOperand(bytes.TrimSpace(line)); ok {
			includes = append(includes, operand)
		}
	}

	return includes, defines
}

func startsWithBlank(b []byte) bool {
	return len(b) > 0 && (b[0] == ' ' || b[0] == '\t')
}

func includeOperand(b []byte) (string, bool) {
	if len(b) == 0 {
		return "", false
	}

	switch b[0] {
	case '"', '<':
		end := byte('"')
		if b[0] == '<' {
			end = '>'
		}

		i := bytes.IndexByte(b[1:], end)
		if i <= 0 {
			// unclosed or empty path
			return "", false
		}

		return string(b[:i+2]), true
	}

	if !isMacroName(b) {
		return "", false
	}

	if i := bytes.IndexAny(b, " \t"); i >= 0 {
		b = b[:i]
	}

	return string(b), true
}

// addDefine records `MACRO "path"`, `MACRO <path>` or `MACRO OTHER_MACRO`
func addDefine(defines map[string][]string, line []byte) {
	i := bytes.IndexAny(line, " \t")
	if i <= 0 {
		return
	}

	macro := string(line[:i])
	if strings.Contains(macro, "(") {
		// function-like macro
		return
	}

	value, ok := includeOperand(bytes.TrimSpace(line[i+1:]))
	if !ok || strings.Contains(value, "(") {
		return
	}

	for _, v := range defines[macro] {
		if v == value {
			return
		}
	}

	defines[macro] = append(defines[macro], value)
}

// isMacroName accepts identifiers starting with an upper case letter or underscore
func isMacroName(b []byte) bool {
	return len(b) > 0 && ((b[0] >= 'A' && b[0] <= 'Z') || b[0] == '_')
}

// expandMacros appends every path operand name can stand for
func expandMacros(paths []string, name string, defines map[string][]string, depth int) []string {
	if name == "" || depth > maxMacroDepth {
		return paths
	}

	if name[0] == '"' || name[0] == '<' {
		return append(paths, name)
	}

	for _, v := range defines[name] {
		paths = expandMacros(paths, v, defines, depth+1)
	}

	return paths
}
