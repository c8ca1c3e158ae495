package scan

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
)

// ScanError reports a file whose include directives could not be read
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("failed to scan %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// Scanner resolves the direct includes of a file against a search path
type Scanner struct {
	fs     afero.Fs
	logger *log.Logger
}

// New creates a scanner reading from fs
// If fs is nil, the OS filesystem is used
func New(fs afero.Fs) *Scanner {
	if fs == nil {
		fs = afero.NewOsFs()
	}

	return &Scanner{fs: fs, logger: log.Default()}
}

// SetLogger replaces the scanner's logger
func (s *Scanner) SetLogger(l *log.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Scan returns the resolved paths of the headers path includes directly,
// without duplicates, in order of first appearance.
//
// Quoted includes are looked up in the including file's directory first,
// then in searchPath; angle includes only in searchPath. The first directory
// holding a regular file of that name wins. Unresolved includes are skipped.
func (s *Scanner) Scan(path string, searchPath []string) ([]string, error) {
	buf, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, &ScanError{Path: path, Err: err}
	}

	operands, defines := Directives(buf)

	var resolved []string
	seen := make(map[string]bool)

	for _, operand := range operands {
		for _, name := range expandMacros(nil, operand, defines, 0) {
			header, ok := s.resolve(path, name, searchPath)
			if !ok {
				s.logger.Debug("skip unresolved include", "file", path, "include", name)
				continue
			}

			if seen[header] {
				continue
			}

			seen[header] = true
			resolved = append(resolved, header)
		}
	}

	return resolved, nil
}

func (s *Scanner) resolve(from, name string, searchPath []string) (string, bool) {
	form := name[0]
	name = name[1 : len(name)-1]

	if filepath.IsAbs(name) {
		name = filepath.Clean(name)
		return name, s.isFile(name)
	}

	if form == '"' {
		if candidate := filepath.Join(filepath.Dir(from), name); s.isFile(candidate) {
			return candidate, true
		}
	}

	for _, dir := range searchPath {
		if candidate := filepath.Join(dir, name); s.isFile(candidate) {
			return candidate, true
		}
	}

	return "", false
}

func (s *Scanner) isFile(path string) bool {
	fi, err := s.fs.Stat(path)
	return err == nil && !fi.IsDir()
}
