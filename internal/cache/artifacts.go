package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ObjectExt is the extension given to object files
const ObjectExt = ".o"

// groupLen is the length of the hex digest naming a group directory
const groupLen = 8

// ObjectFile returns where the object file of source lives inside objectDir.
// Sources are grouped by a digest of their directory so that equally named
// sources from different directories never collide. The full base name is
// kept, so foo.c and foo.cpp get distinct objects.
func ObjectFile(objectDir, source string) string {
	sum := sha256.Sum256([]byte(filepath.Dir(source)))
	return filepath.Join(objectDir, hex.EncodeToString(sum[:groupLen/2]), filepath.Base(source)+ObjectExt)
}

// RemoveArtifacts deletes the object files of the given sources.
// Missing files are not an error; it returns the files actually removed.
func RemoveArtifacts(objectDir string, sources []string) ([]string, error) {
	var removed []string

	for _, src := range sources {
		obj := ObjectFile(objectDir, src)

		err := os.Remove(obj)
		if os.IsNotExist(err) {
			continue
		}

		if err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", obj, err)
		}

		removed = append(removed, obj)

		// drop the group directory once it is empty
		_ = os.Remove(filepath.Dir(obj))
	}

	return removed, nil
}

// CleanArtifacts removes every object file laid out by ObjectFile under objectDir.
// Anything else in objectDir is left alone.
func CleanArtifacts(objectDir string) error {
	outputs, err := CollectOutputs(objectDir)
	if err != nil {
		return err
	}

	groups := make(map[string]bool)
	for _, obj := range outputs {
		if err := os.Remove(obj); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", obj, err)
		}

		groups[filepath.Dir(obj)] = true
	}

	// only empty groups go, os.Remove refuses the rest
	for dir := range groups {
		_ = os.Remove(dir)
	}

	return nil
}

// CollectOutputs lists the object files in the group directories of objectDir
func CollectOutputs(objectDir string) ([]string, error) {
	entries, err := os.ReadDir(objectDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	var outputs []string
	for _, entry := range entries {
		if !entry.IsDir() || !isGroup(entry.Name()) {
			continue
		}

		dir := filepath.Join(objectDir, entry.Name())

		files, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to read output directory: %w", err)
		}

		for _, f := range files {
			if f.Type().IsRegular() && strings.HasSuffix(f.Name(), ObjectExt) {
				outputs = append(outputs, filepath.Join(dir, f.Name()))
			}
		}
	}

	return outputs, nil
}

// isGroup reports whether name looks like a group directory made by ObjectFile
func isGroup(name string) bool {
	if len(name) != groupLen {
		return false
	}

	_, err := hex.DecodeString(name)
	return err == nil && strings.ToLower(name) == name
}
