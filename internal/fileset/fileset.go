// Package fileset resolves the named path lists used for transfers.
//
// A file set is a list of paths relative to the local working directory.
// The "." sentinel stands for every entry of that directory, dotfiles
// included, since files like .env often carry runtime settings. A set
// is resolved exactly once per invocation into a Resolved value; everything
// downstream consumes the Resolved form, so a set can never be re-expanded
// after the directory changes mid-run.
package fileset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Sentinel expands to all entries of the working directory.
const Sentinel = "."

// ErrEmptyFileSet indicates a file set resolved to nothing. This is an
// operator configuration error and is never silently accepted downstream.
var ErrEmptyFileSet = errors.New("file set resolved to no files")

// Resolved is the expanded, immutable form of a file set.
type Resolved struct {
	// Base is the directory the paths are relative to.
	Base string

	// Paths are cleaned relative paths, sorted and deduplicated.
	Paths []string
}

// Resolve expands entries against baseDir. Each named entry must exist;
// the sentinel expands to every entry of baseDir, dotfiles included.
func Resolve(entries []string, baseDir string) (Resolved, error) {
	seen := make(map[string]struct{})
	var paths []string

	add := func(p string) {
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}

	for _, entry := range entries {
		entry = filepath.Clean(strings.TrimSuffix(entry, "/"))
		if entry == Sentinel {
			expanded, err := expandAll(baseDir)
			if err != nil {
				return Resolved{}, err
			}
			for _, p := range expanded {
				add(p)
			}
			continue
		}
		if filepath.IsAbs(entry) || entry == ".." || strings.HasPrefix(entry, ".."+string(filepath.Separator)) {
			return Resolved{}, fmt.Errorf("file set entry %q must be relative to the working directory", entry)
		}
		if _, err := os.Lstat(filepath.Join(baseDir, entry)); err != nil {
			return Resolved{}, fmt.Errorf("file set entry %q: %w", entry, err)
		}
		add(entry)
	}

	sort.Strings(paths)
	return Resolved{Base: baseDir, Paths: paths}, nil
}

// expandAll lists every entry of dir. Dotfiles are deliberately kept:
// a .env next to the compose file is part of the workload.
func expandAll(dir string) ([]string, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list working directory: %w", err)
	}
	var out []string
	for _, d := range dirents {
		out = append(out, d.Name())
	}
	return out, nil
}
