// Package file contains helpers for reading local files as datasources:
// single files, recursive directory discovery and manifest lists.
package file

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadList reads a text file line by line and returns a slice of strings
// containing non-empty, non-comment lines.
//
// Lines that are empty or start with '#' (after trimming leading/trailing
// whitespace) are skipped. The order of lines is preserved.
func ReadList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadManifest reads a manifest of input files. Relative entries are resolved
// against the manifest's own directory; http(s) URLs are kept as written and
// manifest order is kept.
func ReadManifest(path string) ([]string, error) {
	entries, err := ReadList(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	base := filepath.Dir(path)
	for i, e := range entries {
		if !filepath.IsAbs(e) && !isURL(e) {
			entries[i] = filepath.Join(base, e)
		}
	}
	return entries, nil
}

func isURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
