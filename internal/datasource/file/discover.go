package file

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// DefaultPattern matches raw feed files.
const DefaultPattern = "*.json"

// Discover walks root recursively and returns every regular file whose base
// name matches pattern, sorted by path. An empty pattern means DefaultPattern.
//
// Symlinks to files are returned under their link path. A dangling link is
// returned too, so the reader reports it as a skipped file. Symlinks to
// directories are not descended into.
//
// The walk checks ctx between entries so a cancelled run stops promptly.
func Discover(ctx context.Context, root, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("discover %s: bad pattern %q: %w", root, pattern, err)
	}

	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		switch {
		case d.Type()&fs.ModeSymlink != 0:
			if info, serr := os.Stat(path); serr == nil && !info.Mode().IsRegular() {
				return nil
			}
		case !d.Type().IsRegular():
			return nil
		}
		ok, _ := filepath.Match(pattern, d.Name())
		if ok {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", root, err)
	}
	sort.Strings(out)
	return out, nil
}
