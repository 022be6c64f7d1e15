package eventlog

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
)

// fileDatePattern matches the date embedded in log filenames, with or
// without dashes: tracking.log-20131201.gz, synthetic_enroll-2013-12-01.tsv.gz.
var fileDatePattern = regexp.MustCompile(`(\d{4})-?(\d{2})-?(\d{2})`)

// SelectFiles walks the source root and returns the files whose path
// relative to the root matches at least one of the glob patterns.
// Patterns are OR'd; results are sorted for deterministic runs.
func SelectFiles(root string, patterns []string) ([]string, error) {
	var selected []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		for _, pattern := range patterns {
			ok, err := filepath.Match(pattern, rel)
			if err != nil {
				return fmt.Errorf("bad pattern %q: %w", pattern, err)
			}
			if ok {
				selected = append(selected, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	sort.Strings(selected)
	return selected, nil
}

// FileDate extracts the date embedded in a log filename, normalized to
// "YYYY-MM-DD". Returns false when the name carries no date.
func FileDate(path string) (string, bool) {
	m := fileDatePattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return "", false
	}
	return m[1] + "-" + m[2] + "-" + m[3], true
}

// FilterByInterval keeps the files whose embedded date falls inside the
// interval. Files without a recognizable date are kept: the mapper's
// per-event date check is the authoritative filter, this one only prunes
// whole files that cannot contribute.
func FilterByInterval(paths []string, iv Interval) []string {
	var kept []string
	for _, path := range paths {
		date, ok := FileDate(path)
		if !ok || iv.Contains(date) {
			kept = append(kept, path)
		}
	}
	return kept
}
