package pipeline

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// OutputFilename names the per-date output file. Document mode matches
// the tracking.log-<date>.gz convention so downstream log tooling can
// ingest synthesized events alongside real ones; tuple mode keeps a
// .tsv.gz extension.
func OutputFilename(date string, eventOutput bool) string {
	compact := strings.ReplaceAll(date, "-", "")
	if eventOutput {
		return "synthetic_enroll.log-" + compact + ".gz"
	}
	return "synthetic_enroll-" + compact + ".tsv.gz"
}

// WriteGzipLines writes newline-terminated records to path,
// gzip-compressed, creating parent directories as needed. The write
// goes through a temp file and rename so a crashed run never leaves a
// truncated output behind.
func WriteGzipLines(path string, records []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	defer os.Remove(tmp.Name())

	gz := gzip.NewWriter(tmp)
	for _, record := range records {
		if _, err := gz.Write([]byte(record)); err != nil {
			tmp.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
		if _, err := gz.Write([]byte{'\n'}); err != nil {
			tmp.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	if err := gz.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("finish %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// WritePartitions writes one gzip file per date under root and returns
// the written paths in date order.
func WritePartitions(root string, eventOutput bool, partitions map[string][]string) ([]string, error) {
	dates := make([]string, 0, len(partitions))
	for date := range partitions {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	var written []string
	for _, date := range dates {
		path := filepath.Join(root, OutputFilename(date, eventOutput))
		if err := WriteGzipLines(path, partitions[date]); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// ReadGzipLines reads the newline-terminated records of one output
// file.
func ReadGzipLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", path, err)
	}
	defer gz.Close()

	data, err := io.ReadAll(gz)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSuffix(string(data), "\n")
	if trimmed == "" {
		return nil, nil
	}
	return strings.Split(trimmed, "\n"), nil
}
