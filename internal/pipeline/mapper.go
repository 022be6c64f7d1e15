package pipeline

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/roach88/enrollcheck/internal/enrollment"
	"github.com/roach88/enrollcheck/internal/eventlog"
)

// Key identifies one enrollment history: a single user in a single
// course.
type Key struct {
	CourseID string
	UserID   int
}

func (k Key) String() string {
	return fmt.Sprintf("%s/user=%d", k.CourseID, k.UserID)
}

// Mapper accumulates enrollment events grouped by key, counting what it
// read, skipped, and dropped along the way. Safe for concurrent use by
// the file workers.
type Mapper struct {
	interval eventlog.Interval

	mu            sync.Mutex
	groups        map[Key][]enrollment.Event
	linesRead     int64
	eventsMapped  int64
	nonEnrollment int64
	outOfInterval int64
	malformed     int64
}

// NewMapper creates a mapper that keeps only events whose timestamp
// falls inside the interval.
func NewMapper(interval eventlog.Interval) *Mapper {
	return &Mapper{
		interval: interval,
		groups:   make(map[Key][]enrollment.Event),
	}
}

// MapFile reads one log file, transparently decompressing .gz files.
func (m *Mapper) MapFile(path string) error {
	if err := scanLogFile(path, m.mapLine); err != nil {
		return fmt.Errorf("map %s: %w", path, err)
	}
	return nil
}

// scanLogFile feeds every line of a log file to fn, transparently
// decompressing .gz files.
func scanLogFile(path string, fn func(line string)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("decompress %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	return scanLines(r, fn)
}

// MapReader parses newline-delimited event documents from r. Malformed
// lines are dropped and counted, never fatal.
func (m *Mapper) MapReader(r io.Reader) error {
	return scanLines(r, m.mapLine)
}

func scanLines(r io.Reader, fn func(line string)) error {
	scanner := bufio.NewScanner(r)
	// Tracking-log lines can be large; the default token limit is too
	// small for event documents with big payloads.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		fn(scanner.Text())
	}
	return scanner.Err()
}

func (m *Mapper) mapLine(line string) {
	// Parse outside the lock; only the group map and counters are shared.
	record, err := eventlog.ParseLine(line)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.linesRead++
	switch {
	case errors.Is(err, eventlog.ErrNotEnrollment):
		m.nonEnrollment++
		return
	case err != nil:
		m.malformed++
		return
	}

	if !m.interval.ContainsTimestamp(record.Event.Timestamp) {
		m.outOfInterval++
		return
	}

	key := Key{CourseID: record.CourseID, UserID: record.UserID}
	m.groups[key] = append(m.groups[key], record.Event)
	m.eventsMapped++
}

// Groups hands over the accumulated event bags. The mapper must not be
// used afterwards.
func (m *Mapper) Groups() map[Key][]enrollment.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	groups := m.groups
	m.groups = nil
	return groups
}
