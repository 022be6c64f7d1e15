package dbsource

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Snapshot is a read-only view of an enrollment database dump. The
// dump holds the student_courseenrollment table plus a dump_metadata
// table recording when the dump started.
type Snapshot struct {
	db *sql.DB
}

// Open opens a SQLite enrollment snapshot read-only. The snapshot is
// input data, never written to.
func Open(path string) (*Snapshot, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to snapshot: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return &Snapshot{db: db}, nil
}

// Close closes the snapshot connection.
func (s *Snapshot) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DumpStart returns the dump start timestamp from dump_metadata, in
// ISO form with six-digit microseconds. This is the observation time
// stamped onto every emitted validation event.
func (s *Snapshot) DumpStart(ctx context.Context) (string, error) {
	var start string
	err := s.db.QueryRowContext(ctx,
		"SELECT start_time FROM dump_metadata LIMIT 1").Scan(&start)
	if err != nil {
		return "", fmt.Errorf("read dump start time: %w", err)
	}
	return start, nil
}

// Enrollment is one row of student_courseenrollment.
type Enrollment struct {
	ID       int64
	UserID   int
	CourseID string
	Created  string
	IsActive bool
	Mode     string
}

// Enrollments streams every enrollment row ordered by course then row
// id, so callers can group per-course output without buffering the
// whole table. Created keeps the database's own datetime form; use
// NormalizeDatetime before emitting.
func (s *Snapshot) Enrollments(ctx context.Context, fn func(Enrollment) error) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, course_id, created, is_active, mode
		FROM student_courseenrollment
		ORDER BY course_id, id`)
	if err != nil {
		return fmt.Errorf("query enrollments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e Enrollment
		if err := rows.Scan(&e.ID, &e.UserID, &e.CourseID, &e.Created, &e.IsActive, &e.Mode); err != nil {
			return fmt.Errorf("scan enrollment row: %w", err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return rows.Err()
}

// NormalizeDatetime converts a MySQL-style datetime such as
// "2012-07-25 12:26:22.0" into the ISO form log files sort by,
// "2012-07-25T12:26:22.000000". The fractional part is padded or
// truncated to six digits; a timestamp already in ISO form passes
// through with the same fractional normalization.
func NormalizeDatetime(dt string) (string, error) {
	normalized := strings.Replace(dt, " ", "T", 1)
	datetime, fraction, hasFraction := strings.Cut(normalized, ".")

	if len(datetime) != len("2006-01-02T15:04:05") ||
		datetime[4] != '-' || datetime[7] != '-' ||
		datetime[10] != 'T' || datetime[13] != ':' || datetime[16] != ':' {
		return "", fmt.Errorf("malformed datetime %q", dt)
	}

	micros := "000000"
	if hasFraction {
		if fraction == "" || len(fraction) > 6 {
			return "", fmt.Errorf("malformed datetime %q", dt)
		}
		if _, err := strconv.Atoi(fraction); err != nil {
			return "", fmt.Errorf("malformed datetime %q", dt)
		}
		micros = fraction + strings.Repeat("0", 6-len(fraction))
	}
	return datetime + "." + micros, nil
}
