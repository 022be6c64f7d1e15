package dbsource

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/roach88/enrollcheck/internal/eventlog"
	"github.com/roach88/enrollcheck/internal/pipeline"
	"github.com/roach88/enrollcheck/internal/synthetic"
)

// ExportConfig assembles one snapshot-to-events conversion.
type ExportConfig struct {
	// SnapshotPath is the SQLite enrollment dump.
	SnapshotPath string

	// OutputRoot is where per-course validation logs are written.
	OutputRoot string

	// Factory stamps the emitted documents. Nil means a production
	// factory with UUIDv7 event IDs.
	Factory *synthetic.Factory
}

// ExportSummary reports what one conversion read and wrote.
type ExportSummary struct {
	DumpStart    string
	Rows         int
	Courses      int
	FilesWritten []string
}

// OutputFilename names the per-course validation log for one dump date
// (compact YYYYMMDD form).
func OutputFilename(courseID, dumpDate string) string {
	return synthetic.FilenameSafeCourseID(courseID) + "_enroll_validated_" + dumpDate + ".log.gz"
}

// Export reads every enrollment row from the snapshot and writes one
// gzip log of validation events per course. Each event asserts the
// row's state as observed at the dump start time, so downstream
// validation runs can treat the database as ground truth.
func Export(ctx context.Context, cfg ExportConfig) (ExportSummary, error) {
	var summary ExportSummary

	snapshot, err := Open(cfg.SnapshotPath)
	if err != nil {
		return summary, err
	}
	defer snapshot.Close()

	dumpStart, err := snapshot.DumpStart(ctx)
	if err != nil {
		return summary, err
	}
	summary.DumpStart = dumpStart
	datePart, _, _ := strings.Cut(dumpStart, "T")
	dumpDate := strings.ReplaceAll(datePart, "-", "")
	slog.Info("enrollment snapshot opened",
		"snapshot", cfg.SnapshotPath,
		"dump_start", dumpStart,
	)

	factory := cfg.Factory
	if factory == nil {
		factory = synthetic.NewFactory("enrollment_from_db")
	}

	// Rows arrive ordered by course, so one pending batch suffices.
	var (
		course  string
		pending bool
		records []string
	)
	flush := func() error {
		if !pending {
			return nil
		}
		path := filepath.Join(cfg.OutputRoot, OutputFilename(course, dumpDate))
		if err := pipeline.WriteGzipLines(path, records); err != nil {
			return err
		}
		summary.Courses++
		summary.FilesWritten = append(summary.FilesWritten, path)
		pending, records = false, nil
		return nil
	}

	err = snapshot.Enrollments(ctx, func(e Enrollment) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		created, err := NormalizeDatetime(e.Created)
		if err != nil {
			return fmt.Errorf("enrollment row %d: %w", e.ID, err)
		}
		if !pending || e.CourseID != course {
			if err := flush(); err != nil {
				return err
			}
			course, pending = e.CourseID, true
		}

		doc := factory.Validation(e.CourseID, e.UserID, dumpStart, e.Mode, e.IsActive, created, "db entry")
		encoded, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode validation event: %w", err)
		}
		// Generated events must be ingestible by the validate command.
		if err := eventlog.ValidateDocument(encoded); err != nil {
			return fmt.Errorf("enrollment row %d: %w", e.ID, err)
		}
		records = append(records, string(encoded))
		summary.Rows++
		return nil
	})
	if err != nil {
		return summary, err
	}
	if err := flush(); err != nil {
		return summary, err
	}

	slog.Info("snapshot exported",
		"rows", summary.Rows,
		"courses", summary.Courses,
	)
	return summary, nil
}
