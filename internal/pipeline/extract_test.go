package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/enrollcheck/internal/eventlog"
)

func extractInterval(t *testing.T) eventlog.Interval {
	t.Helper()
	iv, err := eventlog.ParseInterval("2013-01-01-2014-10-10")
	require.NoError(t, err)
	return iv
}

func TestExtractByCourse(t *testing.T) {
	outputRoot := t.TempDir()

	summary, err := Extract(context.Background(), ExtractConfig{
		SourceRoot: "testdata/logs",
		Patterns:   []string{"tracking.log-*"},
		Interval:   extractInterval(t),
		OutputRoot: outputRoot,
		CourseIDs:  []string{"foo/bar/baz"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.FilesRead)
	assert.Equal(t, int64(5), summary.LinesRead)
	assert.Equal(t, int64(3), summary.EventsKept)
	require.Len(t, summary.FilesWritten, 1)

	records, err := ReadGzipLines(summary.FilesWritten[0])
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Lines are kept verbatim in file order.
	assert.Contains(t, records[0], `"edx.course.enrollment.validated"`)
	assert.Contains(t, records[0], `"user_id": 21`)
	assert.Contains(t, records[1], `"user_id": 22`)
}

func TestExtractByUser(t *testing.T) {
	outputRoot := t.TempDir()

	summary, err := Extract(context.Background(), ExtractConfig{
		SourceRoot: "testdata/logs",
		Patterns:   []string{"tracking.log-*"},
		Interval:   extractInterval(t),
		OutputRoot: outputRoot,
		UserIDs:    []int{22},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2), summary.EventsKept)
	require.Len(t, summary.FilesWritten, 1)

	records, err := ReadGzipLines(summary.FilesWritten[0])
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, record := range records {
		assert.Contains(t, record, `"user_id": 22`)
	}
}

func TestExtractBothFiltersIntersect(t *testing.T) {
	summary, err := Extract(context.Background(), ExtractConfig{
		SourceRoot: "testdata/logs",
		Patterns:   []string{"tracking.log-*"},
		Interval:   extractInterval(t),
		OutputRoot: t.TempDir(),
		CourseIDs:  []string{"foo/bar/baz"},
		UserIDs:    []int{21},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.EventsKept)
}

func TestExtractNoFilter(t *testing.T) {
	_, err := Extract(context.Background(), ExtractConfig{
		SourceRoot: "testdata/logs",
		Patterns:   []string{"tracking.log-*"},
		Interval:   extractInterval(t),
		OutputRoot: t.TempDir(),
	})
	require.Error(t, err)
}

func TestExtractNoMatches(t *testing.T) {
	summary, err := Extract(context.Background(), ExtractConfig{
		SourceRoot: "testdata/logs",
		Patterns:   []string{"tracking.log-*"},
		Interval:   extractInterval(t),
		OutputRoot: t.TempDir(),
		CourseIDs:  []string{"other/course/run"},
	})
	require.NoError(t, err)
	assert.Zero(t, summary.EventsKept)
	assert.Empty(t, summary.FilesWritten)
}

func TestExtractFilename(t *testing.T) {
	assert.Equal(t, "foo_bar_baz_events.log.gz", ExtractFilename("foo/bar/baz"))
}
