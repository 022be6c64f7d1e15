package eventlog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/enrollcheck/internal/enrollment"
)

const (
	testCourseID  = "foo/bar/baz"
	testUserID    = 21
	testTimestamp = "2013-12-17T15:38:32.805444"
)

// testEventDocument builds a tracking-log document with default values,
// applying overrides on top.
func testEventDocument(overrides map[string]any) map[string]any {
	doc := map[string]any{
		"username":     "test_user",
		"host":         "test_host",
		"event_source": "server",
		"event_type":   string(enrollment.KindActivated),
		"context": map[string]any{
			"course_id": testCourseID,
			"org_id":    "foo",
			"user_id":   testUserID,
		},
		"time": testTimestamp + "+00:00",
		"ip":   "127.0.0.1",
		"event": map[string]any{
			"course_id": testCourseID,
			"user_id":   testUserID,
			"mode":      "honor",
		},
		"agent": "blah, blah, blah",
		"page":  nil,
	}
	for k, v := range overrides {
		doc[k] = v
	}
	return doc
}

func testEventLine(t *testing.T, overrides map[string]any) string {
	t.Helper()
	line, err := json.Marshal(testEventDocument(overrides))
	require.NoError(t, err)
	return string(line)
}

func TestParseLine_GoodEnrollmentEvents(t *testing.T) {
	testCases := []struct {
		name      string
		eventType string
		kind      enrollment.Kind
	}{
		{"activated", string(enrollment.KindActivated), enrollment.KindActivated},
		{"deactivated", string(enrollment.KindDeactivated), enrollment.KindDeactivated},
		{"validated", string(enrollment.KindValidated), enrollment.KindValidated},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			line := testEventLine(t, map[string]any{"event_type": tc.eventType})
			record, err := ParseLine(line)
			require.NoError(t, err)

			assert.Equal(t, testCourseID, record.CourseID)
			assert.Equal(t, testUserID, record.UserID)
			assert.Equal(t, testTimestamp, record.Event.Timestamp)
			assert.Equal(t, tc.kind, record.Event.Kind)
			assert.Nil(t, record.Event.IsActive)
			assert.Empty(t, record.Event.Created)
		})
	}
}

func TestParseLine_ValidationFields(t *testing.T) {
	line := testEventLine(t, map[string]any{
		"event_type": string(enrollment.KindValidated),
		"event": map[string]any{
			"course_id": testCourseID,
			"user_id":   testUserID,
			"is_active": true,
			"created":   "2013-04-01T00:00:01.123456",
		},
	})
	record, err := ParseLine(line)
	require.NoError(t, err)

	require.NotNil(t, record.Event.IsActive)
	assert.True(t, *record.Event.IsActive)
	assert.Equal(t, "2013-04-01T00:00:01.123456", record.Event.Created)
}

func TestParseLine_StringEncodedPayload(t *testing.T) {
	payload, err := json.Marshal(map[string]any{
		"course_id": testCourseID,
		"user_id":   testUserID,
	})
	require.NoError(t, err)

	line := testEventLine(t, map[string]any{"event": string(payload)})
	record, err := ParseLine(line)
	require.NoError(t, err)
	assert.Equal(t, testCourseID, record.CourseID)
}

func TestParseLine_RejectsBadInput(t *testing.T) {
	testCases := []struct {
		name string
		line string
	}{
		{"garbage", "this is garbage"},
		{"garbage with event marker", "this is garbage but contains edx.course.enrollment"},
		{"missing event_type", `{"time": "2013-12-17T15:38:32.805444"}`},
		{"bad timestamp", `{"event_type": "edx.course.enrollment.activated", "time": "this is a bogus time", "event": {}}`},
		{"payload is a list", `{"event_type": "edx.course.enrollment.activated", "time": "2013-12-17T15:38:32.805444", "event": ["not an event"]}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseLine(tc.line)
			assert.Error(t, err)
			assert.NotErrorIs(t, err, ErrNotEnrollment)
		})
	}
}

func TestParseLine_RejectsBadKeys(t *testing.T) {
	t.Run("illegal course_id", func(t *testing.T) {
		line := testEventLine(t, map[string]any{
			"event": map[string]any{"course_id": ";;;;bad/id/val", "user_id": testUserID},
		})
		_, err := ParseLine(line)
		assert.Error(t, err)
	})

	t.Run("missing user_id", func(t *testing.T) {
		line := testEventLine(t, map[string]any{
			"event": map[string]any{"course_id": testCourseID},
		})
		_, err := ParseLine(line)
		assert.Error(t, err)
	})
}

func TestParseLine_NonEnrollmentEvent(t *testing.T) {
	line := testEventLine(t, map[string]any{"event_type": "edx.course.enrollment.unknown"})
	_, err := ParseLine(line)
	assert.ErrorIs(t, err, ErrNotEnrollment)

	line = testEventLine(t, map[string]any{"event_type": "page_view"})
	_, err = ParseLine(line)
	assert.ErrorIs(t, err, ErrNotEnrollment)
}

func TestNormalizeTimestamp(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"utc offset stripped", testTimestamp + "+00:00", testTimestamp},
		{"zulu suffix stripped", testTimestamp + "Z", testTimestamp},
		{"already normalized", testTimestamp, testTimestamp},
		{"missing fraction padded", "2013-12-17T15:38:32", "2013-12-17T15:38:32.000000"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := NormalizeTimestamp(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, result)
		})
	}

	t.Run("bogus time", func(t *testing.T) {
		_, err := NormalizeTimestamp("this is a bogus time")
		assert.Error(t, err)
	})
}

func TestIsValidCourseID(t *testing.T) {
	valid := []string{
		"foo/bar/baz",
		"MITx/6.002x/2013_Spring",
		"course-v1:MITx+6.002x+2013_Spring",
	}
	for _, id := range valid {
		assert.True(t, IsValidCourseID(id), id)
	}

	invalid := []string{
		"",
		";;;;bad/id/val",
		"foo/bar",
		"foo/bar/baz/qux",
		"has space/bar/baz",
		"course-v1:missing+run",
	}
	for _, id := range invalid {
		assert.False(t, IsValidCourseID(id), id)
	}
}
