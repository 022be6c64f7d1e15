package synthetic

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/enrollcheck/internal/enrollment"
)

var testSynthesized = enrollment.SynthesizedEvent{
	Timestamp: "2013-04-01T00:00:01.123456",
	Kind:      enrollment.KindActivated,
	Reason:    "start => validate(active)",
	After:     "2013-04-01T00:00:01.123456",
	Before:    "2013-09-01T00:00:01.123456",
}

func TestEmitter_TupleMode(t *testing.T) {
	e := NewEmitter("foo/bar/baz", 21, false, nil)

	datestamp, record, err := e.Encode(testSynthesized)
	require.NoError(t, err)

	assert.Equal(t, "2013-04-01", datestamp)
	assert.Equal(t,
		"foo/bar/baz\t21\t2013-04-01T00:00:01.123456\tedx.course.enrollment.activated\t"+
			"start => validate(active)\t2013-04-01T00:00:01.123456\t2013-09-01T00:00:01.123456",
		record)
}

func TestEmitter_TupleModeEmptyBounds(t *testing.T) {
	e := NewEmitter("foo/bar/baz", 21, false, nil)

	ev := testSynthesized
	ev.After = ""
	_, record, err := e.Encode(ev)
	require.NoError(t, err)

	// Absent bounds stay as empty fields so the column count is fixed.
	assert.Equal(t, "foo/bar/baz\t21\t2013-04-01T00:00:01.123456\tedx.course.enrollment.activated\t"+
		"start => validate(active)\t\t2013-09-01T00:00:01.123456",
		record)
}

func TestEmitter_DocumentMode(t *testing.T) {
	e := NewEmitter("foo/bar/baz", 21, true, testFactory("event-1"))

	datestamp, record, err := e.Encode(testSynthesized)
	require.NoError(t, err)
	assert.Equal(t, "2013-04-01", datestamp)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(record), &doc))
	assert.Equal(t, "edx.course.enrollment.activated", doc["event_type"])
	assert.Equal(t, "2013-04-01T00:00:01.123456", doc["time"])

	synthesized, ok := doc["synthesized"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "start => validate(active)", synthesized["reason"])
	assert.Equal(t, "2013-04-01T00:00:01.123456", synthesized["after_time"])
	assert.Equal(t, "2013-09-01T00:00:01.123456", synthesized["before_time"])
}
