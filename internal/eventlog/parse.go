package eventlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/enrollcheck/internal/enrollment"
)

// ErrNotEnrollment marks lines that parse fine but are not enrollment
// state-change events. Callers skip these silently; every other parse
// error is a malformed input worth counting.
var ErrNotEnrollment = errors.New("not an enrollment event")

// Record is one parsed enrollment event together with its (course, user)
// grouping key.
type Record struct {
	CourseID string
	UserID   int
	Event    enrollment.Event
}

// rawEvent is the subset of a tracking-log document the mapper needs.
type rawEvent struct {
	EventType string          `json:"event_type"`
	Time      string          `json:"time"`
	Event     json.RawMessage `json:"event"`
}

// enrollmentPayload is the event-specific payload of enrollment events.
// IsActive and Created are supplied only by validation events.
type enrollmentPayload struct {
	CourseID string `json:"course_id"`
	UserID   *int   `json:"user_id"`
	IsActive *bool  `json:"is_active"`
	Created  string `json:"created"`
}

var enrollmentKinds = map[string]enrollment.Kind{
	string(enrollment.KindActivated):   enrollment.KindActivated,
	string(enrollment.KindDeactivated): enrollment.KindDeactivated,
	string(enrollment.KindValidated):   enrollment.KindValidated,
}

// ParseLine parses one tracking-log line into a keyed enrollment event.
//
// Lines that are not enrollment events return ErrNotEnrollment; any
// other error means the line is malformed (unparseable JSON, missing
// event_type, bad timestamp, missing or implausible key fields).
func ParseLine(line string) (Record, error) {
	var raw rawEvent
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Record{}, fmt.Errorf("unparseable event: %w", err)
	}
	if raw.EventType == "" {
		return Record{}, errors.New("event has no event_type")
	}
	kind, ok := enrollmentKinds[raw.EventType]
	if !ok {
		return Record{}, ErrNotEnrollment
	}

	timestamp, err := NormalizeTimestamp(raw.Time)
	if err != nil {
		return Record{}, fmt.Errorf("event has bad timestamp: %w", err)
	}

	payload, err := decodePayload(raw.Event)
	if err != nil {
		return Record{}, fmt.Errorf("event has bad payload: %w", err)
	}
	if !IsValidCourseID(payload.CourseID) {
		return Record{}, fmt.Errorf("event has invalid course_id %q", payload.CourseID)
	}
	if payload.UserID == nil {
		return Record{}, errors.New("event has no user_id")
	}

	return Record{
		CourseID: payload.CourseID,
		UserID:   *payload.UserID,
		Event: enrollment.Event{
			Timestamp: timestamp,
			Kind:      kind,
			IsActive:  payload.IsActive,
			Created:   payload.Created,
		},
	}, nil
}

// decodePayload unwraps the event field, which some emitters serialize
// as a JSON object and others as a string containing JSON.
func decodePayload(data []byte) (enrollmentPayload, error) {
	var payload enrollmentPayload
	if len(data) == 0 {
		return payload, errors.New("missing event payload")
	}
	if data[0] == '"' {
		var nested string
		if err := json.Unmarshal(data, &nested); err != nil {
			return payload, err
		}
		data = []byte(nested)
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, err
	}
	return payload, nil
}

// NormalizeTimestamp converts an event time to the canonical ISO-8601
// microsecond form used throughout the pipeline. Trailing UTC offsets
// ("+00:00", "Z") are stripped and a missing fractional part is padded
// to six digits.
func NormalizeTimestamp(raw string) (string, error) {
	if raw == "" {
		return "", errors.New("empty timestamp")
	}
	trimmed := strings.TrimSuffix(raw, "Z")
	if i := strings.IndexByte(trimmed, '+'); i >= 0 {
		trimmed = trimmed[:i]
	}

	parsed, err := time.Parse("2006-01-02T15:04:05", trimmed)
	if err != nil {
		return "", err
	}
	return parsed.Format(enrollment.TimestampLayout), nil
}

// IsValidCourseID applies the same plausibility check the event emitters
// use: either a new-style "course-v1:Org+Course+Run" key or a legacy
// "org/course/run" triple, with no whitespace or quoting characters.
func IsValidCourseID(courseID string) bool {
	if courseID == "" || strings.ContainsAny(courseID, " \t\n\r;\"'\\") {
		return false
	}
	if rest, ok := strings.CutPrefix(courseID, "course-v1:"); ok {
		parts := strings.Split(rest, "+")
		return len(parts) == 3 && parts[0] != "" && parts[1] != "" && parts[2] != ""
	}
	parts := strings.Split(courseID, "/")
	return len(parts) == 3 && parts[0] != "" && parts[1] != "" && parts[2] != ""
}
