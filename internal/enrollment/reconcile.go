package enrollment

import (
	"fmt"
	"sort"
)

// Options control one key's reconciliation. All fields are supplied by
// the caller; nothing is derived here.
type Options struct {
	// GenerateBefore enables synthesizing events that precede the
	// analysis window. Default (false) is incremental validation:
	// gaps whose inferred events predate the window are suppressed.
	GenerateBefore bool

	// RequireValidation records a diagnostic when a key with real
	// events has no validation event at all. Observation only: output
	// is not suppressed or augmented.
	RequireValidation bool

	// LowerBoundDate is the first date of the analysis window as a
	// "YYYY-MM-DD" string, compared lexicographically against creation
	// timestamps.
	LowerBoundDate string
}

// SynthesizedEvent is one inferred event filling a detected gap.
type SynthesizedEvent struct {
	Timestamp string
	Kind      Kind

	// Reason documents the transition that produced the event,
	// e.g. "activate => validate(inactive)".
	Reason string

	// After and Before are the real timestamps bracketing the inferred
	// event; either may be empty when that side of the gap is the
	// window boundary.
	After  string
	Before string
}

// DiagnosticCode classifies a reconciliation anomaly.
type DiagnosticCode string

const (
	// DiagCreationConflict means two validations for the same key
	// disagreed on the enrollment-creation timestamp.
	DiagCreationConflict DiagnosticCode = "creation_conflict"

	// DiagMissingValidation means RequireValidation was set but the
	// key had no validation event.
	DiagMissingValidation DiagnosticCode = "missing_validation"
)

// Diagnostic is a non-fatal anomaly observed during reconciliation.
type Diagnostic struct {
	Code   DiagnosticCode
	Detail string
}

// Result is the outcome of reconciling one (course, user) key.
type Result struct {
	// Synthesized holds the inferred events in scan order (newest gap
	// first, matching the newest-to-oldest pair walk).
	Synthesized []SynthesizedEvent

	// Diagnostics holds anomalies observed during the scan.
	Diagnostics []Diagnostic
}

// Reconcile infers the events missing from one (course, user) key's
// history.
//
// The input bag is sorted newest-first (compareEvents order, descending),
// a sentinel is appended as the artificial oldest element, and every
// adjacent pair is run through the transition rule table with the
// creation-timestamp accumulator threaded through the whole scan.
//
// Reconcile does not mutate its input and is a pure function of its
// arguments: reprocessing a key is equivalent to calling it again.
func Reconcile(courseID string, userID int, events []Event, opts Options) (Result, error) {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		return compareEvents(sorted[i], sorted[j]) > 0
	})
	sorted = append(sorted, sentinelEvent())

	st := &scanState{}
	var synthesized []SynthesizedEvent
	validationSeen := false

	// The final element is the sentinel; it is only ever a "prev".
	for i := 0; i < len(sorted)-1; i++ {
		curr, prev := sorted[i], sorted[i+1]
		if curr.Kind == KindValidated {
			validationSeen = true
		}
		missing, err := resolve(prev, curr, st, opts)
		if err != nil {
			return Result{}, fmt.Errorf("reconcile %s user %d: %w", courseID, userID, err)
		}
		synthesized = append(synthesized, missing...)
	}

	if opts.RequireValidation && !validationSeen && len(events) > 0 {
		st.diags = append(st.diags, Diagnostic{
			Code:   DiagMissingValidation,
			Detail: fmt.Sprintf("no validation event for user %d in course %s", userID, courseID),
		})
	}

	return Result{Synthesized: synthesized, Diagnostics: st.diags}, nil
}
