package enrollment

import "strings"

// Kind identifies the type of an enrollment event. The values are the
// event_type strings used in tracking logs, so parsed events carry their
// wire identity straight through to synthesized output.
type Kind string

const (
	KindActivated   Kind = "edx.course.enrollment.activated"
	KindDeactivated Kind = "edx.course.enrollment.deactivated"
	KindValidated   Kind = "edx.course.enrollment.validated"

	// KindSentinel marks the start of the analysis window. It is never
	// present in real input; Reconcile appends it as the artificial
	// oldest element of the scan.
	KindSentinel Kind = "edx.course.enrollment.sentinel"
)

// Event is one observed enrollment record for a (course, user) key.
//
// IsActive and Created are meaningful only when Kind is KindValidated:
// IsActive states whether the authoritative record shows the user
// currently enrolled, and Created is the authoritative
// enrollment-creation time as recorded at validation time. Both are
// unset for the other kinds.
type Event struct {
	// Timestamp is an ISO-8601 string with microsecond precision,
	// e.g. "2013-09-01T00:00:01.123456". Empty for the sentinel.
	Timestamp string

	Kind Kind

	// IsActive is nil except for validation events.
	IsActive *bool

	// Created is empty except for validation events.
	Created string
}

// active reports the validation's asserted state, treating nil as false.
func (e Event) active() bool {
	return e.IsActive != nil && *e.IsActive
}

// sentinelEvent returns the artificial oldest element of a scan:
// no timestamp, asserted inactive.
func sentinelEvent() Event {
	inactive := false
	return Event{Kind: KindSentinel, IsActive: &inactive}
}

// stateString names the enrollment state an event represents, as used in
// synthesized-event reason strings.
func stateString(e Event) string {
	switch e.Kind {
	case KindActivated:
		return "activate"
	case KindDeactivated:
		return "deactivate"
	case KindSentinel:
		return "start"
	case KindValidated:
		if e.active() {
			return "validate(active)"
		}
		return "validate(inactive)"
	default:
		return "unknown"
	}
}

// transitionString describes the transition from the older to the newer
// event of a pair, e.g. "activate => validate(inactive)".
func transitionString(prev, curr Event) string {
	return stateString(prev) + " => " + stateString(curr)
}

// compareEvents is the total order used to sort a key's events.
//
// Primary key is the timestamp (ISO-8601 strings order lexicographically
// as instants). Ties are broken by kind name, then is_active (absent <
// false < true), then created (absent/empty first). The tie-break is
// implementation-defined: when two events truly share a timestamp it
// only changes which of several equally valid synthesized events gets
// reported.
func compareEvents(a, b Event) int {
	if c := strings.Compare(a.Timestamp, b.Timestamp); c != 0 {
		return c
	}
	if c := strings.Compare(string(a.Kind), string(b.Kind)); c != 0 {
		return c
	}
	if c := compareBoolPtr(a.IsActive, b.IsActive); c != 0 {
		return c
	}
	return strings.Compare(a.Created, b.Created)
}

func compareBoolPtr(a, b *bool) int {
	rank := func(p *bool) int {
		switch {
		case p == nil:
			return 0
		case !*p:
			return 1
		default:
			return 2
		}
	}
	return rank(a) - rank(b)
}
