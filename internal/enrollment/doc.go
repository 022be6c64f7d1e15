// Package enrollment reconstructs gap-free course-enrollment histories.
//
// Input is the unordered bag of enrollment state-change events observed
// for a single (course, user) pair: explicit activations/deactivations
// plus periodic validation snapshots that assert the authoritative state
// and the original enrollment-creation time. Where the observed events
// contradict each other (two activations in a row, a validation that
// says "inactive" right after an activation, a validation with no
// preceding events at all), the events that must have occurred but were
// never recorded are synthesized.
//
// ALGORITHM:
//
// Events are sorted newest-first and a sentinel marking "no information
// before the window" is appended as the artificial oldest element. Every
// chronologically adjacent pair (older, newer) is then run through a
// fixed transition rule table (transition.go). Single cross-pair memory
// is the enrollment-creation timestamp reported by validations, threaded
// through the scan as an explicit accumulator.
//
// Synthesized events are placed one microsecond inside the known gap
// (timestamp.go), which preserves strict ordering against real events
// under the assumption that real events are never spaced closer than one
// microsecond apart.
//
// DETERMINISM:
//
// Reconcile is a pure function of its inputs. For a fixed input multiset
// the output is identical regardless of input order: sorting is total,
// with timestamp ties broken by kind, is_active, then created (see
// compareEvents). Anomalies are reported as structured diagnostics on
// the result rather than ambient log calls, so callers and tests can
// assert on them.
package enrollment
