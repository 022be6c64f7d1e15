package enrollment

import "fmt"

// scanState is the only cross-pair memory in the backward scan.
//
// creationTimestamp holds the enrollment-creation time reported by the
// most recently examined validation. Because the scan runs newest to
// oldest, the last assignment wins and ends up reflecting the
// chronologically earliest validation.
type scanState struct {
	creationTimestamp string
	diags             []Diagnostic
}

// observeValidation updates the creation timestamp from a validation
// event, recording a diagnostic when two validations disagree. Non-fatal:
// the scan continues with the newly observed (earlier) value.
func (st *scanState) observeValidation(curr Event) {
	if st.creationTimestamp != "" && curr.Created != st.creationTimestamp {
		st.diags = append(st.diags, Diagnostic{
			Code: DiagCreationConflict,
			Detail: fmt.Sprintf("validation creation timestamp changed: %s => %s",
				curr.Created, st.creationTimestamp),
		})
	}
	st.creationTimestamp = curr.Created
}

// kindPair tags one adjacent pair of the scan: curr is the
// chronologically newer event, prev the older one.
type kindPair struct {
	curr, prev Kind
}

// transitionFunc decides what events must be synthesized to make the
// transition from prev to curr consistent. Zero, one, or two events.
type transitionFunc func(prev, curr Event, st *scanState, opts Options) ([]SynthesizedEvent, error)

// transitionRules is the fixed rule table over (curr kind, prev kind).
// Pairs absent from the table are expected orderings and synthesize
// nothing: activate after deactivate/start, deactivate after activate.
var transitionRules = map[kindPair]transitionFunc{
	{KindValidated, KindValidated}:     validatedAfterValidated,
	{KindValidated, KindActivated}:     validatedAfterActivated,
	{KindValidated, KindDeactivated}:   validatedAfterDeactivated,
	{KindValidated, KindSentinel}:      validatedAfterSentinel,
	{KindActivated, KindValidated}:     activatedAfterValidated,
	{KindActivated, KindActivated}:     activatedAfterActivated,
	{KindDeactivated, KindValidated}:   deactivatedAfterValidated,
	{KindDeactivated, KindDeactivated}: deactivatedAfterDeactivated,
	{KindDeactivated, KindSentinel}:    deactivatedAfterSentinel,
}

// resolve runs one adjacent pair through the rule table, updating the
// scan state as a side effect when curr is a validation.
func resolve(prev, curr Event, st *scanState, opts Options) ([]SynthesizedEvent, error) {
	if curr.Kind == KindValidated {
		st.observeValidation(curr)
	}
	fn, ok := transitionRules[kindPair{curr.Kind, prev.Kind}]
	if !ok {
		return nil, nil
	}
	return fn(prev, curr, st, opts)
}

// gapBetween synthesizes a single event of the given kind strictly
// between the pair's timestamps.
func gapBetween(prev, curr Event, kind Kind) ([]SynthesizedEvent, error) {
	ts, err := PickGapTimestamp(prev.Timestamp, curr.Timestamp)
	if err != nil {
		return nil, err
	}
	return []SynthesizedEvent{{
		Timestamp: ts,
		Kind:      kind,
		Reason:    transitionString(prev, curr),
		After:     prev.Timestamp,
		Before:    curr.Timestamp,
	}}, nil
}

// Two validations disagree on state: the missing transition happened
// somewhere between them.
func validatedAfterValidated(prev, curr Event, _ *scanState, _ Options) ([]SynthesizedEvent, error) {
	switch {
	case curr.active() && !prev.active():
		return gapBetween(prev, curr, KindActivated)
	case !curr.active() && prev.active():
		return gapBetween(prev, curr, KindDeactivated)
	default:
		return nil, nil
	}
}

// An activation followed by an "inactive" validation implies a missed
// deactivation in between.
func validatedAfterActivated(prev, curr Event, _ *scanState, _ Options) ([]SynthesizedEvent, error) {
	if !curr.active() {
		return gapBetween(prev, curr, KindDeactivated)
	}
	return nil, nil
}

// A deactivation followed by an "active" validation implies a missed
// activation in between.
func validatedAfterDeactivated(prev, curr Event, _ *scanState, _ Options) ([]SynthesizedEvent, error) {
	if curr.active() {
		return gapBetween(prev, curr, KindActivated)
	}
	return nil, nil
}

// A validation is the oldest real event for the key, so the activation
// implied by its creation timestamp was never observed. When validating
// only within an interval and the creation time falls outside it, we
// cannot distinguish "missing" from "out of scope" and stay silent
// unless generation before the window is enabled.
func validatedAfterSentinel(prev, curr Event, st *scanState, opts Options) ([]SynthesizedEvent, error) {
	if st.creationTimestamp == "" {
		return nil, nil
	}
	if !opts.GenerateBefore && st.creationTimestamp < opts.LowerBoundDate {
		return nil, nil
	}

	reason := transitionString(prev, curr)
	activated := SynthesizedEvent{
		Timestamp: st.creationTimestamp,
		Kind:      KindActivated,
		Reason:    reason,
		After:     st.creationTimestamp,
		Before:    curr.Timestamp,
	}
	if curr.active() {
		return []SynthesizedEvent{activated}, nil
	}

	// The user is validated inactive with no events at all: both the
	// activation and the deactivation are missing.
	ts, err := PickGapTimestamp(st.creationTimestamp, curr.Timestamp)
	if err != nil {
		return nil, err
	}
	deactivated := SynthesizedEvent{
		Timestamp: ts,
		Kind:      KindDeactivated,
		Reason:    reason,
		After:     st.creationTimestamp,
		Before:    curr.Timestamp,
	}
	return []SynthesizedEvent{activated, deactivated}, nil
}

// An "active" validation followed by an activation implies a missed
// deactivation in between.
func activatedAfterValidated(prev, curr Event, _ *scanState, _ Options) ([]SynthesizedEvent, error) {
	if prev.active() {
		return gapBetween(prev, curr, KindDeactivated)
	}
	return nil, nil
}

// Two activations in a row imply a missed deactivation.
func activatedAfterActivated(prev, curr Event, _ *scanState, _ Options) ([]SynthesizedEvent, error) {
	return gapBetween(prev, curr, KindDeactivated)
}

// An "inactive" validation followed by a deactivation implies a missed
// activation in between.
func deactivatedAfterValidated(prev, curr Event, _ *scanState, _ Options) ([]SynthesizedEvent, error) {
	if !prev.active() {
		return gapBetween(prev, curr, KindActivated)
	}
	return nil, nil
}

// Two deactivations in a row imply a missed activation.
func deactivatedAfterDeactivated(prev, curr Event, _ *scanState, _ Options) ([]SynthesizedEvent, error) {
	return gapBetween(prev, curr, KindActivated)
}

// A deactivation is the oldest real event for the key. If a later
// validation supplied a creation timestamp that is usable (inside the
// window, or generation before the window is enabled), the missing
// activation is placed there. With no usable creation timestamp the
// activation can only be faked just before the deactivation, and only
// when generating before the window; otherwise stay silent.
func deactivatedAfterSentinel(prev, curr Event, st *scanState, opts Options) ([]SynthesizedEvent, error) {
	reason := transitionString(prev, curr)

	if st.creationTimestamp != "" &&
		(opts.GenerateBefore || st.creationTimestamp >= opts.LowerBoundDate) {
		return []SynthesizedEvent{{
			Timestamp: st.creationTimestamp,
			Kind:      KindActivated,
			Reason:    reason,
			After:     st.creationTimestamp,
			Before:    curr.Timestamp,
		}}, nil
	}

	if opts.GenerateBefore {
		ts, err := PickGapTimestamp("", curr.Timestamp)
		if err != nil {
			return nil, err
		}
		return []SynthesizedEvent{{
			Timestamp: ts,
			Kind:      KindActivated,
			Reason:    reason,
			Before:    curr.Timestamp,
		}}, nil
	}

	return nil, nil
}
