package synthetic

import (
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/enrollcheck/internal/enrollment"
)

// IDGenerator generates event IDs for synthesized documents.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 event IDs.
//
// Stateless and safe for concurrent use. Panics if UUID generation
// fails, which does not happen in practice.
type UUIDv7Generator struct{}

func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined IDs for deterministic tests and
// golden-file comparison.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns the given IDs in
// order, then panics when exhausted (fail fast on fixture drift).
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.ids) {
		panic("synthetic: fixed ID generator exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// SequenceGenerator numbers IDs from a prefix: "prefix-1", "prefix-2", …
// Handy when a test does not care about exact IDs, only determinism.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return g.prefix + "-" + strconv.Itoa(g.n)
}

// Document is a full enrollment event document in tracking-log shape.
type Document struct {
	EventID     string      `json:"event_id"`
	EventType   string      `json:"event_type"`
	EventSource string      `json:"event_source"`
	Time        string      `json:"time"`
	Context     Context     `json:"context"`
	Event       Payload     `json:"event"`
	Synthesized *Provenance `json:"synthesized,omitempty"`
}

// Context carries the request-context fields downstream consumers key on.
type Context struct {
	CourseID string `json:"course_id"`
	OrgID    string `json:"org_id"`
	UserID   int    `json:"user_id"`
}

// Payload is the event-specific payload of an enrollment event.
type Payload struct {
	CourseID string `json:"course_id"`
	UserID   int    `json:"user_id"`
	Mode     string `json:"mode,omitempty"`
	IsActive *bool  `json:"is_active,omitempty"`
	Created  string `json:"created,omitempty"`
}

// Provenance records which synthesizer produced the event and why,
// with the real timestamps bracketing the inferred one when known.
type Provenance struct {
	Synthesizer string `json:"synthesizer"`
	Reason      string `json:"reason"`
	AfterTime   string `json:"after_time,omitempty"`
	BeforeTime  string `json:"before_time,omitempty"`
}

// Factory stamps synthesized event documents with a common source and
// synthesizer name, filling identity fields from its ID generator.
type Factory struct {
	Synthesizer string
	EventSource string
	IDs         IDGenerator
}

// NewFactory creates a factory producing server-sourced documents with
// UUIDv7 event IDs.
func NewFactory(synthesizer string) *Factory {
	return &Factory{
		Synthesizer: synthesizer,
		EventSource: "server",
		IDs:         UUIDv7Generator{},
	}
}

// Synthesized builds the document form of one inferred enrollment event.
func (f *Factory) Synthesized(courseID string, userID int, ev enrollment.SynthesizedEvent) Document {
	courseID = NormalizeCourseKey(courseID)
	return Document{
		EventID:     f.IDs.Generate(),
		EventType:   string(ev.Kind),
		EventSource: f.EventSource,
		Time:        ev.Timestamp,
		Context: Context{
			CourseID: courseID,
			OrgID:    OrgID(courseID),
			UserID:   userID,
		},
		Event: Payload{
			CourseID: courseID,
			UserID:   userID,
		},
		Synthesized: &Provenance{
			Synthesizer: f.Synthesizer,
			Reason:      ev.Reason,
			AfterTime:   ev.After,
			BeforeTime:  ev.Before,
		},
	}
}

// Validation builds a validation event document asserting the
// authoritative enrollment state observed at the given time. Used when
// converting database snapshots into event logs.
func (f *Factory) Validation(courseID string, userID int, observedAt, mode string, isActive bool, created, reason string) Document {
	courseID = NormalizeCourseKey(courseID)
	return Document{
		EventID:     f.IDs.Generate(),
		EventType:   string(enrollment.KindValidated),
		EventSource: f.EventSource,
		Time:        observedAt,
		Context: Context{
			CourseID: courseID,
			OrgID:    OrgID(courseID),
			UserID:   userID,
		},
		Event: Payload{
			CourseID: courseID,
			UserID:   userID,
			Mode:     mode,
			IsActive: &isActive,
			Created:  created,
		},
		Synthesized: &Provenance{
			Synthesizer: f.Synthesizer,
			Reason:      reason,
		},
	}
}

// NormalizeCourseKey NFC-normalizes a course id so that visually
// identical keys group together regardless of how the emitter encoded
// them.
func NormalizeCourseKey(courseID string) string {
	return norm.NFC.String(courseID)
}

// OrgID extracts the organization from a course id: the part before the
// first slash for legacy "org/course/run" keys, or between the colon
// and the first plus for "course-v1:Org+Course+Run" keys.
func OrgID(courseID string) string {
	if rest, ok := strings.CutPrefix(courseID, "course-v1:"); ok {
		org, _, _ := strings.Cut(rest, "+")
		return org
	}
	org, _, _ := strings.Cut(courseID, "/")
	return org
}

// FilenameSafeCourseID flattens a course id for use in output
// filenames: every character outside [A-Za-z0-9.] becomes an
// underscore.
func FilenameSafeCourseID(courseID string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.':
			return r
		default:
			return '_'
		}
	}, courseID)
}
