package synthetic

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/enrollcheck/internal/enrollment"
	"github.com/roach88/enrollcheck/internal/eventlog"
)

// Emitter encodes one key's synthesized events into their external
// representation. Tuple mode produces flat tab-separated records;
// document mode produces JSON event documents via the factory. Both are
// keyed by the calendar date of the synthesized timestamp.
type Emitter struct {
	CourseID    string
	UserID      int
	EventOutput bool
	Factory     *Factory
}

// NewEmitter creates an emitter for one (course, user) key. The factory
// is only consulted in document mode.
func NewEmitter(courseID string, userID int, eventOutput bool, factory *Factory) *Emitter {
	return &Emitter{
		CourseID:    courseID,
		UserID:      userID,
		EventOutput: eventOutput,
		Factory:     factory,
	}
}

// Encode converts one synthesized event into its (date key, record)
// pair.
func (e *Emitter) Encode(ev enrollment.SynthesizedEvent) (datestamp, record string, err error) {
	if e.EventOutput {
		doc := e.Factory.Synthesized(e.CourseID, e.UserID, ev)
		encoded, err := json.Marshal(doc)
		if err != nil {
			return "", "", fmt.Errorf("encode synthesized event: %w", err)
		}
		return eventlog.Datestamp(ev.Timestamp), string(encoded), nil
	}

	fields := []string{
		e.CourseID,
		strconv.Itoa(e.UserID),
		ev.Timestamp,
		string(ev.Kind),
		ev.Reason,
		ev.After,
		ev.Before,
	}
	return eventlog.Datestamp(ev.Timestamp), strings.Join(fields, "\t"), nil
}
