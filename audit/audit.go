// Package audit records association lifecycle and DIMSE operation outcomes
// as structured events, distinct from the line-oriented dicomlog trace
// already used by the protocol engine itself. A Sink is a pluggable
// destination for these events; ZerologSink writes structured lines via
// github.com/rs/zerolog, and NopSink discards events when none is set.
package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event is one audit record. ResourceUID is the SOP Instance UID for
// C-STORE, the SOP Class UID for C-ECHO/C-FIND/C-GET/C-MOVE.
type Event struct {
	AssociationID uuid.UUID
	Action        string // "associate", "release", "abort", "kill", "c-echo", "c-store", "c-find", "c-get", "c-move"
	ResourceUID   string
	Status        string // "success", "failure"
	ErrorMessage  string
	Duration      time.Duration
	Timestamp     time.Time
}

// Sink is implemented by anything that can durably or visibly record an
// Event. Implementations must not block the caller for long; the
// Association Runtime calls Record synchronously after every operation.
type Sink interface {
	Record(Event)
}

// ZerologSink writes one structured log line per event.
type ZerologSink struct {
	logger zerolog.Logger
}

// NewZerologSink wraps logger as a Sink.
func NewZerologSink(logger zerolog.Logger) *ZerologSink {
	return &ZerologSink{logger: logger}
}

func (s *ZerologSink) Record(e Event) {
	evt := s.logger.Info()
	if e.Status == "failure" {
		evt = s.logger.Warn()
	}
	evt.
		Str("association_id", e.AssociationID.String()).
		Str("action", e.Action).
		Str("resource_uid", e.ResourceUID).
		Str("status", e.Status).
		Dur("duration", e.Duration).
		Time("timestamp", e.Timestamp)
	if e.ErrorMessage != "" {
		evt.Str("error", e.ErrorMessage)
	}
	evt.Msg("dicom association event")
}

// NopSink discards every event; used by callers that have not configured
// an audit destination.
type NopSink struct{}

func (NopSink) Record(Event) {}
