// Package audit records security-relevant events. Emission is best effort:
// events are logged locally and handed to an asynchronous dispatcher, and a
// failing sink never surfaces to the caller.
package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Actions used across the portal.
const (
	ActionAuthEvent  = "auth_event"
	ActionUserAction = "user_action"
	ActionError      = "error_occurred"
)

type Event struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Action    string         `json:"action"`
	Event     string         `json:"event,omitempty"`
	SubjectID string         `json:"subjectId,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
	Error     string         `json:"error,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Recorder is what the rest of the portal depends on.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

type Auditor struct {
	log        zerolog.Logger
	dispatcher *Dispatcher
	now        func() time.Time
	newID      func() string
}

func NewAuditor(log zerolog.Logger, dispatcher *Dispatcher, newID func() string) *Auditor {
	return &Auditor{
		log:        log,
		dispatcher: dispatcher,
		now:        time.Now,
		newID:      newID,
	}
}

func (a *Auditor) Record(ctx context.Context, event Event) {
	if a == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = a.now().UTC()
	}
	if event.ID == "" && a.newID != nil {
		event.ID = a.newID()
	}
	if event.RequestID == "" {
		event.RequestID = RequestIDFrom(ctx)
	}

	a.log.Info().
		Str("action", event.Action).
		Str("event", event.Event).
		Str("subject_id", event.SubjectID).
		Str("request_id", event.RequestID).
		Fields(event.Metadata).
		Msg("audit")

	a.dispatcher.Emit(ctx, event)
}

// TrackAuthEvent records a session or sign-in lifecycle step.
func TrackAuthEvent(ctx context.Context, r Recorder, event string, userID string, meta map[string]any) {
	if r == nil {
		return
	}
	r.Record(ctx, Event{Action: ActionAuthEvent, Event: event, SubjectID: userID, Metadata: meta})
}

func TrackUserAction(ctx context.Context, r Recorder, action string, userID string, meta map[string]any) {
	if r == nil {
		return
	}
	r.Record(ctx, Event{Action: ActionUserAction, Event: action, SubjectID: userID, Metadata: meta})
}

func TrackError(ctx context.Context, r Recorder, err error, meta map[string]any) {
	if r == nil || err == nil {
		return
	}
	event := Event{Action: ActionError, Error: err.Error(), Metadata: meta}
	if name, ok := meta["action"].(string); ok {
		event.Event = name
	}
	r.Record(ctx, event)
}

type requestIDKey struct{}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
