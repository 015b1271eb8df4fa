package telemetry

import (
	"context"
	"time"
)

// Event is one authentication telemetry event (e.g. a decision outcome or
// a two-factor issue). Reason carries the internal fine-grained cause and
// never reaches callers; it only flows to the operator's log pipeline.
type Event struct {
	IdentityID string
	Mechanism  string
	Outcome    string
	Reason     string
	Platform   string
	IP         string
	EventType  string
	Source     string
	Metadata   []byte
	CreatedAt  time.Time
}

// EventEmitter emits telemetry events (e.g. to OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}
