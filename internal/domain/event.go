package domain

import (
	"encoding/json"
	"maps"
)

// Event families. The tag is fixed per family and travels as the "type" field.
const (
	EventTypeTimer        = "timer"
	EventTypeSchedule     = "horaro"
	EventTypeAnnouncement = "announcement"
	EventTypeRaffle       = "raffle"
)

// Event is an immutable named occurrence emitted by a plugin at a state transition.
// It is passed by value to relay clients and never persisted.
type Event struct {
	name    string
	typ     string
	payload map[string]any
}

// NewEvent creates an event of the given family. The payload map is copied;
// values inside it must not be mutated afterwards.
func NewEvent(eventType, name string, payload map[string]any) Event {
	return Event{
		name:    name,
		typ:     eventType,
		payload: maps.Clone(payload),
	}
}

// NewTimerEvent creates a timer event ("start", "stop", "pause", ...) for the timer identified by timerID.
func NewTimerEvent(name, timerID string, state map[string]any) Event {
	payload := make(map[string]any, len(state)+1)
	maps.Copy(payload, state)
	payload["id"] = timerID
	return NewEvent(EventTypeTimer, name, payload)
}

// NewScheduleEvent creates a Horaro schedule event. item is the schedule row the event is about and may be nil.
func NewScheduleEvent(name, scheduleID string, item map[string]any) Event {
	payload := map[string]any{"schedule": scheduleID}
	if item != nil {
		payload["item"] = maps.Clone(item)
	}
	return NewEvent(EventTypeSchedule, name, payload)
}

func (e Event) Name() string { return e.name }
func (e Event) Type() string { return e.typ }

// Payload returns a copy of the family-specific fields.
func (e Event) Payload() map[string]any {
	return maps.Clone(e.payload)
}

// ToArray flattens the event into its wire representation: every payload field
// plus "name" and "type". The two reserved keys always win over payload fields.
func (e Event) ToArray() map[string]any {
	out := make(map[string]any, len(e.payload)+2)
	maps.Copy(out, e.payload)
	out["name"] = e.name
	out["type"] = e.typ
	return out
}

func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ToArray())
}
