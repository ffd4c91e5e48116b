package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventType tags a domain event on the wire. The set is closed: decoding
// rejects anything else with ErrUnknownEventType.
type EventType string

const (
	EventAppointmentCreated EventType = "AppointmentCreated"
	EventAppointmentDeleted EventType = "AppointmentDeleted"
	EventDetailCreated      EventType = "DetailCreated"
	EventDetailDeleted      EventType = "DetailDeleted"
)

// Codec failure modes. Consumers log these and acknowledge the message
// instead of crashing; see the consume loops.
var (
	ErrUnknownEventType = errors.New("unknown event type")
	ErrMalformedEvent   = errors.New("malformed event payload")
)

// Event is the closed set of domain events exchanged between services.
// The unexported marker keeps the set sealed so dispatchers can switch
// exhaustively over the concrete types.
type Event interface {
	EventType() EventType
	isEvent()
}

// AppointmentCreated announces a new appointment in the owning store.
type AppointmentCreated struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Time        string `json:"time"`
}

// AppointmentDeleted announces the removal of an appointment. Consumers
// cascade it to any details referencing the id.
type AppointmentDeleted struct {
	ID int64 `json:"id"`
}

// DetailCreated announces a new detail. Generated distinguishes details
// synthesized by the text-generation side effect from manual entries.
// The owning store's detail id is deliberately absent: replicas assign
// their own.
type DetailCreated struct {
	AppointmentID int64  `json:"appointmentId"`
	Text          string `json:"text"`
	Generated     bool   `json:"generated"`
}

// DetailDeleted announces the removal of a detail by the owning store's id.
type DetailDeleted struct {
	ID int64 `json:"id"`
}

func (AppointmentCreated) EventType() EventType { return EventAppointmentCreated }
func (AppointmentDeleted) EventType() EventType { return EventAppointmentDeleted }
func (DetailCreated) EventType() EventType      { return EventDetailCreated }
func (DetailDeleted) EventType() EventType      { return EventDetailDeleted }

func (AppointmentCreated) isEvent() {}
func (AppointmentDeleted) isEvent() {}
func (DetailCreated) isEvent()      {}
func (DetailDeleted) isEvent()      {}

// envelope is the wire shape shared by every event.
type envelope struct {
	EventType EventType       `json:"eventType"`
	Details   json.RawMessage `json:"details"`
}

// EncodeEvent serializes an event into its wire envelope.
func EncodeEvent(e Event) ([]byte, error) {
	if e == nil {
		return nil, ErrMalformedEvent
	}
	details, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event details: %w", err)
	}
	return json.Marshal(envelope{EventType: e.EventType(), Details: details})
}

// DecodeEvent parses a wire envelope into its typed event. Unknown tags
// return ErrUnknownEventType; payloads missing required fields return
// ErrMalformedEvent. Neither ever panics.
func DecodeEvent(body []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if len(env.Details) == 0 {
		return nil, fmt.Errorf("%w: missing details", ErrMalformedEvent)
	}

	switch env.EventType {
	case EventAppointmentCreated:
		var e AppointmentCreated
		if err := json.Unmarshal(env.Details, &e); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		if e.ID <= 0 {
			return nil, fmt.Errorf("%w: missing appointment id", ErrMalformedEvent)
		}
		return e, nil
	case EventAppointmentDeleted:
		var e AppointmentDeleted
		if err := json.Unmarshal(env.Details, &e); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		if e.ID <= 0 {
			return nil, fmt.Errorf("%w: missing appointment id", ErrMalformedEvent)
		}
		return e, nil
	case EventDetailCreated:
		var e DetailCreated
		if err := json.Unmarshal(env.Details, &e); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		if e.AppointmentID <= 0 {
			return nil, fmt.Errorf("%w: missing appointment id", ErrMalformedEvent)
		}
		return e, nil
	case EventDetailDeleted:
		var e DetailDeleted
		if err := json.Unmarshal(env.Details, &e); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		if e.ID <= 0 {
			return nil, fmt.Errorf("%w: missing detail id", ErrMalformedEvent)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, env.EventType)
	}
}
