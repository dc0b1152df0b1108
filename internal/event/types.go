package event

import (
	"encoding/json"
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	TurnCommitted     EventType = "turn.committed"
	SessionCleared    EventType = "session.cleared"
	SessionsCleared   EventType = "sessions.cleared"
	ReminderScheduled EventType = "reminder.scheduled"
	ReminderDue       EventType = "reminder.due"
	ResponseFailed    EventType = "response.failed"
)

// TurnCommittedData is the data for turn.committed events.
type TurnCommittedData struct {
	SessionID   string `json:"sessionID"`
	Personality string `json:"personality"`
	Mode        string `json:"mode"`
	Method      string `json:"method"`
	Turns       int    `json:"turns"`
}

// SessionClearedData is the data for session.cleared events.
type SessionClearedData struct {
	SessionID string `json:"sessionID"`
	Existed   bool   `json:"existed"`
}

// SessionsClearedData is the data for sessions.cleared events.
type SessionsClearedData struct {
	Count int `json:"count"`
}

// ReminderScheduledData is the data for reminder.scheduled events.
type ReminderScheduledData struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionID,omitempty"`
	Message   string    `json:"message"`
	DueAt     time.Time `json:"dueAt"`
}

// ReminderDueData is the data for reminder.due events. Response holds the
// companion's reply to the re-prompt when one was produced.
type ReminderDueData struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionID,omitempty"`
	Message   string `json:"message"`
	Response  string `json:"response,omitempty"`
}

// ResponseFailedData is the data for response.failed events.
type ResponseFailedData struct {
	SessionID string `json:"sessionID,omitempty"`
	Mode      string `json:"mode"`
	Error     string `json:"error"`
}

// payloadDecoders restores typed data for events that crossed the pubsub.
var payloadDecoders = map[EventType]func(json.RawMessage) (any, error){
	TurnCommitted:     decodeAs[TurnCommittedData],
	SessionCleared:    decodeAs[SessionClearedData],
	SessionsCleared:   decodeAs[SessionsClearedData],
	ReminderScheduled: decodeAs[ReminderScheduledData],
	ReminderDue:       decodeAs[ReminderDueData],
	ResponseFailed:    decodeAs[ResponseFailedData],
}

func decodeAs[T any](raw json.RawMessage) (any, error) {
	var v T
	if len(raw) == 0 || string(raw) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
