// Package notify fans order service change events out to live subscribers
// and downstream systems.
//
// Every sink carries the same envelope, {"type": ..., "payload": ...}, so a
// consumer can switch on type regardless of transport.
package notify

import (
	"encoding/json"
	"fmt"
)

type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func NewEvent(eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Event{Type: eventType, Payload: raw}, nil
}
