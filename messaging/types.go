package messaging

import (
	"encoding/json"
	"time"
)

// EventEnvelope is the wire form of one exported event. Consumers are
// home-automation layers and dashboards subscribed to the events topic.
type EventEnvelope struct {
	Type      string    `json:"type"`
	RobotID   string    `json:"robotId"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

func NewEventEnvelope(eventType, robotID string, payload any) *EventEnvelope {
	return &EventEnvelope{
		Type:      eventType,
		RobotID:   robotID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

func (e *EventEnvelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}
