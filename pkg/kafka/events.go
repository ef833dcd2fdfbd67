package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope published to Kafka, CloudEvents-shaped so downstream
// consumers can route on type and source without decoding the payload.
type Event struct {
	SpecVersion   string          `json:"specversion"`
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Subject       string          `json:"subject"`
	Time          time.Time       `json:"time"`
	CorrelationID string          `json:"correlationId,omitempty"`
	ContentType   string          `json:"datacontenttype"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent wraps a payload in a publishable envelope.
func NewEvent(eventType, source, subject string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return &Event{
		SpecVersion: "1.0",
		ID:          uuid.New().String(),
		Type:        eventType,
		Source:      source,
		Subject:     subject,
		Time:        time.Now().UTC(),
		ContentType: "application/json",
		Data:        data,
	}, nil
}
