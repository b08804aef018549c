package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Domain event types. They double as AMQP routing keys.
const (
	EventBudgetAlertCreated = "budget.alert.created"
	EventTransferCompleted  = "transfer.completed"
	EventTransferFailed     = "transfer.failed"
	EventIncomeDeposited    = "income.deposited"
	EventCalendarReminder   = "calendar.reminder"
)

// EventMessage is the envelope every domain event travels in. Payload holds
// the event-specific body, typically the affected entity.
type EventMessage struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OwnerID    string          `json:"owner_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEventMessage wraps payload in an envelope with a fresh message ID.
func NewEventMessage(eventType, owner string, payload any) (*EventMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &EventMessage{
		ID:         uuid.NewString(),
		Type:       eventType,
		OwnerID:    owner,
		OccurredAt: time.Now().UTC(),
		Payload:    body,
	}, nil
}

// ToJSON converts the message to JSON bytes
func (m *EventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Decode unmarshals the payload into v.
func (m *EventMessage) Decode(v any) error {
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Type, err)
	}
	return nil
}

// EventMessageFromJSON parses an envelope from JSON bytes.
func EventMessageFromJSON(data []byte) (*EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("event message without type")
	}
	return &msg, nil
}
