package enums

import "fmt"

// OutboxEventType is the canonical event_type stored on outbox rows.
type OutboxEventType string

const (
	EventRequestSubmitted  OutboxEventType = "request.submitted"
	EventRequestAssigned   OutboxEventType = "request.assigned"
	EventRequestAccepted   OutboxEventType = "request.accepted"
	EventRequestRejected   OutboxEventType = "request.rejected"
	EventRequestAdvanced   OutboxEventType = "request.advanced"
	EventRequestSLAExpired OutboxEventType = "request.sla_expired"
)

var validOutboxEventTypes = []OutboxEventType{
	EventRequestSubmitted,
	EventRequestAssigned,
	EventRequestAccepted,
	EventRequestRejected,
	EventRequestAdvanced,
	EventRequestSLAExpired,
}

// IsValid reports whether the value is a known OutboxEventType.
func (t OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts the raw string to OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxAggregateType names the aggregate an outbox row belongs to.
type OutboxAggregateType string

const (
	AggregateRequest OutboxAggregateType = "request"
)
