package notifications

import (
	"context"
	"encoding/json"
	"time"
)

// Dispatcher is the engine's outbound event port. Emission is fire-and-forget:
// callers persist their state change first and then emit, so a dispatcher
// failure can never roll back or masquerade as a failed state change.
type Dispatcher interface {
	Emit(ctx context.Context, eventType string, payload map[string]interface{}) error
	Close() error
}

// Envelope is the wire format published to Kafka: the event type plus an
// arbitrary JSON payload, matching what downstream workers unwrap.
type Envelope struct {
	EventType  string                 `json:"event_type"`
	Payload    map[string]interface{} `json:"payload"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// ToJSON serializes the envelope for publishing.
func (e *Envelope) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// PartitionKey picks a stable partitioning key so events for one aggregate
// stay ordered: booking_id, then court_id, then user_id, then the event type.
func (e *Envelope) PartitionKey() string {
	for _, k := range []string{"booking_id", "court_id", "user_id"} {
		if v, ok := e.Payload[k].(string); ok && v != "" {
			return v
		}
	}
	return e.EventType
}

// NopDispatcher swallows events; used in tests and when Kafka is unavailable.
type NopDispatcher struct{}

func (NopDispatcher) Emit(ctx context.Context, eventType string, payload map[string]interface{}) error {
	return nil
}

func (NopDispatcher) Close() error { return nil }
