package security

import (
	"time"

	"finplan-assistant/internal/common/logger"
	"finplan-assistant/internal/common/metrics"
)

// Event is a single security event as handed to the log sink. Events are
// write-only; nothing in the pipeline reads them back.
type Event struct {
	EventType string `json:"eventType"`
	Details   string `json:"details"`
	UserID    string `json:"userId,omitempty"`
	Timestamp string `json:"timestamp"`
}

// EventRecorder appends security events to the log sink. Recording is
// fire-and-forget and never blocks the request path.
type EventRecorder struct {
	logger logger.Logger
}

func NewEventRecorder(log logger.Logger) *EventRecorder {
	return &EventRecorder{
		logger: log.WithFields(map[string]interface{}{"component": "security"}),
	}
}

// Record logs one security event and bumps the per-type counter.
func (r *EventRecorder) Record(eventType, details, userID string) {
	event := Event{
		EventType: eventType,
		Details:   details,
		UserID:    userID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	metrics.SecurityViolations.WithLabelValues(eventType).Inc()

	r.logger.Warn("security event", map[string]interface{}{
		"eventType": event.EventType,
		"details":   event.Details,
		"userId":    event.UserID,
		"timestamp": event.Timestamp,
	})
}
