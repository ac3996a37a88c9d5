package metrics

import (
	"context"

	"github.com/osse101/DropTracker_Go/internal/event"
	"github.com/osse101/DropTracker_Go/internal/logger"
)

// EventMetricsCollector subscribes to run events and records metrics
type EventMetricsCollector struct {
	unsubscribe []event.Unsubscribe
}

// NewEventMetricsCollector creates a new event metrics collector
func NewEventMetricsCollector() *EventMetricsCollector {
	return &EventMetricsCollector{}
}

// Register subscribes to the run events
func (e *EventMetricsCollector) Register(bus event.Bus) {
	for _, eventType := range []event.Type{event.AccountReported, event.RunCompleted} {
		e.unsubscribe = append(e.unsubscribe, bus.Subscribe(eventType, e.HandleEvent))
	}
}

// Close removes every subscription made by Register
func (e *EventMetricsCollector) Close() {
	for _, unsub := range e.unsubscribe {
		unsub()
	}
	e.unsubscribe = nil
}

// HandleEvent processes events and updates metrics
func (e *EventMetricsCollector) HandleEvent(ctx context.Context, evt event.Event) error {
	log := logger.FromContext(ctx)

	EventsPublished.WithLabelValues(string(evt.Type)).Inc()

	if evt.Type == event.AccountReported {
		payload, err := event.DecodePayload[event.AccountReportedPayloadV1](evt.Payload)
		if err != nil {
			log.Debug(LogMsgEventPayloadInvalid, "type", evt.Type, "error", err)
			return nil
		}
		if payload.Error != "" {
			AccountsProcessed.WithLabelValues(ResultError).Inc()
		} else {
			AccountsProcessed.WithLabelValues(ResultOK).Inc()
		}
		switch {
		case payload.Available == nil:
			DropsFound.WithLabelValues(ResultUnknown).Inc()
		case *payload.Available:
			DropsFound.WithLabelValues("available").Inc()
		default:
			DropsFound.WithLabelValues("claimed").Inc()
		}
	}

	log.Debug(LogMsgMetricsRecorded, "type", evt.Type)
	return nil
}
