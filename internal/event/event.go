package event

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Type represents the type of an event
type Type string

// Event represents a generic event in the system
type Event struct {
	Version  string         `json:"version"`
	Type     Type           `json:"type"`
	Payload  interface{}    `json:"payload"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// GetMetadataValue extracts a value from the event metadata safely
func (e Event) GetMetadataValue(key string) interface{} {
	if e.Metadata == nil {
		return nil
	}
	return e.Metadata[key]
}

// Platform connection events. They are delivered sequentially on the connection's own bus.
const (
	Connected    Type = "platform.connected"
	Disconnected Type = "platform.disconnected"
	LoggedOn     Type = "platform.logged_on"
	AccountInfo  Type = "platform.account_info"
)

// Run events, published by the pipeline for observers such as the notifier.
const (
	AccountReported Type = "run.account_reported"
	RunCompleted    Type = "run.completed"
)

// DisconnectedPayloadV1 is the typed payload for disconnect events
type DisconnectedPayloadV1 struct {
	UserInitiated bool `json:"user_initiated"`
}

// ParentalSettings is the opaque parental-control blob attached to a logon.
type ParentalSettings struct {
	Enabled bool   `json:"enabled"`
	Raw     string `json:"raw,omitempty"`
}

// LoggedOnPayloadV1 is the typed payload for logon outcome events
type LoggedOnPayloadV1 struct {
	Result         int               `json:"result"`
	ExtendedResult int               `json:"extended_result"`
	SteamID        uint64            `json:"steam_id"`
	SessionID      int32             `json:"session_id"`
	Parental       *ParentalSettings `json:"parental,omitempty"`
}

// AccountInfoPayloadV1 is the typed payload for account info events
type AccountInfoPayloadV1 struct {
	PersonaName string `json:"persona_name"`
}

// AccountReportedPayloadV1 summarises one account's pipeline result.
type AccountReportedPayloadV1 struct {
	Label     string `json:"label"`
	Summary   string `json:"summary"`
	Available *bool  `json:"available,omitempty"`
	Error     string `json:"error,omitempty"`
}

// RunCompletedPayloadV1 is published once all accounts of a run have finished.
type RunCompletedPayloadV1 struct {
	RunID     string    `json:"run_id"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Report    string    `json:"report"`
	Finished  time.Time `json:"finished"`
}

// NewConnectedEvent creates a connected event
func NewConnectedEvent() Event {
	return Event{Version: EventSchemaVersion, Type: Connected}
}

// NewDisconnectedEvent creates a disconnected event
func NewDisconnectedEvent(userInitiated bool) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    Disconnected,
		Payload: DisconnectedPayloadV1{UserInitiated: userInitiated},
	}
}

// NewLoggedOnEvent creates a logon outcome event
func NewLoggedOnEvent(payload LoggedOnPayloadV1) Event {
	return Event{Version: EventSchemaVersion, Type: LoggedOn, Payload: payload}
}

// NewAccountInfoEvent creates an account info event
func NewAccountInfoEvent(personaName string) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    AccountInfo,
		Payload: AccountInfoPayloadV1{PersonaName: personaName},
	}
}

// NewAccountReportedEvent creates an account reported event
func NewAccountReportedEvent(runID string, payload AccountReportedPayloadV1) Event {
	return Event{
		Version:  EventSchemaVersion,
		Type:     AccountReported,
		Payload:  payload,
		Metadata: map[string]any{"run_id": runID},
	}
}

// NewRunCompletedEvent creates a run completed event
func NewRunCompletedEvent(payload RunCompletedPayloadV1) Event {
	return Event{
		Version:  EventSchemaVersion,
		Type:     RunCompleted,
		Payload:  payload,
		Metadata: map[string]any{"run_id": payload.RunID},
	}
}

// Handler is a function that handles an event
type Handler func(ctx context.Context, event Event) error

// Unsubscribe removes a handler. Calling it more than once is a no-op.
type Unsubscribe func()

// Bus defines the interface for an event bus
type Bus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType Type, handler Handler) Unsubscribe
}

type subscription struct {
	id      uint64
	handler Handler
}

// MemoryBus is an in-memory implementation of the Event Bus
type MemoryBus struct {
	handlers map[Type][]subscription
	nextID   uint64
	mu       sync.RWMutex
}

// NewMemoryBus creates a new MemoryBus
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		handlers: make(map[Type][]subscription),
	}
}

// Publish delivers the event to every subscriber in subscription order.
// Handlers run on the caller's goroutine.
func (b *MemoryBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	subs := append([]subscription(nil), b.handlers[event.Type]...)
	b.mu.RUnlock()

	if len(subs) == 0 {
		return nil
	}

	var errs []error
	for _, sub := range subs {
		if err := sub.handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf(LogMsgHandlerErrorFormat, len(errs), event.Type, errs)
	}

	return nil
}

// Subscribe subscribes a handler to an event type
func (b *MemoryBus) Subscribe(eventType Type, handler Handler) Unsubscribe {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[eventType] = append(b.handlers[eventType], subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(eventType, id) })
	}
}

func (b *MemoryBus) remove(eventType Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[eventType]
	for i, sub := range subs {
		if sub.id == id {
			b.handlers[eventType] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.handlers[eventType]) == 0 {
		delete(b.handlers, eventType)
	}
}

// SubscriberCount reports how many handlers are attached to eventType.
func (b *MemoryBus) SubscriberCount(eventType Type) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}
