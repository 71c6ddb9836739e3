package telemetry

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is one telemetry event emitted by the engine.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// OpID is the associated operation id, if any.
	OpID string `json:"op_id,omitempty"`

	// Package and Version identify the affected package, if any.
	Package string `json:"package,omitempty"`
	Version string `json:"version,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`
}

// Event types emitted by the lifecycle controller.
const (
	EventOperationStarted   = "operation.started"
	EventOperationCompleted = "operation.completed"
	EventOperationFailed    = "operation.failed"
	EventStepStarted        = "step.started"
	EventStepCompleted      = "step.completed"
	EventStepFailed         = "step.failed"
	EventVersionPublished   = "version.published"
	EventVersionRemoved     = "version.removed"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventPublisher fans events out to in-process subscribers. Publishing
// never blocks the operation: when the buffer is full the event is
// dropped.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []EventSubscriber
	mu          sync.RWMutex
	done        chan struct{}
	wg          sync.WaitGroup
}

// NewEventPublisher creates an event publisher. A disabled configuration
// yields a no-op instance.
func NewEventPublisher(cfg EventsConfig) *EventPublisher {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 64
	}
	ep := &EventPublisher{
		config: cfg,
		buffer: make(chan Event, size),
		done:   make(chan struct{}),
	}
	ep.wg.Add(1)
	go ep.dispatch()
	return ep
}

// Subscribe registers a subscriber for all subsequent events.
func (ep *EventPublisher) Subscribe(sub EventSubscriber) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.subscribers = append(ep.subscribers, sub)
}

// Publish emits an event, stamping its id and timestamp.
func (ep *EventPublisher) Publish(event Event) {
	if ep.buffer == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now().UTC()
	select {
	case ep.buffer <- event:
	default:
	}
}

// Close drains the buffer and stops dispatch.
func (ep *EventPublisher) Close() {
	if ep.buffer == nil {
		return
	}
	close(ep.done)
	ep.wg.Wait()
}

func (ep *EventPublisher) dispatch() {
	defer ep.wg.Done()
	for {
		select {
		case event := <-ep.buffer:
			ep.deliver(event)
		case <-ep.done:
			for {
				select {
				case event := <-ep.buffer:
					ep.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (ep *EventPublisher) deliver(event Event) {
	ep.mu.RLock()
	subs := ep.subscribers
	ep.mu.RUnlock()
	for _, sub := range subs {
		sub(event)
	}
}
