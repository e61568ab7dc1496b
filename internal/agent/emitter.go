package agent

import (
	"sync/atomic"
	"time"

	"github.com/parley-dev/parley/pkg/models"
)

// EventEmitter generates RunEvents with monotonic sequencing for one
// run. Progress events for a message always precede its terminal event,
// and terminal events follow the input message order because the
// runtime drives the emitter sequentially.
type EventEmitter struct {
	runID     string
	sessionID string
	sequence  uint64 // atomic counter for monotonic sequencing

	messageIndex int

	sink func(models.RunEvent)
}

// NewEventEmitter creates an emitter for a run. Every generated event
// is handed to sink in order.
func NewEventEmitter(runID, sessionID string, sink func(models.RunEvent)) *EventEmitter {
	return &EventEmitter{
		runID:     runID,
		sessionID: sessionID,
		sink:      sink,
	}
}

// SetMessageIndex updates the input message index attached to
// subsequent events.
func (e *EventEmitter) SetMessageIndex(i int) {
	e.messageIndex = i
}

func (e *EventEmitter) nextSeq() uint64 {
	return atomic.AddUint64(&e.sequence, 1)
}

func (e *EventEmitter) base(eventType models.RunEventType) models.RunEvent {
	return models.RunEvent{
		Version:      1,
		Type:         eventType,
		Time:         time.Now(),
		Sequence:     e.nextSeq(),
		RunID:        e.runID,
		SessionID:    e.sessionID,
		MessageIndex: e.messageIndex,
	}
}

func (e *EventEmitter) emit(event models.RunEvent) models.RunEvent {
	if e.sink != nil {
		e.sink(event)
	}
	return event
}

// RunStarted emits a run.started event.
func (e *EventEmitter) RunStarted() models.RunEvent {
	return e.emit(e.base(models.RunEventStarted))
}

// RunFinished emits a run.finished event.
func (e *EventEmitter) RunFinished() models.RunEvent {
	return e.emit(e.base(models.RunEventFinished))
}

// Thought emits a progress notification for the current message.
func (e *EventEmitter) Thought(thought string) models.RunEvent {
	event := e.base(models.RunEventThought)
	event.Thought = &models.ThoughtEventPayload{Thought: thought}
	return e.emit(event)
}

// MessageCompleted emits the terminal success event for the current
// message.
func (e *EventEmitter) MessageCompleted(msg models.Message, provider, model string, simulated bool) models.RunEvent {
	event := e.base(models.RunEventMessageCompleted)
	event.Response = &models.ResponseEventPayload{
		Message:   msg,
		Provider:  provider,
		Model:     model,
		Simulated: simulated,
	}
	return e.emit(event)
}

// MessageError emits the terminal error event for the current message.
func (e *EventEmitter) MessageError(kind, message string, retriable bool) models.RunEvent {
	event := e.base(models.RunEventMessageError)
	event.Error = &models.ErrorEventPayload{
		Message:   message,
		Kind:      kind,
		Retriable: retriable,
	}
	return e.emit(event)
}
