package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/parley-dev/parley/internal/observability"
	"github.com/parley-dev/parley/internal/sessions"
	"github.com/parley-dev/parley/pkg/models"
)

// RuntimeConfig configures the runtime.
type RuntimeConfig struct {
	// ResponseRole is the role label on terminal response messages.
	// Defaults to RoleAssistant.
	ResponseRole models.Role

	// PacingDelay is an optional fixed wait between the progress
	// notification and the provider call. Zero disables pacing.
	PacingDelay time.Duration

	// Logger for run diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics is optional; nil disables metric recording.
	Metrics *observability.Metrics
}

// sessionCounter is implemented by stores that can report how many
// sessions they hold, for the active-session gauge.
type sessionCounter interface {
	Sessions() int
}

// Runtime is the entry point the hosting dispatcher calls. It processes
// a batch of messages for one session sequentially, in input order,
// holding that session's lock for the whole batch so the provider call
// and history appends of one run never interleave with another run on
// the same session. Runs for distinct sessions proceed concurrently.
type Runtime struct {
	pipeline *Pipeline
	store    sessions.Store
	locker   *sessions.SessionLocker
	config   RuntimeConfig
	logger   *slog.Logger
}

// NewRuntime creates a runtime over the pipeline and its store.
func NewRuntime(pipeline *Pipeline, store sessions.Store, locker *sessions.SessionLocker, config RuntimeConfig) *Runtime {
	if config.ResponseRole == "" {
		config.ResponseRole = models.RoleAssistant
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runtime{
		pipeline: pipeline,
		store:    store,
		locker:   locker,
		config:   config,
		logger:   logger,
	}
}

// Process runs the batch and returns a finite event stream: run
// lifecycle events, at least one thought per non-empty message, and
// exactly one terminal event per non-empty message, in input order.
// Empty messages produce no events at all. The channel closes when the
// run completes; cancel ctx to abandon an unread stream.
func (r *Runtime) Process(ctx context.Context, sessionID string, input []models.Message) <-chan models.RunEvent {
	events := make(chan models.RunEvent, 16)
	go r.run(ctx, sessionID, input, events)
	return events
}

func (r *Runtime) run(ctx context.Context, sessionID string, input []models.Message, events chan<- models.RunEvent) {
	defer close(events)

	runID := uuid.NewString()
	sink := func(event models.RunEvent) {
		select {
		case events <- event:
		case <-ctx.Done():
		}
	}
	emitter := NewEventEmitter(runID, sessionID, sink)
	logger := r.logger.With("run_id", runID, "session_id", sessionID)

	emitter.RunStarted()
	defer emitter.RunFinished()

	release, err := r.locker.Acquire(ctx, sessionID)
	if err != nil {
		logger.Warn("session lock not acquired", "error", err)
		return
	}
	defer release()
	defer r.updateSessionGauge()

	for i, msg := range input {
		emitter.SetMessageIndex(i)

		text := ExtractText(msg)
		if text == "" {
			// Deliberate no-op: no turn, no invocation, no event.
			r.config.Metrics.RecordMessage("skipped")
			continue
		}

		emitter.Thought(r.thoughtText())
		if !r.pace(ctx) {
			logger.Warn("run abandoned during pacing", "message_index", i)
			return
		}

		result := r.pipeline.Invoke(ctx, sessionID, text)
		switch result.Kind {
		case ResultSuccess:
			r.config.Metrics.RecordMessage("completed")
			emitter.MessageCompleted(
				models.TextMessage(r.config.ResponseRole, result.Text),
				r.pipeline.Provider().Name(),
				r.pipeline.Model(),
				result.Simulated,
			)
		default:
			r.config.Metrics.RecordMessage("error")
			emitter.MessageError(string(result.Kind), UserFacingMessage(result), result.Kind.Retriable())
		}
	}
}

func (r *Runtime) thoughtText() string {
	model := r.pipeline.Model()
	if model == "" {
		return fmt.Sprintf("Processing request using the %s model...", r.pipeline.Provider().Name())
	}
	return fmt.Sprintf("Processing request using %s...", model)
}

// pace applies the optional fixed wait. Returns false if ctx ended.
func (r *Runtime) pace(ctx context.Context) bool {
	if r.config.PacingDelay <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-time.After(r.config.PacingDelay):
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *Runtime) updateSessionGauge() {
	if counter, ok := r.store.(sessionCounter); ok {
		r.config.Metrics.SetActiveSessions(counter.Sessions())
	}
}
