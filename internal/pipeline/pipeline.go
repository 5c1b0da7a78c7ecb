// Package pipeline is the asynchronous request pipeline: an unbounded
// FIFO work queue feeding a single-consumer worker that drives each
// inbound event through history, prompt assembly, the completion
// gateway and the response assembler. Processing is strictly serial, so
// enqueue order is processing order and there is at most one in-flight
// model call.
package pipeline

import (
	"context"
	"time"

	"github.com/qmuntal/stateless"
	"github.com/sashabaranov/go-openai"

	"github.com/lousybook/lousybot-go/internal/assembler"
	"github.com/lousybook/lousybot-go/internal/history"
	"github.com/lousybook/lousybot-go/internal/llm"
	"github.com/lousybook/lousybot-go/internal/logger"
	"github.com/lousybook/lousybot-go/internal/mention"
	"github.com/lousybook/lousybot-go/internal/platform"
)

// FSM States
type FSMState stateless.State

var (
	StateReceived         FSMState = "Received"
	StateHistoryLoaded    FSMState = "HistoryLoaded"
	StatePromptBuilt      FSMState = "PromptBuilt"
	StateModelInvoked     FSMState = "ModelInvoked"
	StateRendered         FSMState = "Rendered"
	StateSuppressed       FSMState = "Suppressed"
	StateFailed           FSMState = "Failed"
	StateHistoryPersisted FSMState = "HistoryPersisted"
	StateAcknowledged     FSMState = "Acknowledged" // Terminal
)

// FSM Triggers
type FSMTrigger stateless.Trigger

var (
	TriggerReceived         FSMTrigger = "Received"
	TriggerHistoryLoaded    FSMTrigger = "HistoryLoaded"
	TriggerPromptBuilt      FSMTrigger = "PromptBuilt"
	TriggerModelInvoked     FSMTrigger = "ModelInvoked"
	TriggerRendered         FSMTrigger = "Rendered"
	TriggerSuppressed       FSMTrigger = "Suppressed"
	TriggerFailed           FSMTrigger = "Failed"
	TriggerHistoryPersisted FSMTrigger = "HistoryPersisted"
	TriggerAcknowledged     FSMTrigger = "Acknowledged"
)

// Options configures a Worker.
type Options struct {
	Queue         *Queue
	Store         *history.Store
	Gateway       *llm.Gateway
	Assembler     *assembler.Assembler
	Sink          platform.Sink
	Instructions  string
	Admins        mention.AdminList
	SelfID        string
	MaxHistory    int
	Dynamic       bool
	DisableStream bool
	Backoff       time.Duration
}

// Worker is the sole queue consumer. One event fully reaches
// Acknowledged before the next is dequeued.
type Worker struct {
	queue         *Queue
	store         *history.Store
	gateway       *llm.Gateway
	asm           *assembler.Assembler
	sink          platform.Sink
	instructions  string
	admins        mention.AdminList
	selfID        string
	maxHistory    int
	dynamic       bool
	disableStream bool
	backoff       time.Duration
}

// New creates a worker.
func New(opts Options) *Worker {
	backoff := opts.Backoff
	if backoff == 0 {
		backoff = 5 * time.Second
	}
	return &Worker{
		queue:         opts.Queue,
		store:         opts.Store,
		gateway:       opts.Gateway,
		asm:           opts.Assembler,
		sink:          opts.Sink,
		instructions:  opts.Instructions,
		admins:        opts.Admins,
		selfID:        opts.SelfID,
		maxHistory:    opts.MaxHistory,
		dynamic:       opts.Dynamic,
		disableStream: opts.DisableStream,
		backoff:       backoff,
	}
}

// Run dequeues and processes events until the context is cancelled. No
// per-event failure escapes; a scheduler-level fault pauses briefly and
// resumes rather than terminating the loop.
func (w *Worker) Run(ctx context.Context) {
	logger.L.Info("pipeline worker started")
	for {
		ev, err := w.queue.Dequeue(ctx)
		if err != nil {
			logger.L.Info("pipeline worker stopping", "reason", err)
			return
		}
		w.process(ctx, ev)
	}
}

func (w *Worker) process(ctx context.Context, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.L.Error("panic while processing event", "event", ev.ID, "panic", r)
			time.Sleep(w.backoff)
		}
	}()
	w.handle(ctx, ev)
}

// handle drives one event through the per-event state machine:
// Received → HistoryLoaded → PromptBuilt → ModelInvoked →
// {Rendered | Suppressed | Failed} → HistoryPersisted → Acknowledged.
// Every outcome acknowledges; failed events are never retried.
func (w *Worker) handle(ctx context.Context, ev Event) {
	type fsmContext struct {
		entries   []history.Entry
		messages  []openai.ChatCompletionMessage
		syncText  string
		deltas    llm.DeltaStream
		result    assembler.Result
		lastError error
	}
	fc := &fsmContext{}

	fsm := stateless.NewStateMachine(StateReceived)

	fsm.Configure(StateReceived).
		PermitReentry(TriggerReceived). // entry actions only run on a transition, so the initial fire re-enters
		OnEntry(func(ctx context.Context, _ ...any) error {
			// Read failure degrades to empty history inside the store.
			fc.entries = w.store.Load(ev.ConversationID)
			return fsm.FireCtx(ctx, TriggerHistoryLoaded)
		}).
		Permit(TriggerHistoryLoaded, StateHistoryLoaded).
		Permit(TriggerFailed, StateFailed)

	fsm.Configure(StateHistoryLoaded).
		OnEntry(func(ctx context.Context, _ ...any) error {
			// Persist the user turn before the model call so it survives
			// a failed turn. The raw text is stored; mention rewriting
			// happens only at prompt-build time.
			fc.entries = history.Append(fc.entries, history.UserTurn(ev.AuthorName, ev.AuthorTag, ev.AuthorID, ev.Content), w.maxHistory)
			if err := w.store.Save(ev.ConversationID, fc.entries); err != nil {
				logger.L.Warn("user turn not durable, continuing", "event", ev.ID, "error", err)
			}
			fc.messages = w.buildMessages(fc.entries, ev.Scope)
			return fsm.FireCtx(ctx, TriggerPromptBuilt)
		}).
		Permit(TriggerPromptBuilt, StatePromptBuilt).
		Permit(TriggerFailed, StateFailed)

	fsm.Configure(StatePromptBuilt).
		OnEntry(func(ctx context.Context, _ ...any) error {
			if w.disableStream {
				text, err := w.gateway.CompleteSync(ctx, fc.messages)
				if err != nil {
					fc.lastError = err
					return fsm.FireCtx(ctx, TriggerFailed)
				}
				fc.syncText = text
			} else {
				deltas, err := w.gateway.CompleteStream(ctx, fc.messages)
				if err != nil {
					fc.lastError = err
					return fsm.FireCtx(ctx, TriggerFailed)
				}
				fc.deltas = deltas
			}
			return fsm.FireCtx(ctx, TriggerModelInvoked)
		}).
		Permit(TriggerModelInvoked, StateModelInvoked).
		Permit(TriggerFailed, StateFailed)

	fsm.Configure(StateModelInvoked).
		OnEntry(func(ctx context.Context, _ ...any) error {
			var err error
			if w.disableStream {
				fc.result, err = w.asm.RunSync(ctx, ev.ConversationID, fc.syncText, ev.Scope)
			} else {
				fc.result, err = w.asm.RunStream(ctx, ev.ConversationID, fc.deltas, ev.Scope)
			}
			if err != nil {
				fc.lastError = err
				return fsm.FireCtx(ctx, TriggerFailed)
			}
			if fc.result.Outcome == assembler.Suppressed {
				return fsm.FireCtx(ctx, TriggerSuppressed)
			}
			return fsm.FireCtx(ctx, TriggerRendered)
		}).
		Permit(TriggerRendered, StateRendered).
		Permit(TriggerSuppressed, StateSuppressed).
		Permit(TriggerFailed, StateFailed)

	fsm.Configure(StateRendered).
		OnEntry(func(ctx context.Context, _ ...any) error {
			if fc.result.Outcome != assembler.Empty && fc.result.Raw != "" {
				fc.entries = history.Append(fc.entries, history.AssistantTurn(fc.result.Raw), w.maxHistory)
				if err := w.store.Save(ev.ConversationID, fc.entries); err != nil {
					logger.L.Warn("assistant turn not persisted", "event", ev.ID, "error", err)
				}
			}
			return fsm.FireCtx(ctx, TriggerHistoryPersisted)
		}).
		Permit(TriggerHistoryPersisted, StateHistoryPersisted)

	fsm.Configure(StateSuppressed).
		OnEntry(func(ctx context.Context, _ ...any) error {
			// History stays untouched for a suppressed turn (beyond the
			// already-persisted user turn).
			logger.L.Info("response suppressed", "event", ev.ID, "conversation", ev.ConversationID)
			return fsm.FireCtx(ctx, TriggerHistoryPersisted)
		}).
		Permit(TriggerHistoryPersisted, StateHistoryPersisted)

	fsm.Configure(StateFailed).
		OnEntry(func(ctx context.Context, _ ...any) error {
			logger.L.Error("event processing failed", "event", ev.ID, "conversation", ev.ConversationID, "error", fc.lastError)
			if !fc.result.Notified {
				if _, err := w.sink.Send(ctx, ev.ConversationID, assembler.ErrorText); err != nil {
					logger.L.Error("failed to deliver error message", "event", ev.ID, "error", err)
				}
			}
			return fsm.FireCtx(ctx, TriggerHistoryPersisted)
		}).
		Permit(TriggerHistoryPersisted, StateHistoryPersisted)

	fsm.Configure(StateHistoryPersisted).
		OnEntry(func(ctx context.Context, _ ...any) error {
			return fsm.FireCtx(ctx, TriggerAcknowledged)
		}).
		Permit(TriggerAcknowledged, StateAcknowledged)

	fsm.Configure(StateAcknowledged).
		OnEntry(func(ctx context.Context, _ ...any) error {
			logger.L.Debug("event acknowledged", "event", ev.ID, "conversation", ev.ConversationID)
			return nil
		})

	if err := fsm.FireCtx(ctx, TriggerReceived); err != nil {
		logger.L.Error("pipeline state machine error", "event", ev.ID, "error", err)
	}

	state, err := fsm.State(ctx)
	if err != nil || state != StateAcknowledged {
		logger.L.Warn("event ended in unexpected state", "event", ev.ID, "state", state, "error", err)
	}
}
