// Package assembler turns model output, whole or streamed, into an
// ordered sequence of platform send/edit operations under the size,
// cadence and suppression rules.
package assembler

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/lousybook/lousybot-go/internal/llm"
	"github.com/lousybook/lousybot-go/internal/logger"
	"github.com/lousybook/lousybot-go/internal/mention"
	"github.com/lousybook/lousybot-go/internal/platform"
)

// SuppressMarker is the reserved token a dynamic-mode model emits to
// decline answering.
const SuppressMarker = "///noresponse"

const (
	placeholderText = "🤔 Thinking..."
	apologyText     = "😅 I couldn't come up with a response for that."

	// ErrorText is the generic user-visible failure message.
	ErrorText = "😵‍💫 Oops! Something went wrong while processing your request."
)

// Outcome tags how a response turn ended.
type Outcome int

const (
	// Rendered: content was delivered through the normal send/edit path.
	Rendered Outcome = iota
	// FallbackSent: an edit failed transiently and delivery continued on
	// a fresh message.
	FallbackSent
	// Suppressed: dynamic mode detected the marker; nothing was shown
	// and history must stay untouched.
	Suppressed
	// Empty: the model produced no content; the apology was shown.
	Empty
)

// Result is the tagged outcome of one assembled response. Raw holds the
// unresolved accumulated text for history persistence. Notified is set
// when a user-visible failure message was already delivered, so the
// caller must not send another.
type Result struct {
	Outcome  Outcome
	Raw      string
	Notified bool
}

// Assembler renders responses for one configured mode and cadence. It is
// stateless across turns; all per-turn state is local to a run.
type Assembler struct {
	sink          platform.Sink
	dynamic       bool
	charThreshold int
	interval      time.Duration
	now           func() time.Time
}

// New builds an assembler. charThreshold zero renders on every delta;
// interval is the render deadline between cadence triggers.
func New(sink platform.Sink, dynamic bool, charThreshold int, interval time.Duration) *Assembler {
	return &Assembler{
		sink:          sink,
		dynamic:       dynamic,
		charThreshold: charThreshold,
		interval:      interval,
		now:           time.Now,
	}
}

// RunSync resolves the full text once, splits it to the size rule and
// sends each chunk in order (never edits).
func (a *Assembler) RunSync(ctx context.Context, conversationID, text string, scope mention.Scope) (Result, error) {
	if a.dynamic {
		if strings.HasPrefix(strings.TrimSpace(text), SuppressMarker) {
			logger.L.Info("dynamic response suppressed", "conversation", conversationID)
			return Result{Outcome: Suppressed}, nil
		}
		text = strings.TrimSpace(strings.Replace(text, SuppressMarker, "", 1))
	}
	if strings.TrimSpace(text) == "" {
		if _, err := a.sink.Send(ctx, conversationID, apologyText); err != nil {
			return Result{Outcome: Empty}, err
		}
		return Result{Outcome: Empty}, nil
	}
	resolved := mention.Resolve(text, scope)
	for _, chunk := range Split(resolved) {
		if _, err := a.sink.Send(ctx, conversationID, chunk); err != nil {
			return Result{Raw: text}, err
		}
	}
	return Result{Outcome: Rendered, Raw: text}, nil
}

// RunStream consumes the delta sequence and renders it incrementally
// against one mutable message, re-resolving the whole accumulation on
// every render so resolution stays idempotent as the text grows.
func (a *Assembler) RunStream(ctx context.Context, conversationID string, deltas llm.DeltaStream, scope mention.Scope) (Result, error) {
	defer deltas.Close()

	var handle *platform.MessageRef
	fellBack := false

	// Non-dynamic mode shows the working placeholder eagerly; dynamic
	// mode creates the message lazily on first accepted content.
	if !a.dynamic {
		if ref, err := a.sink.Send(ctx, conversationID, placeholderText); err != nil {
			logger.L.Warn("failed to send placeholder message", "conversation", conversationID, "error", err)
		} else {
			handle = &ref
		}
	}

	var (
		acc         string
		base        int // start of the open message's content within acc
		renderedLen int // length of acc at the last render
		checked     = !a.dynamic
		lastRender  = a.now()
	)

	for {
		delta, err := deltas.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			notified := false
			if handle != nil {
				if editErr := a.sink.Edit(ctx, *handle, ErrorText); editErr == nil {
					notified = true
				} else {
					logger.L.Warn("failed to surface stream error on message", "conversation", conversationID, "error", editErr)
				}
			}
			return Result{Raw: acc, Notified: notified}, err
		}
		if delta == "" {
			continue
		}
		acc += delta

		if !checked {
			trimmed := strings.TrimLeft(acc, " \t\r\n")
			if trimmed == "" {
				continue
			}
			// Not enough text yet to tell the marker from a prefix of it.
			if len(trimmed) < len(SuppressMarker) && strings.HasPrefix(SuppressMarker, trimmed) {
				continue
			}
			if strings.HasPrefix(trimmed, SuppressMarker) {
				logger.L.Info("dynamic response suppressed", "conversation", conversationID)
				if handle != nil {
					if err := a.sink.Delete(ctx, *handle); err != nil {
						logger.L.Warn("failed to delete placeholder", "conversation", conversationID, "error", err)
					}
				}
				drain(deltas)
				return Result{Outcome: Suppressed}, nil
			}
			checked = true
		}
		if a.dynamic && strings.Contains(acc[base:], SuppressMarker) {
			// Marker resurfacing mid-stream is stripped, never shown.
			acc = acc[:base] + strings.ReplaceAll(acc[base:], SuppressMarker, "")
			if renderedLen > len(acc) {
				renderedLen = len(acc)
			}
		}

		base, handle, fellBack = a.flushFull(ctx, conversationID, acc, base, handle, fellBack, scope)
		if base > renderedLen {
			renderedLen = base
		}

		unrendered := len(acc) - renderedLen
		if a.charThreshold == 0 || unrendered >= a.charThreshold || a.now().Sub(lastRender) >= a.interval {
			if content := mention.Resolve(acc[base:], scope); content != "" {
				handle, fellBack = a.push(ctx, conversationID, handle, content, fellBack)
				renderedLen = len(acc)
				lastRender = a.now()
			}
		}
	}

	if strings.TrimSpace(acc) == "" {
		if handle != nil {
			if err := a.sink.Edit(ctx, *handle, apologyText); err != nil {
				logger.L.Warn("failed to edit apology message", "conversation", conversationID, "error", err)
			}
		} else if _, err := a.sink.Send(ctx, conversationID, apologyText); err != nil {
			logger.L.Warn("failed to send apology message", "conversation", conversationID, "error", err)
		}
		logger.L.Warn("stream finished with no content", "conversation", conversationID)
		return Result{Outcome: Empty}, nil
	}

	// Final pass over the complete text.
	base, handle, fellBack = a.flushFull(ctx, conversationID, acc, base, handle, fellBack, scope)
	if content := mention.Resolve(acc[base:], scope); content != "" {
		_, fellBack = a.push(ctx, conversationID, handle, content, fellBack)
	}

	outcome := Rendered
	if fellBack {
		outcome = FallbackSent
	}
	return Result{Outcome: outcome, Raw: acc}, nil
}

// flushFull finalizes any portion of the open segment that can no longer
// fit in one message: each full chunk is rendered into the current
// handle and the handle is retired so later content opens a new message.
func (a *Assembler) flushFull(ctx context.Context, conversationID, acc string, base int, handle *platform.MessageRef, fellBack bool, scope mention.Scope) (int, *platform.MessageRef, bool) {
	for len(acc)-base > SoftLimit {
		seg := acc[base:]
		cut := splitPoint(seg, flushFloor, SoftLimit)
		part := mention.Resolve(seg[:cut], scope)
		handle, fellBack = a.push(ctx, conversationID, handle, part, fellBack)
		handle = nil
		base += cut
	}
	return base, handle, fellBack
}

// push delivers content to the open message: an edit when a handle
// exists, a send otherwise. A transient edit failure falls back to a
// fresh send and continues edits against that message.
func (a *Assembler) push(ctx context.Context, conversationID string, handle *platform.MessageRef, content string, fellBack bool) (*platform.MessageRef, bool) {
	if content == "" {
		return handle, fellBack
	}
	if handle == nil {
		ref, err := a.sink.Send(ctx, conversationID, content)
		if err != nil {
			logger.L.Warn("failed to send message chunk", "conversation", conversationID, "error", err)
			return nil, fellBack
		}
		return &ref, fellBack
	}
	if err := a.sink.Edit(ctx, *handle, content); err != nil {
		if platform.IsTransient(err) {
			ref, sendErr := a.sink.Send(ctx, conversationID, content)
			if sendErr == nil {
				logger.L.Warn("edit failed, continuing on a new message", "conversation", conversationID, "error", err)
				return &ref, true
			}
			logger.L.Error("fallback send failed after edit failure", "conversation", conversationID, "error", sendErr)
			return handle, fellBack
		}
		logger.L.Warn("failed to edit message", "conversation", conversationID, "error", err)
	}
	return handle, fellBack
}

func drain(deltas llm.DeltaStream) {
	for {
		if _, err := deltas.Next(); err != nil {
			return
		}
	}
}
