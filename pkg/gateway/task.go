package gateway

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/parleyhq/parley/pkg/chat"
	"github.com/parleyhq/parley/pkg/provider"
)

// task is one in-flight generation. It lives from the moment a generate
// command is accepted until exactly one terminal event (completed, errored,
// or cancelled) has been emitted, after which it is deregistered.
type task struct {
	gw *Gateway

	messageID      string
	connID         string
	conversationID string
	personaID      string

	adapter provider.Adapter
	req     *provider.Request
}

// run executes the generation end-to-end. It must be called in its own
// goroutine; ctx carries the cooperative cancellation signal held by the
// registry.
func (t *task) run(ctx context.Context) {
	defer t.gw.Registry.RemoveTask(t.messageID)

	start := time.Now()
	index := 0
	onDelta := func(delta string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		t.gw.Registry.Dispatch(t.connID, &Event{
			Type: EventMessageChunk,
			Data: &MessageChunk{
				MessageID:      t.messageID,
				ConversationID: t.conversationID,
				Delta:          delta,
				Index:          index,
			},
		})
		index++
		return nil
	}

	text, err := t.adapter.GenerateText(ctx, t.req, onDelta)
	switch {
	case err != nil && (errors.Is(err, context.Canceled) || ctx.Err() != nil):
		slog.Info("gateway: generation cancelled", "message", t.messageID)
		t.gw.Registry.Dispatch(t.connID, &Event{
			Type: EventGenerationCancelled,
			Data: &GenerationCancelled{MessageID: t.messageID},
		})
	case err != nil:
		slog.Warn("gateway: generation failed",
			"message", t.messageID, "conversation", t.conversationID, "err", err)
		t.gw.Registry.Dispatch(t.connID, &Event{
			Type: EventGenerationError,
			Data: &GenerationError{
				MessageID:      t.messageID,
				ConversationID: t.conversationID,
				Error:          err.Error(),
			},
		})
	default:
		msg := &chat.Message{
			ID:             t.messageID,
			ConversationID: t.conversationID,
			SenderID:       t.personaID,
			SenderKind:     chat.SenderAgent,
			Content:        text,
			Timestamp:      time.Now().UnixMilli(),
			Metadata: map[string]any{
				"duration_ms": time.Since(start).Milliseconds(),
				"token_count": len(strings.Fields(text)),
			},
		}
		t.gw.Orchestrator.Append(t.conversationID, msg)
		t.gw.Registry.Dispatch(t.connID, &Event{
			Type: EventMessageComplete,
			Data: &MessageComplete{Message: msg},
		})
	}
}
