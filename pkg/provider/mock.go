package provider

import (
	"context"
	"strings"
	"time"
)

var _ Adapter = (*Mock)(nil)

// DefaultMockDelay is the artificial pause between streamed words.
const DefaultMockDelay = 200 * time.Millisecond

var mockModels = []string{"mock-gpt4", "mock-claude", "mock-llama"}

// Mock produces a deterministic canned response without any network
// dependency. It is both the development provider and the fallback for
// unknown provider kinds or dangling model references.
type Mock struct {
	// Delay overrides the inter-word streaming pause. Zero means
	// DefaultMockDelay; tests set it to something tiny.
	Delay time.Duration
}

func (a *Mock) GenerateText(ctx context.Context, req *Request, onDelta DeltaFunc) (string, error) {
	prompt := req.Prompt
	if len(prompt) > 30 {
		prompt = prompt[:30]
	}
	response := "This is a mock response to: " + prompt + "..."
	if onDelta == nil {
		return response, nil
	}

	delay := a.Delay
	if delay == 0 {
		delay = DefaultMockDelay
	}
	words := strings.Fields(response)
	var full strings.Builder
	for i, word := range words {
		delta := word
		if i < len(words)-1 {
			delta += " "
		}
		full.WriteString(delta)
		if err := onDelta(delta); err != nil {
			return full.String(), err
		}
		select {
		case <-ctx.Done():
			return full.String(), ctx.Err()
		case <-time.After(delay):
		}
	}
	return full.String(), nil
}

func (a *Mock) ListModels(context.Context) []string {
	return mockModels
}

func (a *Mock) TestConnection(context.Context) bool {
	return true
}
