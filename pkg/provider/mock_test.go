package provider

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestMock_StreamJoinEqualsFinal(t *testing.T) {
	a := &Mock{Delay: time.Microsecond}
	var joined strings.Builder
	text, err := a.GenerateText(context.Background(), &Request{Prompt: "Tell me about Go"}, func(delta string) error {
		joined.WriteString(delta)
		return nil
	})
	if err != nil {
		t.Fatalf("GenerateText failed: %v", err)
	}
	if joined.String() != text {
		t.Errorf("joined deltas %q != final text %q", joined.String(), text)
	}
	if !strings.Contains(text, "Tell me about Go") {
		t.Errorf("response should echo the prompt, got %q", text)
	}
}

func TestMock_PromptTruncation(t *testing.T) {
	long := strings.Repeat("x", 100)
	a := &Mock{}
	text, err := a.GenerateText(context.Background(), &Request{Prompt: long}, nil)
	if err != nil {
		t.Fatalf("GenerateText failed: %v", err)
	}
	want := "This is a mock response to: " + long[:30] + "..."
	if text != want {
		t.Errorf("GenerateText = %q, want %q", text, want)
	}
}

func TestMock_Cancellation(t *testing.T) {
	a := &Mock{Delay: 50 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())

	deltas := 0
	_, err := a.GenerateText(ctx, &Request{Prompt: "hello there"}, func(string) error {
		deltas++
		cancel()
		return nil
	})
	if err != context.Canceled {
		t.Errorf("GenerateText after cancel = %v, want context.Canceled", err)
	}
	if deltas == 0 {
		t.Error("expected at least one delta before cancellation")
	}
}

func TestMock_ListModelsAndTestConnection(t *testing.T) {
	a := &Mock{}
	models := a.ListModels(context.Background())
	if len(models) == 0 {
		t.Error("ListModels should return a non-empty static list")
	}
	if !a.TestConnection(context.Background()) {
		t.Error("TestConnection should always be true for the mock")
	}
}
