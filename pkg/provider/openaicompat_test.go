package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAICompat_NonStreamingChatShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"chat answer"}}]}`))
	}))
	defer srv.Close()

	a := NewOpenAICompat(srv.URL, "")
	text, err := a.GenerateText(context.Background(), &Request{Prompt: "hi"}, nil)
	if err != nil {
		t.Fatalf("GenerateText failed: %v", err)
	}
	if text != "chat answer" {
		t.Errorf("text = %q, want %q", text, "chat answer")
	}
}

func TestOpenAICompat_NonStreamingCompletionShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"text":"completion answer"}]}`))
	}))
	defer srv.Close()

	a := NewOpenAICompat(srv.URL, "")
	text, err := a.GenerateText(context.Background(), &Request{Prompt: "hi"}, nil)
	if err != nil {
		t.Fatalf("GenerateText failed: %v", err)
	}
	if text != "completion answer" {
		t.Errorf("text = %q, want %q", text, "completion answer")
	}
}

func TestOpenAICompat_DefaultModelApplied(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model string `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		gotModel = body.Model
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	a := NewOpenAICompat(srv.URL, "")
	if _, err := a.GenerateText(context.Background(), &Request{Prompt: "hi"}, nil); err != nil {
		t.Fatalf("GenerateText failed: %v", err)
	}
	if gotModel != "default-model" {
		t.Errorf("model sent = %q, want default-model", gotModel)
	}
}

func TestOpenAICompat_ListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":"vicuna-13b"},{"id":"alpaca-7b"}]}`))
	}))
	defer srv.Close()

	a := NewOpenAICompat(srv.URL, "")
	models := a.ListModels(context.Background())
	if len(models) != 2 || models[0] != "vicuna-13b" {
		t.Errorf("models = %v, want [vicuna-13b alpaca-7b]", models)
	}
}

func TestOpenAICompat_ListModelsFallback(t *testing.T) {
	a := NewOpenAICompat("http://127.0.0.1:1", "")
	models := a.ListModels(context.Background())
	if len(models) != 1 || models[0] != "default-model" {
		t.Errorf("models = %v, want [default-model]", models)
	}
}

func TestOpenAICompat_TestConnectionChatFallback(t *testing.T) {
	// Model listing is broken but chat completion answers: the probe must
	// still report the endpoint as reachable.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models":
			http.Error(w, "not here", http.StatusNotFound)
		case "/chat/completions":
			w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer srv.Close()

	a := NewOpenAICompat(srv.URL, "")
	if !a.TestConnection(context.Background()) {
		t.Error("TestConnection should succeed via the chat-completion probe")
	}
}
