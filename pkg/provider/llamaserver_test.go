package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLlamaServer_Streaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate" {
			t.Errorf("request path = %q, want /generate", r.URL.Path)
		}
		var body struct {
			Model   string `json:"model"`
			Prompt  string `json:"prompt"`
			System  string `json:"system"`
			Stream  bool   `json:"stream"`
			Options struct {
				Temperature float64 `json:"temperature"`
				TopP        float64 `json:"top_p"`
				NumPredict  int     `json:"num_predict"`
			} `json:"options"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if !body.Stream {
			t.Error("stream flag should be set when a delta callback is supplied")
		}
		if body.Options.TopP != 1.0 {
			t.Errorf("top_p = %v, want default 1.0", body.Options.TopP)
		}
		w.Write([]byte(`{"response":"Hel"}` + "\n" + `{"response":"lo"}` + "\n"))
	}))
	defer srv.Close()

	a := NewLlamaServer(srv.URL)
	var deltas []string
	text, err := a.GenerateText(context.Background(), &Request{Prompt: "hi"}, func(d string) error {
		deltas = append(deltas, d)
		return nil
	})
	if err != nil {
		t.Fatalf("GenerateText failed: %v", err)
	}
	if text != "Hello" {
		t.Errorf("final text = %q, want %q", text, "Hello")
	}
	if len(deltas) != 2 || deltas[0] != "Hel" || deltas[1] != "lo" {
		t.Errorf("deltas = %v, want [Hel lo]", deltas)
	}
}

func TestLlamaServer_StreamSkipsInvalidLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"a"}` + "\n" + `not json at all` + "\n" + `{"response":"b"}` + "\n"))
	}))
	defer srv.Close()

	a := NewLlamaServer(srv.URL)
	text, err := a.GenerateText(context.Background(), &Request{}, func(string) error { return nil })
	if err != nil {
		t.Fatalf("GenerateText failed: %v", err)
	}
	if text != "ab" {
		t.Errorf("final text = %q, want %q (invalid lines skipped)", text, "ab")
	}
}

func TestLlamaServer_NonStreaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"response": "full answer"})
	}))
	defer srv.Close()

	a := NewLlamaServer(srv.URL)
	text, err := a.GenerateText(context.Background(), &Request{Prompt: "hi"}, nil)
	if err != nil {
		t.Fatalf("GenerateText failed: %v", err)
	}
	if text != "full answer" {
		t.Errorf("text = %q, want %q", text, "full answer")
	}
}

func TestLlamaServer_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	a := NewLlamaServer(srv.URL)
	_, err := a.GenerateText(context.Background(), &Request{}, nil)
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want *UpstreamError", err)
	}
	if ue.Status != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", ue.Status)
	}
}

func TestLlamaServer_ListModelsFallback(t *testing.T) {
	a := NewLlamaServer("http://127.0.0.1:1") // nothing listening
	models := a.ListModels(context.Background())
	if len(models) == 0 {
		t.Fatal("ListModels must fall back to a static list, got none")
	}
	if models[0] != "llama3" {
		t.Errorf("fallback list starts with %q, want llama3", models[0])
	}
	if a.TestConnection(context.Background()) {
		t.Error("TestConnection to a dead endpoint should be false")
	}
}

func TestLlamaServer_ListModelsFromTags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tags" {
			t.Errorf("request path = %q, want /tags", r.URL.Path)
		}
		w.Write([]byte(`{"models":[{"name":"llama3:8b"},{"name":"mistral"}]}`))
	}))
	defer srv.Close()

	a := NewLlamaServer(srv.URL)
	models := a.ListModels(context.Background())
	if len(models) != 2 || models[0] != "llama3:8b" || models[1] != "mistral" {
		t.Errorf("models = %v, want [llama3:8b mistral]", models)
	}
	if !a.TestConnection(context.Background()) {
		t.Error("TestConnection should be true when /tags answers 200")
	}
}
