// Package provider normalizes heterogeneous LLM backends behind one adapter
// interface. Each variant translates a generic generation request into its
// upstream wire format and turns the upstream response, streamed or not, into
// plain text deltas plus the accumulated full text.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Kind identifies an upstream provider wire protocol.
type Kind string

const (
	KindCloudChat    Kind = "cloud-chat"
	KindLlamaServer  Kind = "local-llama-server"
	KindOpenAICompat Kind = "openai-compatible"
	KindMock         Kind = "mock"
)

// Params are provider-agnostic generation parameters. Zero values mean
// "unset"; provider-specific defaults are applied at the adapter boundary,
// never earlier.
type Params struct {
	Temperature      float64  `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TopP             float64  `json:"top_p,omitempty" yaml:"top_p,omitempty"`
	MaxTokens        int      `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	FrequencyPenalty float64  `json:"frequency_penalty,omitempty" yaml:"frequency_penalty,omitempty"`
	PresencePenalty  float64  `json:"presence_penalty,omitempty" yaml:"presence_penalty,omitempty"`
	Stop             []string `json:"stop,omitempty" yaml:"stop,omitempty"`
}

// Request is one generation request after all persona/model resolution.
type Request struct {
	Model        string
	Prompt       string
	SystemPrompt string
	Params       Params
}

// DeltaFunc receives incremental text fragments in upstream arrival order.
// Returning a non-nil error aborts the generation.
type DeltaFunc func(delta string) error

// Adapter is the uniform capability over one upstream provider.
//
// GenerateText invokes onDelta once per fragment when non-nil and always
// returns the fully concatenated text on success. ListModels never fails: on
// any upstream trouble it returns a provider-specific static fallback.
// TestConnection collapses every failure mode to false.
type Adapter interface {
	GenerateText(ctx context.Context, req *Request, onDelta DeltaFunc) (string, error)
	ListModels(ctx context.Context) []string
	TestConnection(ctx context.Context) bool
}

// UpstreamError is a non-success HTTP status from the provider.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("provider: upstream status %d: %s", e.Status, e.Body)
}

// TransportError is a connection or timeout failure reaching the provider.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("provider: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// New resolves a provider kind to an adapter. Unrecognized kinds, and a
// cloud-chat config without a credential, degrade to the mock adapter so a
// generation request always has somewhere to go.
func New(kind Kind, baseURL, credential string) Adapter {
	switch kind {
	case KindCloudChat:
		if credential == "" {
			return &Mock{}
		}
		return NewCloudChat(baseURL, credential)
	case KindLlamaServer:
		return NewLlamaServer(baseURL)
	case KindOpenAICompat:
		return NewOpenAICompat(baseURL, credential)
	case KindMock:
		return &Mock{}
	default:
		return &Mock{}
	}
}

// defaultHTTPClient bounds a single upstream call. Streaming responses are
// read incrementally, so the timeout covers the dial and response headers via
// the transport, not the body.
func defaultHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			ResponseHeaderTimeout: 60 * time.Second,
		},
	}
}
