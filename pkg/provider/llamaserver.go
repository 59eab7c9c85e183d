package provider

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

var _ Adapter = (*LlamaServer)(nil)

const llamaDefaultBaseURL = "http://localhost:11434/api"

const llamaDefaultModel = "llama3"

var llamaFallbackModels = []string{"llama3", "llama3:8b", "llama3:70b", "mistral", "phi3"}

// LlamaServer adapts a local llama-style inference server: a generate
// endpoint with NDJSON streaming and a tags endpoint listing pulled models.
type LlamaServer struct {
	baseURL string
	httpc   *http.Client
}

// NewLlamaServer creates a llama-server adapter. An empty baseURL targets the
// conventional local port.
func NewLlamaServer(baseURL string) *LlamaServer {
	if baseURL == "" {
		baseURL = llamaDefaultBaseURL
	}
	return &LlamaServer{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpc:   defaultHTTPClient(),
	}
}

type llamaGenerateBody struct {
	Model   string       `json:"model"`
	Prompt  string       `json:"prompt"`
	System  string       `json:"system"`
	Stream  bool         `json:"stream"`
	Options llamaOptions `json:"options"`
}

type llamaOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

func (a *LlamaServer) GenerateText(ctx context.Context, req *Request, onDelta DeltaFunc) (string, error) {
	model := req.Model
	if model == "" {
		model = llamaDefaultModel
	}
	topP := req.Params.TopP
	if topP == 0 {
		topP = 1.0
	}
	body := &llamaGenerateBody{
		Model:  model,
		Prompt: req.Prompt,
		System: req.SystemPrompt,
		Stream: onDelta != nil,
		Options: llamaOptions{
			Temperature: req.Params.Temperature,
			TopP:        topP,
			NumPredict:  req.Params.MaxTokens,
		},
	}
	resp, err := postJSON(ctx, a.httpc, a.baseURL+"/generate", "", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if onDelta != nil {
		return scanNDJSON(ctx, resp.Body, onDelta)
	}
	var out struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &TransportError{Op: "decode response", Err: err}
	}
	return out.Response, nil
}

func (a *LlamaServer) ListModels(ctx context.Context) []string {
	names, err := listModelsOpenAIWire(ctx, a.httpc, a.baseURL+"/tags", "")
	if err != nil || len(names) == 0 {
		if err != nil {
			slog.Warn("provider: llama-server model listing failed, using fallback", "err", err)
		}
		return llamaFallbackModels
	}
	return names
}

func (a *LlamaServer) TestConnection(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/tags", nil)
	if err != nil {
		return false
	}
	resp, err := a.httpc.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
