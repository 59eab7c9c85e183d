package provider

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

var _ Adapter = (*OpenAICompat)(nil)

// openAICompatFallbackModel is the synthetic model name used when a generic
// endpoint exposes no model listing at all.
const openAICompatFallbackModel = "default-model"

// OpenAICompat adapts any generic OpenAI-compatible endpoint (local inference
// UIs included). It speaks the same chat-completion wire format as CloudChat
// but tolerates the looser response and model-listing shapes such servers
// produce.
type OpenAICompat struct {
	baseURL    string
	credential string
	httpc      *http.Client
}

// NewOpenAICompat creates an adapter for the given base URL. The credential
// is optional; many local servers ignore it.
func NewOpenAICompat(baseURL, credential string) *OpenAICompat {
	return &OpenAICompat{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		credential: credential,
		httpc:      defaultHTTPClient(),
	}
}

func (a *OpenAICompat) GenerateText(ctx context.Context, req *Request, onDelta DeltaFunc) (string, error) {
	model := req.Model
	if model == "" {
		model = openAICompatFallbackModel
	}
	wireReq := *req
	wireReq.Model = model
	body := chatCompletionRequest(&wireReq, onDelta != nil)
	resp, err := postJSON(ctx, a.httpc, a.baseURL+"/chat/completions", a.credential, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if onDelta != nil {
		return scanSSE(ctx, resp.Body, onDelta)
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			Text string `json:"text"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &TransportError{Op: "decode response", Err: err}
	}
	if len(out.Choices) == 0 {
		return "", &UpstreamError{Status: http.StatusOK, Body: "no choices in response"}
	}
	// Some servers answer with a completion-style "text" field instead of a
	// chat message.
	if c := out.Choices[0].Message.Content; c != "" {
		return c, nil
	}
	return out.Choices[0].Text, nil
}

func (a *OpenAICompat) ListModels(ctx context.Context) []string {
	names, err := listModelsOpenAIWire(ctx, a.httpc, a.baseURL+"/models", a.credential)
	if err != nil || len(names) == 0 {
		if err != nil {
			slog.Warn("provider: openai-compatible model listing failed, using fallback", "err", err)
		}
		return []string{openAICompatFallbackModel}
	}
	return names
}

// TestConnection probes the model listing first and only falls back to a
// minimal chat completion when that probe fails; some generic servers expose
// one endpoint but not the other.
func (a *OpenAICompat) TestConnection(ctx context.Context) bool {
	if _, err := listModelsOpenAIWire(ctx, a.httpc, a.baseURL+"/models", a.credential); err == nil {
		return true
	}
	probe := &chatCompletionBody{
		Model:     openAICompatFallbackModel,
		Messages:  []chatMessage{{Role: "user", Content: "Hello"}},
		MaxTokens: 5,
	}
	resp, err := postJSON(ctx, a.httpc, a.baseURL+"/chat/completions", a.credential, probe)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
