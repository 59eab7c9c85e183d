package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
)

var _ Adapter = (*CloudChat)(nil)

const cloudChatDefaultBaseURL = "https://api.openai.com/v1"

// max_tokens sent upstream when the caller leaves it unset.
const cloudChatDefaultMaxTokens = 2000

var cloudChatFallbackModels = []string{"gpt-4-turbo-preview", "gpt-4", "gpt-3.5-turbo"}

// CloudChat adapts the hosted chat-completion API. Non-streaming calls go
// through the official SDK; streaming keeps a hand-rolled SSE reader so a
// malformed event never kills an in-flight generation.
type CloudChat struct {
	baseURL    string
	credential string
	client     *openai.Client
	httpc      *http.Client
}

// NewCloudChat creates a cloud-chat adapter. An empty baseURL targets the
// public endpoint.
func NewCloudChat(baseURL, credential string) *CloudChat {
	if baseURL == "" {
		baseURL = cloudChatDefaultBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	client := openai.NewClient(
		option.WithAPIKey(credential),
		option.WithBaseURL(baseURL),
	)
	return &CloudChat{
		baseURL:    baseURL,
		credential: credential,
		client:     &client,
		httpc:      defaultHTTPClient(),
	}
}

func (a *CloudChat) GenerateText(ctx context.Context, req *Request, onDelta DeltaFunc) (string, error) {
	if onDelta != nil {
		return a.generateStream(ctx, req, onDelta)
	}
	return a.generate(ctx, req)
}

func (a *CloudChat) generate(ctx context.Context, req *Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.Prompt),
		},
		Temperature:      param.NewOpt(req.Params.Temperature),
		TopP:             param.NewOpt(req.Params.TopP),
		FrequencyPenalty: param.NewOpt(req.Params.FrequencyPenalty),
		PresencePenalty:  param.NewOpt(req.Params.PresencePenalty),
		MaxTokens:        param.NewOpt(int64(cloudChatDefaultMaxTokens)),
	}
	if req.Params.MaxTokens > 0 {
		params.MaxTokens = param.NewOpt(int64(req.Params.MaxTokens))
	}
	if len(req.Params.Stop) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{
			OfStringArray: req.Params.Stop,
		}
	}
	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apierr *openai.Error
		if errors.As(err, &apierr) {
			return "", &UpstreamError{Status: apierr.StatusCode, Body: apierr.Error()}
		}
		return "", &TransportError{Op: "chat completion", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &UpstreamError{Status: http.StatusOK, Body: "no choices in response"}
	}
	return resp.Choices[0].Message.Content, nil
}

// chatCompletionBody is the wire shape shared by cloud-chat and
// openai-compatible requests.
type chatCompletionBody struct {
	Model            string        `json:"model"`
	Messages         []chatMessage `json:"messages"`
	Temperature      float64       `json:"temperature"`
	MaxTokens        int           `json:"max_tokens"`
	TopP             float64       `json:"top_p"`
	FrequencyPenalty float64       `json:"frequency_penalty"`
	PresencePenalty  float64       `json:"presence_penalty"`
	Stream           bool          `json:"stream"`
	Stop             []string      `json:"stop,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func chatCompletionRequest(req *Request, stream bool) *chatCompletionBody {
	maxTokens := req.Params.MaxTokens
	if maxTokens == 0 {
		maxTokens = cloudChatDefaultMaxTokens
	}
	return &chatCompletionBody{
		Model: req.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.Prompt},
		},
		Temperature:      req.Params.Temperature,
		MaxTokens:        maxTokens,
		TopP:             req.Params.TopP,
		FrequencyPenalty: req.Params.FrequencyPenalty,
		PresencePenalty:  req.Params.PresencePenalty,
		Stream:           stream,
		Stop:             req.Params.Stop,
	}
}

func (a *CloudChat) generateStream(ctx context.Context, req *Request, onDelta DeltaFunc) (string, error) {
	body := chatCompletionRequest(req, true)
	resp, err := postJSON(ctx, a.httpc, a.baseURL+"/chat/completions", a.credential, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	return scanSSE(ctx, resp.Body, onDelta)
}

func (a *CloudChat) ListModels(ctx context.Context) []string {
	models, err := listModelsOpenAIWire(ctx, a.httpc, a.baseURL+"/models", a.credential)
	if err != nil {
		slog.Warn("provider: cloud-chat model listing failed, using fallback", "err", err)
		return cloudChatFallbackModels
	}
	var chat []string
	for _, id := range models {
		if strings.HasPrefix(id, "gpt-") {
			chat = append(chat, id)
		}
	}
	if len(chat) == 0 {
		return cloudChatFallbackModels
	}
	return chat
}

func (a *CloudChat) TestConnection(ctx context.Context) bool {
	_, err := listModelsOpenAIWire(ctx, a.httpc, a.baseURL+"/models", a.credential)
	return err == nil
}

// modelListing tolerates both the standard {"data":[{"id":...}]} shape and the
// {"models":[...]} shape some local servers expose, where each entry is either
// an object with a name or a bare string.
type modelListing struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
	Models []json.RawMessage `json:"models"`
}

func listModelsOpenAIWire(ctx context.Context, c *http.Client, url, credential string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{Op: "build request", Err: err}
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "list models", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: readBodyPrefix(resp.Body)}
	}
	var listing modelListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, &TransportError{Op: "decode model listing", Err: err}
	}
	var names []string
	for _, m := range listing.Data {
		if m.ID != "" {
			names = append(names, m.ID)
		}
	}
	for _, raw := range listing.Models {
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(raw, &obj); err == nil && obj.Name != "" {
			names = append(names, obj.Name)
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			names = append(names, s)
		}
	}
	return names, nil
}

func postJSON(ctx context.Context, c *http.Client, url, credential string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, &TransportError{Op: "encode request", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, &TransportError{Op: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "send request", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, &UpstreamError{Status: resp.StatusCode, Body: readBodyPrefix(resp.Body)}
	}
	return resp, nil
}

// readBodyPrefix reads at most 4KiB of an error body for diagnostics.
func readBodyPrefix(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4096))
	return strings.TrimSpace(string(b))
}
