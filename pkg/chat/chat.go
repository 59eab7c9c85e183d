// Package chat holds the conversation domain model and the in-memory
// orchestrator that decides who speaks next and what context they see.
package chat

import (
	"github.com/parleyhq/parley/pkg/provider"
)

// SenderKind distinguishes who authored a message.
type SenderKind string

const (
	SenderUser   SenderKind = "user"
	SenderAgent  SenderKind = "agent"
	SenderSystem SenderKind = "system"
)

// Message is one committed entry in a conversation log. Messages are append
// only: once committed they are never mutated or removed.
type Message struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	SenderID       string         `json:"sender_id"`
	SenderKind     SenderKind     `json:"sender_kind"`
	Content        string         `json:"content"`
	Timestamp      int64          `json:"timestamp"`
	ReplyToID      string         `json:"reply_to_id,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// ModelConfig describes one reachable upstream model. Immutable once
// registered; re-registering the same id replaces it wholesale.
type ModelConfig struct {
	ID                string          `json:"id" yaml:"id"`
	Name              string          `json:"name" yaml:"name"`
	Provider          provider.Kind   `json:"provider" yaml:"provider"`
	BaseURL           string          `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Credential        string          `json:"credential,omitempty" yaml:"credential,omitempty"`
	ContextWindowSize int             `json:"context_window_size" yaml:"context_window_size"`
	DefaultParams     provider.Params `json:"default_params" yaml:"default_params"`
}

// MemorySettings bounds how much history a persona is shown.
type MemorySettings struct {
	MessageLimit int `json:"message_limit,omitempty" yaml:"message_limit,omitempty"`
	TokenLimit   int `json:"token_limit,omitempty" yaml:"token_limit,omitempty"`
}

// Persona binds a system prompt and generation parameters to a model. A
// dangling ModelID is recoverable: generation falls back to the mock provider.
type Persona struct {
	ID           string           `json:"id" yaml:"id"`
	Name         string           `json:"name" yaml:"name"`
	Avatar       string           `json:"avatar,omitempty" yaml:"avatar,omitempty"`
	SystemPrompt string           `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	ModelID      string           `json:"model_id,omitempty" yaml:"model_id,omitempty"`
	Parameters   *provider.Params `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Memory       *MemorySettings  `json:"memory_settings,omitempty" yaml:"memory_settings,omitempty"`
}

// Conversation is the shared state of one multi-persona exchange. The turn
// counter only ever grows; the participant index is derived modulo the list
// length at read time so later participant edits keep the rotation fair.
type Conversation struct {
	ID           string     `json:"id"`
	Messages     []*Message `json:"messages"`
	Participants []string   `json:"participants"`
	turn         int64
	LastActivity int64 `json:"last_activity"`
}
