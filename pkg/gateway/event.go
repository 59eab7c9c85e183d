package gateway

import (
	"encoding/json"

	"github.com/parleyhq/parley/pkg/chat"
)

// Event types delivered to a connection.
const (
	EventGenerationStarted   = "generation_started"
	EventMessageChunk        = "message_chunk"
	EventMessageComplete     = "message_complete"
	EventGenerationError     = "generation_error"
	EventGenerationCancelled = "generation_cancelled"
	EventConversationStarted = "conversation_started"
	EventNextTurn            = "next_turn"
	EventNoNextSpeaker       = "no_next_speaker"
	EventPersonaRegistered   = "persona_registered"
	EventModelRegistered     = "model_registered"
	EventPong                = "pong"
	EventError               = "error"
)

// Event is the outbound envelope written to a connection.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// GenerationStarted acknowledges an accepted generate command.
type GenerationStarted struct {
	MessageID      string `json:"message_id"`
	ConversationID string `json:"conversation_id"`
}

// MessageChunk carries one streamed delta. Chunks for a message id are
// delivered in production order with a monotonically increasing index.
type MessageChunk struct {
	MessageID      string `json:"message_id"`
	ConversationID string `json:"conversation_id"`
	Delta          string `json:"delta"`
	Index          int    `json:"index"`
}

// MessageComplete is the terminal success event, carrying the committed
// message.
type MessageComplete struct {
	Message *chat.Message `json:"message"`
}

// GenerationError is the terminal failure event.
type GenerationError struct {
	MessageID      string `json:"message_id"`
	ConversationID string `json:"conversation_id,omitempty"`
	Error          string `json:"error"`
}

// GenerationCancelled acknowledges a cancellation. It is not an error.
type GenerationCancelled struct {
	MessageID string `json:"message_id"`
}

// ConversationStarted acknowledges a start_conversation command.
type ConversationStarted struct {
	ConversationID string   `json:"conversation_id"`
	Participants   []string `json:"participants"`
}

// NextTurn names the next speaker and the context window they should see.
type NextTurn struct {
	ConversationID  string `json:"conversation_id"`
	NextSpeakerID   string `json:"next_speaker_id"`
	NextSpeakerName string `json:"next_speaker_name"`
	Context         string `json:"context"`
}

// NoNextSpeaker reports an empty participant list on next_turn.
type NoNextSpeaker struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

// Registered acknowledges a persona or model registration.
type Registered struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Pong answers a ping.
type Pong struct {
	Timestamp int64 `json:"timestamp"`
}

// ErrorEvent reports a malformed or unknown command. The connection stays
// open.
type ErrorEvent struct {
	Message string `json:"message"`
}

// Command types accepted from a connection.
const (
	CommandGenerate          = "generate"
	CommandCancel            = "cancel"
	CommandStartConversation = "start_conversation"
	CommandNextTurn          = "next_turn"
	CommandRegisterPersona   = "register_persona"
	CommandRegisterModel     = "register_model"
	CommandPing              = "ping"
)

// Command is the inbound envelope read from a connection.
type Command struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}
