// Package gateway runs the real-time generation gateway: it owns the
// connection registry, accepts commands from duplex connections, launches one
// cancellable generation task per accepted generate command, and forwards
// streamed deltas back to the originating connection.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/parleyhq/parley/pkg/chat"
	"github.com/parleyhq/parley/pkg/provider"
)

// defaultContextMessages bounds the context window handed to a persona when
// its memory settings don't say otherwise.
const defaultContextMessages = 10

// AdapterFactory resolves a model configuration to a provider adapter.
// Injectable so tests can substitute a canned adapter.
type AdapterFactory func(cfg *chat.ModelConfig) provider.Adapter

// Gateway wires the registry, the orchestrator, and the provider adapters
// together. One Gateway serves all connections of the process.
type Gateway struct {
	Registry     *Registry
	Orchestrator *chat.Orchestrator

	// AdapterFor resolves model configs to adapters. Defaults to the
	// closed provider dispatch.
	AdapterFor AdapterFactory

	// MockDelay overrides the mock adapter's inter-word streaming delay.
	MockDelay time.Duration
}

// New creates a gateway around an orchestrator.
func New(orch *chat.Orchestrator) *Gateway {
	gw := &Gateway{
		Registry:     NewRegistry(),
		Orchestrator: orch,
	}
	gw.AdapterFor = func(cfg *chat.ModelConfig) provider.Adapter {
		return provider.New(cfg.Provider, cfg.BaseURL, cfg.Credential)
	}
	return gw
}

// GenerateRequest is the payload of a generate command.
type GenerateRequest struct {
	ConversationID string           `json:"conversation_id"`
	MessageID      string           `json:"message_id,omitempty"`
	PersonaID      string           `json:"persona_id"`
	Content        string           `json:"content"`
	SystemPrompt   string           `json:"system_prompt,omitempty"`
	ModelName      string           `json:"model_name,omitempty"`
	Parameters     *provider.Params `json:"parameters,omitempty"`
}

// CancelRequest is the payload of a cancel command.
type CancelRequest struct {
	MessageID string `json:"message_id"`
}

// StartConversationRequest is the payload of a start_conversation command.
type StartConversationRequest struct {
	ConversationID string        `json:"conversation_id"`
	Participants   []string      `json:"participants"`
	InitialMessage *chat.Message `json:"initial_message,omitempty"`
}

// NextTurnRequest is the payload of a next_turn command.
type NextTurnRequest struct {
	ConversationID string `json:"conversation_id"`
}

// RegisterPersonaRequest is the payload of a register_persona command.
type RegisterPersonaRequest struct {
	Persona *chat.Persona `json:"persona"`
}

// RegisterModelRequest is the payload of a register_model command.
type RegisterModelRequest struct {
	Model *chat.ModelConfig `json:"model"`
}

// Handle processes one raw inbound command from a connection. Malformed
// payloads are answered with an error event; the connection stays open.
func (gw *Gateway) Handle(connID string, raw []byte) {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		gw.sendError(connID, "invalid JSON")
		return
	}
	switch cmd.Type {
	case CommandGenerate:
		gw.handleGenerate(connID, cmd.Data)
	case CommandCancel:
		gw.handleCancel(connID, cmd.Data)
	case CommandStartConversation:
		gw.handleStartConversation(connID, cmd.Data)
	case CommandNextTurn:
		gw.handleNextTurn(connID, cmd.Data)
	case CommandRegisterPersona:
		gw.handleRegisterPersona(connID, cmd.Data)
	case CommandRegisterModel:
		gw.handleRegisterModel(connID, cmd.Data)
	case CommandPing:
		gw.Registry.Dispatch(connID, &Event{
			Type: EventPong,
			Data: &Pong{Timestamp: time.Now().UnixMilli()},
		})
	default:
		gw.sendError(connID, fmt.Sprintf("unknown command type: %s", cmd.Type))
	}
}

func (gw *Gateway) handleGenerate(connID string, data json.RawMessage) {
	var req GenerateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		gw.sendError(connID, "invalid generate command")
		return
	}

	messageID := req.MessageID
	if messageID == "" {
		messageID = uuid.New().String()
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := gw.Registry.AddTask(messageID, connID, cancel); err != nil {
		cancel()
		gw.Registry.Dispatch(connID, &Event{
			Type: EventGenerationError,
			Data: &GenerationError{
				MessageID:      messageID,
				ConversationID: req.ConversationID,
				Error:          "message id already active",
			},
		})
		return
	}

	gw.Registry.Dispatch(connID, &Event{
		Type: EventGenerationStarted,
		Data: &GenerationStarted{
			MessageID:      messageID,
			ConversationID: req.ConversationID,
		},
	})

	t := &task{
		gw:             gw,
		messageID:      messageID,
		connID:         connID,
		conversationID: req.ConversationID,
		personaID:      req.PersonaID,
	}
	t.adapter, t.req = gw.resolve(&req)
	go t.run(ctx)
}

// resolve turns a generate request into a fully-resolved adapter call. A
// missing persona or a dangling model reference degrades to the mock adapter
// rather than failing the request.
func (gw *Gateway) resolve(req *GenerateRequest) (provider.Adapter, *provider.Request) {
	var (
		persona *chat.Persona
		cfg     *chat.ModelConfig
		adapter provider.Adapter
	)
	if p, ok := gw.Orchestrator.Persona(req.PersonaID); ok {
		persona = p
		if m, ok := gw.Orchestrator.Model(p.ModelID); ok {
			cfg = m
		}
	}
	if cfg != nil {
		adapter = gw.AdapterFor(cfg)
	} else {
		slog.Warn("gateway: persona or model not found, using mock adapter",
			"persona", req.PersonaID)
		adapter = &provider.Mock{Delay: gw.MockDelay}
	}

	systemPrompt := req.SystemPrompt
	if systemPrompt == "" && persona != nil {
		systemPrompt = persona.SystemPrompt
	}

	var params provider.Params
	switch {
	case req.Parameters != nil:
		params = *req.Parameters
	case persona != nil && persona.Parameters != nil:
		params = *persona.Parameters
	case cfg != nil:
		params = cfg.DefaultParams
	}

	model := req.ModelName
	if model == "" && cfg != nil {
		model = cfg.Name
	}

	return adapter, &provider.Request{
		Model:        model,
		Prompt:       req.Content,
		SystemPrompt: systemPrompt,
		Params:       params,
	}
}

func (gw *Gateway) handleCancel(connID string, data json.RawMessage) {
	var req CancelRequest
	if err := json.Unmarshal(data, &req); err != nil || req.MessageID == "" {
		gw.sendError(connID, "invalid cancel command")
		return
	}
	// Unknown or already-terminal ids are a silent no-op; the owning task
	// emits the cancellation acknowledgment when it winds down.
	gw.Registry.Cancel(req.MessageID)
}

func (gw *Gateway) handleStartConversation(connID string, data json.RawMessage) {
	var req StartConversationRequest
	if err := json.Unmarshal(data, &req); err != nil {
		gw.sendError(connID, "invalid start_conversation command")
		return
	}
	if req.ConversationID == "" || len(req.Participants) == 0 {
		gw.sendError(connID, "missing conversation id or participants")
		return
	}
	gw.Orchestrator.SetParticipants(req.ConversationID, req.Participants)
	if msg := req.InitialMessage; msg != nil {
		if msg.ID == "" {
			msg.ID = uuid.New().String()
		}
		msg.ConversationID = req.ConversationID
		if msg.Timestamp == 0 {
			msg.Timestamp = time.Now().UnixMilli()
		}
		gw.Orchestrator.Append(req.ConversationID, msg)
	}
	gw.Registry.Dispatch(connID, &Event{
		Type: EventConversationStarted,
		Data: &ConversationStarted{
			ConversationID: req.ConversationID,
			Participants:   req.Participants,
		},
	})
}

func (gw *Gateway) handleNextTurn(connID string, data json.RawMessage) {
	var req NextTurnRequest
	if err := json.Unmarshal(data, &req); err != nil || req.ConversationID == "" {
		gw.sendError(connID, "invalid next_turn command")
		return
	}
	speakerID, ok := gw.Orchestrator.NextSpeaker(req.ConversationID)
	if !ok {
		gw.Registry.Dispatch(connID, &Event{
			Type: EventNoNextSpeaker,
			Data: &NoNextSpeaker{
				ConversationID: req.ConversationID,
				Message:        "no participants available for next turn",
			},
		})
		return
	}

	speakerName := speakerID
	window := defaultContextMessages
	if persona, ok := gw.Orchestrator.Persona(speakerID); ok {
		speakerName = persona.Name
		if persona.Memory != nil && persona.Memory.MessageLimit > 0 {
			window = persona.Memory.MessageLimit
		}
	} else {
		slog.Warn("gateway: next speaker has no registered persona", "persona", speakerID)
	}

	gw.Registry.Dispatch(connID, &Event{
		Type: EventNextTurn,
		Data: &NextTurn{
			ConversationID:  req.ConversationID,
			NextSpeakerID:   speakerID,
			NextSpeakerName: speakerName,
			Context:         gw.Orchestrator.ContextWindow(req.ConversationID, window),
		},
	})
}

func (gw *Gateway) handleRegisterPersona(connID string, data json.RawMessage) {
	var req RegisterPersonaRequest
	if err := json.Unmarshal(data, &req); err != nil || req.Persona == nil || req.Persona.ID == "" {
		gw.sendError(connID, "invalid register_persona command")
		return
	}
	gw.Orchestrator.RegisterPersona(req.Persona)
	gw.Registry.Dispatch(connID, &Event{
		Type: EventPersonaRegistered,
		Data: &Registered{ID: req.Persona.ID, Name: req.Persona.Name},
	})
}

func (gw *Gateway) handleRegisterModel(connID string, data json.RawMessage) {
	var req RegisterModelRequest
	if err := json.Unmarshal(data, &req); err != nil || req.Model == nil || req.Model.ID == "" {
		gw.sendError(connID, "invalid register_model command")
		return
	}
	gw.Orchestrator.RegisterModel(req.Model)
	gw.Registry.Dispatch(connID, &Event{
		Type: EventModelRegistered,
		Data: &Registered{ID: req.Model.ID, Name: req.Model.Name},
	})
}

func (gw *Gateway) sendError(connID, message string) {
	gw.Registry.Dispatch(connID, &Event{
		Type: EventError,
		Data: &ErrorEvent{Message: message},
	})
}
