package chat

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Orchestrator is the process-wide store of conversations, personas, and
// model configurations. Every mutating operation takes the single mutex, so
// concurrent generation tasks see a consistent view. Lookups never fail
// outward: missing entries come back as (nil, false) and callers degrade
// gracefully.
type Orchestrator struct {
	mu            sync.Mutex
	conversations map[string]*Conversation
	personas      map[string]*Persona
	models        map[string]*ModelConfig
}

// NewOrchestrator creates an empty orchestrator.
func NewOrchestrator() *Orchestrator {
	return &Orchestrator{
		conversations: make(map[string]*Conversation),
		personas:      make(map[string]*Persona),
		models:        make(map[string]*ModelConfig),
	}
}

// GetOrCreate returns the conversation with the given id, initializing an
// empty one on first reference. Idempotent.
func (o *Orchestrator) GetOrCreate(conversationID string) *Conversation {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.getOrCreateLocked(conversationID)
}

func (o *Orchestrator) getOrCreateLocked(conversationID string) *Conversation {
	conv, ok := o.conversations[conversationID]
	if !ok {
		conv = &Conversation{
			ID:           conversationID,
			LastActivity: time.Now().UnixMilli(),
		}
		o.conversations[conversationID] = conv
	}
	return conv
}

// Append commits a message to a conversation log and bumps the last-activity
// timestamp. Content is never validated or rejected here.
func (o *Orchestrator) Append(conversationID string, msg *Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	conv := o.getOrCreateLocked(conversationID)
	conv.Messages = append(conv.Messages, msg)
	conv.LastActivity = time.Now().UnixMilli()
}

// SetParticipants replaces the ordered participant list of a conversation.
// The turn counter is deliberately left alone so rotation stays fair across
// edits.
func (o *Orchestrator) SetParticipants(conversationID string, participants []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	conv := o.getOrCreateLocked(conversationID)
	conv.Participants = append([]string(nil), participants...)
	conv.LastActivity = time.Now().UnixMilli()
}

// NextSpeaker returns the persona id whose turn it is and advances the turn
// counter. Pure round-robin: the k-th call returns participants[(k-1) mod N].
// Returns ("", false) when the participant list is empty.
func (o *Orchestrator) NextSpeaker(conversationID string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	conv := o.getOrCreateLocked(conversationID)
	if len(conv.Participants) == 0 {
		return "", false
	}
	id := conv.Participants[conv.turn%int64(len(conv.Participants))]
	conv.turn++
	return id, true
}

// ContextWindow renders the most recent maxMessages entries (the whole log
// when maxMessages <= 0) as "sender: content" lines, oldest first. User,
// agent, and system senders are labeled distinctly.
func (o *Orchestrator) ContextWindow(conversationID string, maxMessages int) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	conv := o.getOrCreateLocked(conversationID)

	msgs := conv.Messages
	if maxMessages > 0 && len(msgs) > maxMessages {
		msgs = msgs[len(msgs)-maxMessages:]
	}

	var sb strings.Builder
	for _, msg := range msgs {
		switch msg.SenderKind {
		case SenderUser:
			fmt.Fprintf(&sb, "User: %s\n\n", msg.Content)
		case SenderAgent:
			fmt.Fprintf(&sb, "%s: %s\n\n", msg.SenderID, msg.Content)
		default:
			fmt.Fprintf(&sb, "%s (%s): %s\n\n", msg.SenderKind, msg.SenderID, msg.Content)
		}
	}
	return strings.TrimSpace(sb.String())
}

// RegisterPersona upserts a persona. Cross-references are not validated: a
// persona may name a model that is registered later, or never.
func (o *Orchestrator) RegisterPersona(p *Persona) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.personas[p.ID] = p
}

// RegisterModel upserts a model configuration, replacing any previous entry
// under the same id wholesale.
func (o *Orchestrator) RegisterModel(m *ModelConfig) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.models[m.ID] = m
}

// Persona looks up a registered persona.
func (o *Orchestrator) Persona(id string) (*Persona, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, ok := o.personas[id]
	return p, ok
}

// Model looks up a registered model configuration.
func (o *Orchestrator) Model(id string) (*ModelConfig, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	m, ok := o.models[id]
	return m, ok
}
