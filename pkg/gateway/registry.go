package gateway

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrDuplicateTask is returned when a message id is already active. The
// existing task is left untouched.
var ErrDuplicateTask = errors.New("gateway: message id already active")

// Conn is the transport handle the registry delivers events through.
type Conn interface {
	Send(ev *Event) error
	Close() error
}

type taskHandle struct {
	connID string
	cancel context.CancelFunc
}

// Registry is the process-wide map from connection identity to transport
// handle, plus the map from in-flight message id to its cancellation control.
// Both maps share one mutex; no operation spans other stores.
type Registry struct {
	mu    sync.Mutex
	conns map[string]Conn
	tasks map[string]*taskHandle
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]Conn),
		tasks: make(map[string]*taskHandle),
	}
}

// Register adds a connection under its identity.
func (r *Registry) Register(connID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[connID] = conn
	slog.Info("gateway: connection registered", "conn", connID)
}

// Unregister removes a connection and cancels every task still associated
// with it. No orphaned tasks survive a closed connection.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, connID)
	for id, th := range r.tasks {
		if th.connID == connID {
			th.cancel()
			delete(r.tasks, id)
		}
	}
	slog.Info("gateway: connection unregistered", "conn", connID)
}

// Dispatch delivers an event to a live connection, best-effort. A connection
// that has already closed is a normal, silent outcome: transports can go away
// asynchronously mid-generation.
func (r *Registry) Dispatch(connID string, ev *Event) {
	r.mu.Lock()
	conn, ok := r.conns[connID]
	r.mu.Unlock()
	if !ok {
		return
	}
	if err := conn.Send(ev); err != nil {
		slog.Debug("gateway: dispatch failed", "conn", connID, "type", ev.Type, "err", err)
	}
}

// AddTask records an in-flight generation under its message id. A duplicate
// id is rejected with ErrDuplicateTask, never silently overwritten.
func (r *Registry) AddTask(messageID, connID string, cancel context.CancelFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tasks[messageID]; exists {
		return ErrDuplicateTask
	}
	r.tasks[messageID] = &taskHandle{connID: connID, cancel: cancel}
	return nil
}

// RemoveTask deregisters a terminal task. No-op for unknown ids.
func (r *Registry) RemoveTask(messageID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, messageID)
}

// Cancel requests cooperative cancellation of the task owning messageID,
// regardless of which connection asks. No-op when the id is unknown or
// already terminal.
func (r *Registry) Cancel(messageID string) {
	r.mu.Lock()
	th, ok := r.tasks[messageID]
	r.mu.Unlock()
	if !ok {
		return
	}
	th.cancel()
	slog.Info("gateway: generation cancel requested", "message", messageID)
}

// TaskActive reports whether a message id currently has an in-flight task.
func (r *Registry) TaskActive(messageID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tasks[messageID]
	return ok
}
