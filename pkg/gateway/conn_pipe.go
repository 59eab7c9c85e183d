package gateway

import (
	"errors"
	"sync"

	"github.com/parleyhq/parley/pkg/queue"
)

// PipeConn is an in-process connection backed by a bounded event queue. It
// lets tests and embedded clients drive the gateway without a network
// transport, with the same ordering guarantees as a websocket connection.
type PipeConn struct {
	events    *queue.Queue[*Event]
	closeOnce sync.Once
}

// NewPipe creates an in-process connection.
func NewPipe() *PipeConn {
	return &PipeConn{
		events: queue.New[*Event](outboundQueueSize),
	}
}

// Send queues an event for the reader.
func (c *PipeConn) Send(ev *Event) error {
	return c.events.Add(ev)
}

// Next blocks until the next event is available. Returns queue.ErrDone after
// the connection is drained following a close.
func (c *PipeConn) Next() (*Event, error) {
	return c.events.Next()
}

// Close tears the connection down, unblocking any pending reader.
func (c *PipeConn) Close() error {
	c.closeOnce.Do(func() {
		c.events.CloseWithError(errors.New("gateway: connection closed"))
	})
	return nil
}
