package gateway

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/parleyhq/parley/pkg/queue"
)

// outboundQueueSize bounds per-connection buffered events. A full queue makes
// producers block rather than drop, preserving delta order.
const outboundQueueSize = 256

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Cross-origin policy is an external concern; the gateway accepts any
	// origin and leaves filtering to the fronting layer.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsConn adapts a gorilla websocket connection to the registry's Conn. All
// writes funnel through a single writer goroutine fed by a bounded queue,
// since gorilla connections allow only one concurrent writer.
type wsConn struct {
	ws        *websocket.Conn
	out       *queue.Queue[*Event]
	closeOnce sync.Once
}

func newWSConn(ws *websocket.Conn) *wsConn {
	c := &wsConn{
		ws:  ws,
		out: queue.New[*Event](outboundQueueSize),
	}
	go c.writeLoop()
	return c
}

func (c *wsConn) Send(ev *Event) error {
	return c.out.Add(ev)
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.out.CloseWithError(errors.New("gateway: connection closed"))
		err = c.ws.Close()
	})
	return err
}

func (c *wsConn) writeLoop() {
	for {
		ev, err := c.out.Next()
		if err != nil {
			return
		}
		if err := c.ws.WriteJSON(ev); err != nil {
			slog.Debug("gateway: websocket write failed", "err", err)
			c.Close()
			return
		}
	}
}

// ServeWS upgrades an HTTP request to a websocket connection and pumps its
// commands through the gateway until the peer goes away. Closing the
// transport cancels every generation the connection still owns.
func (gw *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("gateway: websocket upgrade failed", "err", err)
		return
	}

	connID := uuid.New().String()
	conn := newWSConn(ws)
	gw.Registry.Register(connID, conn)
	defer func() {
		gw.Registry.Unregister(connID)
		conn.Close()
	}()

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("gateway: websocket read ended", "conn", connID, "err", err)
			}
			return
		}
		gw.Handle(connID, raw)
	}
}
