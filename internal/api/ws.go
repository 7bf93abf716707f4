package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024 * 4,
	WriteBufferSize: 1024 * 64,
	CheckOrigin: func(r *http.Request) bool {
		return true // the server binds to localhost
	},
}

// WebSocket message types from client.
const (
	wsMsgReview = "review"
	wsMsgCancel = "cancel"
)

// WebSocket message types to client.
const (
	wsMsgState = "state"
	wsMsgError = "error"
)

// wsMessage is the envelope for WebSocket messages in both directions.
type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// wsConn serializes writes; gorilla connections allow one writer at a time.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(msgType string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		log.Printf("ws marshal: %v", err)
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(wsMessage{Type: msgType, Data: raw})
}

func (c *wsConn) sendError(errMsg string) {
	if err := c.send(wsMsgError, map[string]string{"message": errMsg}); err != nil {
		log.Printf("ws write: %v", err)
	}
}

// handleWebSocket pushes a state snapshot on every session change. Clients
// may send "review" (data: {"mode", "model"}) and "cancel" messages.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}
	c := &wsConn{conn: conn}
	defer conn.Close()

	updates, unsubscribe := s.session.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.readLoop(c)
	}()

	for {
		select {
		case st, ok := <-updates:
			if !ok {
				return
			}
			if err := c.send(wsMsgState, st); err != nil {
				log.Printf("ws write: %v", err)
				return
			}
		case <-done:
			return
		case <-s.runCtx.Done():
			return
		}
	}
}

func (s *Server) readLoop(c *wsConn) {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket read: %v", err)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendError("invalid message format")
			continue
		}

		switch msg.Type {
		case wsMsgReview:
			var req reviewRequest
			if len(msg.Data) > 0 {
				if err := json.Unmarshal(msg.Data, &req); err != nil {
					c.sendError("invalid review data")
					continue
				}
			}
			if _, _, err := s.startRun(req); err != nil {
				c.sendError(err.Error())
			}
		case wsMsgCancel:
			if err := s.session.Cancel("api request"); err != nil {
				c.sendError(err.Error())
			}
		default:
			c.sendError("unknown message type: " + msg.Type)
		}
	}
}
