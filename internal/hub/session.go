package hub

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Envelope is the outbound wire format.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// ClientMessage is the inbound wire format.
type ClientMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// WebSocketSession is a Session backed by a gorilla/websocket connection.
// Writes are serialized with a mutex; gorilla connections allow only one
// concurrent writer.
type WebSocketSession struct {
	id     string
	userID string
	conn   *websocket.Conn
	mu     sync.Mutex
}

// NewWebSocketSession wraps an upgraded connection for a user.
func NewWebSocketSession(userID string, conn *websocket.Conn) *WebSocketSession {
	return &WebSocketSession{
		id:     uuid.New().String(),
		userID: userID,
		conn:   conn,
	}
}

// ID returns the session's unique ID.
func (s *WebSocketSession) ID() string {
	return s.id
}

// UserID returns the authenticated user this session belongs to.
func (s *WebSocketSession) UserID() string {
	return s.userID
}

// Send writes one enveloped event to the connection.
func (s *WebSocketSession) Send(event string, data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.conn.WriteJSON(Envelope{Event: event, Data: data})
}

// Read blocks for the next inbound client message.
func (s *WebSocketSession) Read() (*ClientMessage, error) {
	var msg ClientMessage
	if err := s.conn.ReadJSON(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Close closes the underlying connection.
func (s *WebSocketSession) Close() error {
	return s.conn.Close()
}

// Ensure WebSocketSession implements Session.
var _ Session = (*WebSocketSession)(nil)
