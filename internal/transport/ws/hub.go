package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub manages WebSocket connections for live sessions. The owner
// device and each participant device hold one connection per session;
// field updates, presence changes, and events are pushed through here
// so every device sees the shared record move.
type Hub struct {
	ownerConns       map[string]*Connection
	participantConns map[string]map[string]*Connection // sessionID -> participantID -> conn

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
	disconnect chan string
}

// Connection represents a WebSocket connection
type Connection struct {
	SessionID     string
	ParticipantID string // Empty for owner connections
	IsOwner       bool
	Send          chan []byte
	Hub           *Hub
}

// BroadcastMessage is a message to broadcast
type BroadcastMessage struct {
	SessionID     string
	ToOwner       bool
	ToParticipant string // Empty means everyone on the session
	ToAll         bool
	Message       *Message
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		ownerConns:       make(map[string]*Connection),
		participantConns: make(map[string]map[string]*Connection),
		register:         make(chan *Connection),
		unregister:       make(chan *Connection),
		broadcast:        make(chan *BroadcastMessage, 256),
		disconnect:       make(chan string),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if conn.IsOwner {
				h.ownerConns[conn.SessionID] = conn
				log.Printf("Owner connected to session %s", conn.SessionID)
			} else {
				if h.participantConns[conn.SessionID] == nil {
					h.participantConns[conn.SessionID] = make(map[string]*Connection)
				}
				h.participantConns[conn.SessionID][conn.ParticipantID] = conn
				log.Printf("Participant %s connected to session %s", conn.ParticipantID, conn.SessionID)
			}
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if conn.IsOwner {
				if existing, ok := h.ownerConns[conn.SessionID]; ok && existing == conn {
					delete(h.ownerConns, conn.SessionID)
					close(conn.Send)
					log.Printf("Owner disconnected from session %s", conn.SessionID)
				}
			} else {
				if participants, ok := h.participantConns[conn.SessionID]; ok {
					if existing, ok := participants[conn.ParticipantID]; ok && existing == conn {
						delete(participants, conn.ParticipantID)
						close(conn.Send)
						log.Printf("Participant %s disconnected from session %s", conn.ParticipantID, conn.SessionID)
					}
				}
			}
			h.mu.Unlock()

		case sessionID := <-h.disconnect:
			h.mu.Lock()
			if conn, ok := h.ownerConns[sessionID]; ok {
				delete(h.ownerConns, sessionID)
				close(conn.Send)
			}
			for _, conn := range h.participantConns[sessionID] {
				close(conn.Send)
			}
			delete(h.participantConns, sessionID)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			data, _ := json.Marshal(msg.Message)

			if msg.ToAll || msg.ToOwner {
				if conn, ok := h.ownerConns[msg.SessionID]; ok {
					h.send(conn, data)
				}
			}
			if msg.ToAll {
				for _, conn := range h.participantConns[msg.SessionID] {
					h.send(conn, data)
				}
			} else if msg.ToParticipant != "" {
				if participants, ok := h.participantConns[msg.SessionID]; ok {
					if conn, ok := participants[msg.ToParticipant]; ok {
						h.send(conn, data)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// send drops the message if the connection's buffer is full.
func (h *Hub) send(conn *Connection, data []byte) {
	select {
	case conn.Send <- data:
	default:
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// BroadcastToOwner sends a message to the session owner (implements service.Broadcaster)
func (h *Hub) BroadcastToOwner(sessionID string, msgType string, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &BroadcastMessage{
		SessionID: sessionID,
		ToOwner:   true,
		Message: &Message{
			Type:    MessageType(msgType),
			Payload: data,
		},
	}
}

// BroadcastToParticipant sends a message to one participant (implements service.Broadcaster)
func (h *Hub) BroadcastToParticipant(sessionID, participantID string, msgType string, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &BroadcastMessage{
		SessionID:     sessionID,
		ToParticipant: participantID,
		Message: &Message{
			Type:    MessageType(msgType),
			Payload: data,
		},
	}
}

// BroadcastToAll sends a message to the owner and every participant (implements service.Broadcaster)
func (h *Hub) BroadcastToAll(sessionID string, msgType string, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &BroadcastMessage{
		SessionID: sessionID,
		ToAll:     true,
		Message: &Message{
			Type:    MessageType(msgType),
			Payload: data,
		},
	}
}

// DisconnectSession closes every connection on the session (implements service.Broadcaster)
func (h *Hub) DisconnectSession(sessionID string) {
	h.disconnect <- sessionID
}
