package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/nemoguigrat/uralintern/internal/models"

	"github.com/gorilla/websocket"
)

const MessageGradeReceived = "grade_received"

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub keeps the open notification sockets of each user.
type Hub struct {
	mu    sync.Mutex
	users map[uint]map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{
		users: make(map[uint]map[*websocket.Conn]bool),
	}
}

func (h *Hub) AddConnection(userID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.users[userID] == nil {
		h.users[userID] = make(map[*websocket.Conn]bool)
	}
	h.users[userID][conn] = true
	log.Printf("ws: user %d connected (total: %d)", userID, len(h.users[userID]))
}

func (h *Hub) RemoveConnection(userID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.users[userID]; ok {
		delete(conns, conn)
		conn.Close()
		if len(conns) == 0 {
			delete(h.users, userID)
		}
		log.Printf("ws: user %d disconnected", userID)
	}
}

func (h *Hub) Connections(userID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.users[userID])
}

// Send writes the message to every socket of the user. Sockets that fail
// are dropped.
func (h *Hub) Send(userID uint, message WSMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("ws: marshal error: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.users[userID]
	if !ok {
		return
	}
	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("ws: write error: %v", err)
			conn.Close()
			delete(conns, conn)
		}
	}
	if len(conns) == 0 {
		delete(h.users, userID)
	}
}

// GradeReceived notifies a trainee about a grade addressed to them.
func (h *Hub) GradeReceived(traineeUserID uint, grade models.Grade) {
	h.Send(traineeUserID, WSMessage{Type: MessageGradeReceived, Data: grade})
}
