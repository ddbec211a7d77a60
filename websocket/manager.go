package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Manager fans events out to every connected client. Delivery is
// fire-and-forget: a client whose send buffer is full is dropped.
type Manager struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (m *Manager) Start() {
	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			m.clients[client] = true
			total := len(m.clients)
			m.mu.Unlock()
			log.Printf("WebSocket client registered. Total clients: %d", total)

		case client := <-m.unregister:
			m.mu.Lock()
			if _, ok := m.clients[client]; ok {
				delete(m.clients, client)
				client.closeSend()
			}
			total := len(m.clients)
			m.mu.Unlock()
			log.Printf("WebSocket client unregistered. Total clients: %d", total)

		case message := <-m.broadcast:
			m.mu.Lock()
			for client := range m.clients {
				select {
				case client.send <- message:
				default:
					client.closeSend()
					delete(m.clients, client)
				}
			}
			m.mu.Unlock()
		}
	}
}

// Emit broadcasts an event envelope to all connected clients. Errors never
// reach the caller; a mutation must not fail because a broadcast did.
func (m *Manager) Emit(event string, payload interface{}) {
	data := map[string]interface{}{
		"type":    event,
		"payload": payload,
	}

	msg, err := json.Marshal(data)
	if err != nil {
		log.Printf("Error marshaling %s event: %v", event, err)
		return
	}

	m.broadcast <- msg
}

func (m *Manager) ConnectedClients() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handler upgrades the connection and registers the client with the manager.
// No identity is required to listen; events are public.
func Handler(manager *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed: %v", err)
			return
		}

		client := &Client{
			conn:    conn,
			send:    make(chan []byte, 256),
			done:    make(chan struct{}),
			manager: manager,
		}

		manager.register <- client

		go client.writePump()
		go client.readPump()
	}
}
