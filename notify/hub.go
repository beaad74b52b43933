// Package notify pushes order events to connected clients over WebSocket.
// One subscription per user id; buyers hear about their own orders, farmers
// about orders that include their listings.
package notify

import (
	"encoding/json"
	"log"
)

type Client struct {
	UserID string
	Send   chan []byte
}

type broadcastMsg struct {
	UserID string
	Data   []byte
}

type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMsg
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMsg, 64),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[*Client]bool)
			}
			h.clients[client.UserID][client] = true

		case client := <-h.unregister:
			if conns, ok := h.clients[client.UserID]; ok {
				if conns[client] {
					delete(conns, client)
					close(client.Send)
				}
				if len(conns) == 0 {
					delete(h.clients, client.UserID)
				}
			}

		case msg := <-h.broadcast:
			for client := range h.clients[msg.UserID] {
				select {
				case client.Send <- msg.Data:
				default:
					// Slow consumer; drop the connection.
					delete(h.clients[msg.UserID], client)
					close(client.Send)
				}
			}

		case <-h.done:
			for _, conns := range h.clients {
				for client := range conns {
					close(client.Send)
				}
			}
			h.clients = make(map[string]map[*Client]bool)
			return
		}
	}
}

func (h *Hub) Stop() {
	close(h.done)
}

// Register and Unregister give up once the hub has stopped; the run loop is
// gone by then and a bare channel send would block forever.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish fans an event out to every listed user id.
func (h *Hub) Publish(userIDs []string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("notify: marshal event failed: %v", err)
		return
	}
	for _, id := range userIDs {
		select {
		case h.broadcast <- broadcastMsg{UserID: id, Data: data}:
		case <-h.done:
			return
		}
	}
}
