package services

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Hub tracks which participants currently hold an open streaming
// connection. It owns no authoritative state: each client's outbound
// feed is its broadcaster event stream, the hub only registers the
// connection for diagnostics and tears it down on disconnect.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	clients    map[*Client]bool
}

// Client is one live websocket connection of one participant.
type Client struct {
	hub      *Hub
	id       string // participant id
	gameID   string
	socket   *websocket.Conn
	events   <-chan []byte
	detach   func()
	closeOne sync.Once
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			log.Printf("Client connected: %s for game %s - total clients: %d", client.id, client.gameID, h.Count())

		case client := <-h.unregister:
			h.mutex.Lock()
			delete(h.clients, client)
			h.mutex.Unlock()
			log.Printf("Client disconnected: %s for game %s - total clients: %d", client.id, client.gameID, h.Count())
		}
	}
}

// RegisterClient attaches a websocket connection to its event stream
// and starts the read/write pumps. detach must be the stream's cancel
// func; it runs exactly once when the connection goes away.
func (h *Hub) RegisterClient(conn *websocket.Conn, gameID, participantID string, events <-chan []byte, detach func()) *Client {
	client := &Client{
		hub:    h,
		id:     participantID,
		gameID: gameID,
		socket: conn,
		events: events,
		detach: detach,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
	return client
}

// ConnectedClients returns the participant ids with an open connection
// for the game.
func (h *Hub) ConnectedClients(gameID string) []string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	var ids []string
	for client := range h.clients {
		if client.gameID == gameID {
			ids = append(ids, client.id)
		}
	}
	return ids
}

// IsConnected reports whether the participant holds an open connection.
func (h *Hub) IsConnected(gameID, participantID string) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for client := range h.clients {
		if client.gameID == gameID && client.id == participantID {
			return true
		}
	}
	return false
}

// Count returns the total number of open connections.
func (h *Hub) Count() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (c *Client) close() {
	c.closeOne.Do(func() {
		c.detach()
		c.hub.unregister <- c
		c.socket.Close()
	})
}

// writePump forwards the event stream to the socket and keeps the
// connection alive with protocol pings between events.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message, ok := <-c.events:
			c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the socket for liveness only; clients have no inbound
// protocol, all triggers arrive over HTTP.
func (c *Client) readPump() {
	defer c.close()

	c.socket.SetReadLimit(4096)
	c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		c.socket.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.socket.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error for client %s: %v", c.id, err)
			}
			return
		}
	}
}
