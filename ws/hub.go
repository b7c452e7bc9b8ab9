package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"mcapServer/config"
	"mcapServer/db"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LeaderboardReader supplies the snapshot sent to new subscribers
type LeaderboardReader interface {
	TopScores(ctx context.Context, limit int) ([]*db.ScoreRecord, error)
}

// Event is the envelope of every message pushed to subscribers
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ClientMessage is what subscribers may send
type ClientMessage struct {
	Type string `json:"type"`
}

// Client is one live leaderboard subscriber
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
	hub  *Hub
}

// directMessage is addressed to a single subscriber
type directMessage struct {
	client  *Client
	message []byte
}

// Hub fans leaderboard events out to websocket subscribers
type Hub struct {
	board LeaderboardReader

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	direct     chan directMessage
	done       chan struct{}

	clientIDCounter int64
	clientCount     int64
}

func NewHub(board LeaderboardReader) *Hub {
	return &Hub{
		board:      board,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 100),
		direct:     make(chan directMessage, 16),
		done:       make(chan struct{}),
	}
}

// Run is the central dispatcher. It returns when ctx is cancelled, closing
// every subscriber.
func (h *Hub) Run(ctx context.Context) {
	log.Println("🚀 Leaderboard hub started")
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			atomic.StoreInt64(&h.clientCount, int64(len(h.clients)))
			log.Printf("✅ Leaderboard client registered: %s (Total: %d)", client.ID, len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			atomic.StoreInt64(&h.clientCount, int64(len(h.clients)))
			log.Printf("👋 Leaderboard client unregistered: %s (Total: %d)", client.ID, len(h.clients))

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// slow reader, drop it
					log.Printf("⚠️  Client %s send buffer full, disconnecting", client.ID)
					delete(h.clients, client)
					close(client.Send)
				}
			}
			atomic.StoreInt64(&h.clientCount, int64(len(h.clients)))

		case dm := <-h.direct:
			if _, ok := h.clients[dm.client]; ok {
				select {
				case dm.client.Send <- dm.message:
				default:
				}
			}

		case <-ctx.Done():
			for client := range h.clients {
				close(client.Send)
			}
			h.clients = map[*Client]bool{}
			atomic.StoreInt64(&h.clientCount, 0)
			log.Println("🛑 Leaderboard hub stopped")
			return
		}
	}
}

// ClientCount reports the number of registered subscribers
func (h *Hub) ClientCount() int {
	return int(atomic.LoadInt64(&h.clientCount))
}

// Publish queues an event for every subscriber. It never blocks.
func (h *Hub) Publish(eventType string, data interface{}) {
	message, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		log.Printf("❌ Failed to marshal %s event: %v", eventType, err)
		return
	}

	select {
	case h.broadcast <- message:
	case <-h.done:
	default:
		log.Printf("⚠️  Leaderboard broadcast queue full, dropping %s", eventType)
	}
}

// ServeHTTP upgrades the connection and subscribes it to the feed
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log.Println("📥 Leaderboard WebSocket connection from:", r.RemoteAddr)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("❌ WebSocket upgrade failed:", err)
		return
	}

	client := &Client{
		ID:   fmt.Sprintf("lb-%d", atomic.AddInt64(&h.clientIDCounter, 1)),
		Conn: conn,
		Send: make(chan []byte, config.WSSendBuffer),
		hub:  h,
	}

	// queued before registration so it is always the first frame
	if snapshot := h.loadSnapshot(r.Context()); snapshot != nil {
		client.Send <- snapshot
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// loadSnapshot returns the encoded leaderboard_snapshot event, nil if there
// is nothing to send
func (h *Hub) loadSnapshot(ctx context.Context) []byte {
	if h.board == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	records, err := h.board.TopScores(ctx, config.LeaderboardSize)
	if err != nil {
		log.Printf("⚠️  Failed to load leaderboard snapshot: %v", err)
		return nil
	}

	message, err := json.Marshal(Event{Type: "leaderboard_snapshot", Data: records})
	if err != nil {
		log.Printf("❌ Failed to marshal leaderboard snapshot: %v", err)
		return nil
	}
	return message
}

// writePump sends queued messages and keeps the connection alive
func (c *Client) writePump() {
	ticker := time.NewTicker(config.WSPingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("❌ Write error for client %s: %v", c.ID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump handles refresh requests until the client goes away
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(config.WSPongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(config.WSPongWait))
		return nil
	})

	for {
		_, messageBytes, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("❌ Read error for client %s: %v", c.ID, err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Printf("❌ Failed to parse message from client %s: %v", c.ID, err)
			continue
		}

		switch msg.Type {
		case "refresh":
			if snapshot := c.hub.loadSnapshot(context.Background()); snapshot != nil {
				select {
				case c.hub.direct <- directMessage{client: c, message: snapshot}:
				case <-c.hub.done:
					return
				}
			}
		default:
			log.Printf("⚠️  Unknown message type from client %s: %s", c.ID, msg.Type)
		}
	}
}
