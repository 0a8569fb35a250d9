// Package bot is the chat front end: a websocket gateway whose sessions are
// paired to accounts with short-lived link codes, plus a command interpreter
// that translates chat commands into engine calls.
package bot

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/PolDiaz18/nexotime/engine"
	"github.com/PolDiaz18/nexotime/models"
	"github.com/PolDiaz18/nexotime/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// In production, adjust the CheckOrigin function to allow only trusted origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

// Frame is the wire format both directions.
type Frame struct {
	Type      string `json:"type"` // welcome | message | error
	ChatID    string `json:"chat_id,omitempty"`
	Content   string `json:"content,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// Client is one connected chat session.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	chatID string
	userID uint // 0 until linked
	send   chan Frame
}

// Hub tracks connected sessions by chat id and delivers proactive
// notifications. It implements the scheduler's Notifier.
type Hub struct {
	db     *gorm.DB
	engine *engine.Engine
	clock  engine.Clock
	log    *zap.Logger

	// invalidate drops a user's cached day summaries after a mutation.
	// Swappable so command tests run without a cache backend.
	invalidate func(userID uint)

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub builds the chat gateway.
func NewHub(db *gorm.DB, eng *engine.Engine, clock engine.Clock, log *zap.Logger) *Hub {
	if clock == nil {
		clock = engine.SystemClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		db:     db,
		engine: eng,
		clock:  clock,
		log:    log,
		invalidate: func(userID uint) {
			utils.InvalidateByPrefix(fmt.Sprintf("summary:%d:", userID))
		},
		clients: make(map[string]*Client),
	}
}

func (h *Hub) invalidateSummaries(userID uint) {
	if h.invalidate != nil {
		h.invalidate(userID)
	}
}

// Handler upgrades a websocket connection. The client passes its stable chat
// id as ?chat=; a first-time client gets a fresh one in the welcome frame.
// If an account is already paired to that chat id the session is
// authenticated immediately, otherwise only /vincular works.
func (h *Hub) Handler(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	chatID := c.Query("chat")
	if chatID == "" {
		chatID = uuid.NewString()
	}

	client := &Client{hub: h, conn: conn, chatID: chatID, send: make(chan Frame, 16)}
	var user models.User
	if err := h.db.Where("chat_id = ?", chatID).First(&user).Error; err == nil {
		client.userID = user.ID
	}

	h.register(client)
	go client.writePump()
	client.queue(Frame{Type: "welcome", ChatID: chatID, Content: "NexoTime listo. Escriba /help para ver los comandos."})
	go client.readPump()
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	if old, ok := h.clients[client.chatID]; ok {
		close(old.send)
		old.conn.Close()
	}
	h.clients[client.chatID] = client
	h.mu.Unlock()
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	if h.clients[client.chatID] == client {
		delete(h.clients, client.chatID)
		close(client.send)
	}
	h.mu.Unlock()
	client.conn.Close()
}

// Send delivers a proactive message to the user's chat session. An offline
// user falls back to email when SMTP is configured.
func (h *Hub) Send(user *models.User, text string) error {
	h.mu.RLock()
	client, online := h.clients[user.ChatID]
	h.mu.RUnlock()
	if online {
		client.queue(Frame{Type: "message", Content: text, Timestamp: h.clock.Now().Unix()})
		return nil
	}
	if user.Email != "" {
		return utils.SendMail(user.Email, "NexoTime", text)
	}
	return fmt.Errorf("user %d has no reachable transport", user.ID)
}

func (c *Client) queue(f Frame) {
	select {
	case c.send <- f:
	default:
		// Slow consumer, drop the frame rather than block the hub.
	}
}

func (c *Client) readPump() {
	defer c.hub.unregister(c)
	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		var in Frame
		if err := c.conn.ReadJSON(&in); err != nil {
			return
		}
		if in.Content == "" {
			continue
		}
		reply := c.hub.handleCommand(c, in.Content)
		if reply != "" {
			c.queue(Frame{Type: "message", Content: reply, Timestamp: c.hub.clock.Now().Unix()})
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case f, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(f); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
