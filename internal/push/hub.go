// Package push доставляет события реального времени подключённым клиентам
// через WebSocket. Клиенты группируются по аккаунту.
package push

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/sl"
	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type client struct {
	accountID string
	conn      *websocket.Conn
	send      chan []byte
}

// Hub хранит открытые соединения по аккаунтам.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
	log     *slog.Logger
}

// NewHub создаёт пустой Hub.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		log:     log,
	}
}

// Emit отправляет событие всем соединениям аккаунта. Медленные клиенты с
// переполненным буфером пропускают событие.
func (h *Hub) Emit(accountID string, event models.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("failed to marshal push event", slog.String("type", string(event.Type)), sl.Err(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[accountID] {
		select {
		case c.send <- data:
		default:
			h.log.Warn("push buffer full, event dropped",
				slog.String("account_id", accountID),
				slog.String("type", string(event.Type)))
		}
	}
}

// Connections возвращает число открытых соединений аккаунта.
func (h *Hub) Connections(accountID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[accountID])
}

// ServeWS переводит запрос в WebSocket и регистрирует соединение за accountID.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, accountID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", sl.Err(err))
		return
	}
	c := &client{accountID: accountID, conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(c)

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.accountID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.accountID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.accountID]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.accountID)
	}
}

// readPump только поддерживает соединение: входящие сообщения игнорируются.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read error", slog.String("account_id", c.accountID), sl.Err(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
