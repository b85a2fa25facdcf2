package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Krimson/triage-kiosk/kiosk/internal/display"
)

// Hub рассылает кадры зеркала экрана WebSocket-клиентам
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]bool

	// Канал для регистрации клиентов
	register chan *Client

	// Канал для отмены регистрации клиентов
	unregister chan *Client

	// Канал для рассылки кадров
	broadcast chan []byte

	// Закрывается при остановке Run
	done chan struct{}

	mu     sync.RWMutex
	mirror *display.Mirror
}

// Client представляет WebSocket клиента
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// Буферизованный канал исходящих сообщений
	send chan []byte
}

// FrameMessage - кадр экрана в формате для фронтенда
type FrameMessage struct {
	L1  string `json:"l1"`
	L2  string `json:"l2"`
	L3  string `json:"l3"`
	L4  string `json:"l4"`
	Seq uint64 `json:"seq"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Киоск работает в закрытой локальной сети
		return true
	},
}

// NewHub создает Hub и подписывает его на изменения зеркала
func NewHub(mirror *display.Mirror) *Hub {
	h := &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		mirror:     mirror,
	}
	mirror.Subscribe(h.BroadcastFrame)
	return h
}

// Run запускает Hub до отмены контекста
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("[WEBSOCKET] Client registered: %p", client)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("[WEBSOCKET] Client unregistered: %p", client)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Медленный клиент отключается
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount возвращает число подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastFrame отправляет кадр всем клиентам
func (h *Hub) BroadcastFrame(f display.Frame, seq uint64) {
	message, err := encodeFrame(f, seq)
	if err != nil {
		log.Printf("[ERROR] Failed to marshal frame: %v", err)
		return
	}

	select {
	case h.broadcast <- message:
	default:
		log.Printf("[WARN] Broadcast channel full, dropping frame %d", seq)
	}
}

func encodeFrame(f display.Frame, seq uint64) ([]byte, error) {
	return json.Marshal(FrameMessage{L1: f[0], L2: f[1], L3: f[2], L4: f[3], Seq: seq})
}

// HandleWebSocket обрабатывает WebSocket соединения и сразу отдает текущий кадр
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ERROR] Failed to upgrade connection: %v", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}

	frame, seq := h.mirror.Frame()
	if message, err := encodeFrame(frame, seq); err == nil {
		client.send <- message
	}

	select {
	case client.hub.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Запускаем горутины для клиента
	go client.writePump()
	go client.readPump()
}

// readPump читает входящие сообщения только чтобы заметить закрытие
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[ERROR] WebSocket error: %v", err)
			}
			break
		}
	}
}

// writePump отправляет сообщения клиенту
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("[ERROR] Failed to write message: %v", err)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
