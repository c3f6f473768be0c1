package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"balance-game-backend/internal/models"
	"balance-game-backend/internal/services"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientBuffer   = 64
	broadcastQueue = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Message struct {
	Type    string      `json:"type"`
	Address string      `json:"address,omitempty"`
	GameID  *uint64     `json:"game_id,omitempty"`
	Seq     uint64      `json:"seq,omitempty"`
	Data    interface{} `json:"data"`
}

type Client struct {
	Address string
	Conn    *websocket.Conn
	send    chan []byte
}

// WebSocketHub fans ledger events out to connected clients. It implements
// services.Broadcaster; a slow client is dropped rather than allowed to
// hold up the ledger.
type WebSocketHub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	direct     chan directMessage
	done       chan struct{}
}

type directMessage struct {
	client  *Client
	payload []byte
}

func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, broadcastQueue),
		direct:     make(chan directMessage, broadcastQueue),
		done:       make(chan struct{}),
	}
}

// Run owns the client set; only Run writes to or closes a client's send
// channel.
func (hub *WebSocketHub) Run(ctx context.Context) {
	defer close(hub.done)
	for {
		select {
		case <-ctx.Done():
			for client := range hub.clients {
				close(client.send)
				delete(hub.clients, client)
			}
			return

		case client := <-hub.register:
			hub.clients[client] = true
			log.Printf("Client registered: %s", client.Address)

		case client := <-hub.unregister:
			if _, ok := hub.clients[client]; ok {
				delete(hub.clients, client)
				close(client.send)
				log.Printf("Client unregistered: %s", client.Address)
			}

		case msg := <-hub.direct:
			if hub.clients[msg.client] {
				hub.deliver(msg.client, msg.payload)
			}

		case payload := <-hub.broadcast:
			for client := range hub.clients {
				hub.deliver(client, payload)
			}
		}
	}
}

func (hub *WebSocketHub) deliver(client *Client, payload []byte) {
	select {
	case client.send <- payload:
	default:
		delete(hub.clients, client)
		close(client.send)
		log.Printf("Dropped slow client: %s", client.Address)
	}
}

func (hub *WebSocketHub) join(client *Client) bool {
	select {
	case hub.register <- client:
		return true
	case <-hub.done:
		return false
	}
}

func (hub *WebSocketHub) leave(client *Client) {
	select {
	case hub.unregister <- client:
	case <-hub.done:
	}
}

func (hub *WebSocketHub) reply(client *Client, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to encode %s reply: %v", msg.Type, err)
		return
	}
	select {
	case hub.direct <- directMessage{client: client, payload: payload}:
	case <-hub.done:
	default:
		log.Printf("Reply queue full, %s to %s not sent", msg.Type, client.Address)
	}
}

func (hub *WebSocketHub) BroadcastEvent(ev models.Event) {
	gameID := ev.GameID()
	payload, err := json.Marshal(Message{
		Type:   "LEDGER_EVENT",
		GameID: &gameID,
		Seq:    ev.Seq,
		Data:   ev,
	})
	if err != nil {
		log.Printf("Failed to encode event %d: %v", ev.Seq, err)
		return
	}

	select {
	case hub.broadcast <- payload:
	default:
		log.Printf("Broadcast queue full, event %d not pushed", ev.Seq)
	}
}

type WebSocketHandler struct {
	hub  *WebSocketHub
	bank services.Bank
}

func NewWebSocketHandler(hub *WebSocketHub, bank services.Bank) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, bank: bank}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	address := c.GetString("address")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	client := &Client{
		Address: address,
		Conn:    conn,
		send:    make(chan []byte, clientBuffer),
	}

	if !h.hub.join(client) {
		conn.Close()
		return
	}
	go client.writePump()

	h.sendBalance(c.Request.Context(), client)
	h.readPump(c.Request.Context(), client)
}

func (h *WebSocketHandler) readPump(ctx context.Context, client *Client) {
	defer func() {
		h.hub.leave(client)
		client.Conn.Close()
	}()

	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		err := client.Conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}

		switch msg.Type {
		case "PING":
			h.sendPong(client)
		case "GET_BALANCE":
			h.sendBalance(ctx, client)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *WebSocketHandler) sendBalance(ctx context.Context, client *Client) {
	wallet, err := h.bank.GetWallet(ctx, client.Address)
	if err != nil {
		log.Printf("Failed to get wallet for WS: %v", err)
		return
	}

	h.hub.reply(client, Message{
		Type:    "BALANCE_UPDATE",
		Address: client.Address,
		Data: models.BalanceResponse{
			Address:     wallet.Address,
			Balance:     wallet.Balance,
			TotalStaked: wallet.TotalStaked,
			TotalWon:    wallet.TotalWon,
		},
	})
}

func (h *WebSocketHandler) sendPong(client *Client) {
	h.hub.reply(client, Message{
		Type: "PONG",
		Data: gin.H{
			"timestamp": time.Now().Unix(),
		},
	})
}
