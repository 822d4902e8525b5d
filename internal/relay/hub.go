// Package relay is a development stand-in for the QueryNest realtime server.
// Connections join rooms keyed by query id and every message sent to a room
// is echoed as receiveMessage to all of its members, the sender included.
package relay

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/PadhikariDev/querynest/internal/model"
)

const sendBuffer = 256

type Client struct {
	ID       string
	UserName string
	Send     chan []byte

	rooms map[string]struct{}
}

func NewClient(userName string) *Client {
	return &Client{
		ID:       uuid.NewString(),
		UserName: userName,
		Send:     make(chan []byte, sendBuffer),
		rooms:    make(map[string]struct{}),
	}
}

// announcement is a system message for every room every client has joined.
type announcement struct {
	msg    *model.ChatMessage
	result chan int
}

type Hub struct {
	logger zerolog.Logger

	clients    map[*Client]struct{}
	rooms      map[string]map[*Client]struct{}
	unregister chan *Client
	broadcast  chan announcement
	mu         sync.RWMutex
	done       chan struct{}
	stopOnce   sync.Once

	relayed atomic.Int64
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger:     logger.With().Str("component", "hub").Logger(),
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		unregister: make(chan *Client),
		broadcast:  make(chan announcement),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.unregister:
			h.remove(client)

		case a := <-h.broadcast:
			a.result <- h.announce(a.msg)

		case <-h.done:
			return
		}
	}
}

func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register adds client before returning so that a join right after the
// upgrade always finds it.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug().Str("client_id", client.ID).Str("user", client.UserName).Int("total", total).Msg("client connected")
}

// Unregister removes client from the hub and every room and closes its Send
// channel. Safe to call after Shutdown.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		h.remove(client)
	}
}

// Join adds client to roomID. Joining twice is harmless.
func (h *Hub) Join(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[roomID] = members
	}
	members[client] = struct{}{}
	client.rooms[roomID] = struct{}{}
}

// Broadcast delivers msg as receiveMessage into every room each connected
// client has joined and reports how many clients were reached. Clients too
// slow to take it are dropped. Returns 0 once the hub is shut down.
func (h *Hub) Broadcast(msg *model.ChatMessage) int {
	a := announcement{msg: msg, result: make(chan int, 1)}
	select {
	case h.broadcast <- a:
	case <-h.done:
		return 0
	}
	select {
	case n := <-a.result:
		return n
	case <-h.done:
		return 0
	}
}

// BroadcastToRoom delivers event to the members of roomID and reports how
// many were reached. Members whose buffer is full miss the event.
func (h *Hub) BroadcastToRoom(roomID string, event *model.WSEvent) int {
	data, err := json.Marshal(event)
	if err != nil {
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for client := range h.rooms[roomID] {
		select {
		case client.Send <- data:
			delivered++
		default:
			h.logger.Warn().Str("client_id", client.ID).Str("room_id", roomID).Msg("send buffer full, dropping event")
		}
	}
	h.relayed.Add(1)
	return delivered
}

func (h *Hub) OnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// Relayed counts room broadcasts and announcements since start.
func (h *Hub) Relayed() int64 { return h.relayed.Load() }

func (h *Hub) announce(msg *model.ChatMessage) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for client := range h.clients {
		frames := make([][]byte, 0, len(client.rooms))
		for roomID := range client.rooms {
			event, err := model.NewWSEvent(model.EventReceiveMessage, model.InboundMessage{RoomID: roomID, Message: msg})
			if err != nil {
				continue
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			frames = append(frames, data)
		}
		if len(frames) == 0 {
			continue
		}
		if !trySendAll(client, frames) {
			h.logger.Warn().Str("client_id", client.ID).Msg("send buffer full, dropping client")
			h.dropLocked(client)
			continue
		}
		delivered++
	}
	h.relayed.Add(1)
	return delivered
}

func trySendAll(client *Client, frames [][]byte) bool {
	for _, data := range frames {
		select {
		case client.Send <- data:
		default:
			return false
		}
	}
	return true
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	h.dropLocked(client)
	h.logger.Debug().Str("client_id", client.ID).Int("total", len(h.clients)).Msg("client disconnected")
}

func (h *Hub) dropLocked(client *Client) {
	for roomID := range client.rooms {
		if members, ok := h.rooms[roomID]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	client.rooms = make(map[string]struct{})
	delete(h.clients, client)
	close(client.Send)
}
