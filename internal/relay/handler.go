package relay

import (
	"encoding/json"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/PadhikariDev/querynest/internal/model"
	"github.com/PadhikariDev/querynest/internal/session"
)

// readDeadline closes connections that stay silent; clients ping well within it.
const readDeadline = 60 * time.Second

const anonymousUser = "anonymous"

type WSHandler struct {
	hub       *Hub
	jwtSecret string
	logger    zerolog.Logger
}

func NewWSHandler(hub *Hub, jwtSecret string, logger zerolog.Logger) *WSHandler {
	return &WSHandler{hub: hub, jwtSecret: jwtSecret, logger: logger.With().Str("component", "ws").Logger()}
}

// Upgrade accepts websocket upgrades on /ws. With a JWT secret configured the
// token query parameter must carry a valid token.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	userName := anonymousUser
	if h.jwtSecret != "" {
		token := c.Query("token")
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "token required"})
		}
		id, err := session.Verify(h.jwtSecret, token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}
		userName = id.UserName
	}

	c.Locals("user_name", userName)
	return websocket.New(h.handleConnection)(c)
}

func (h *WSHandler) handleConnection(c *websocket.Conn) {
	userName, _ := c.Locals("user_name").(string)
	client := NewClient(userName)
	logger := h.logger.With().Str("client_id", client.ID).Str("user", userName).Logger()

	h.hub.Register(client)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer c.Close()
		for msg := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}()
	defer func() {
		h.hub.Unregister(client)
		<-writerDone
	}()

	_ = c.SetReadDeadline(time.Now().Add(readDeadline))
	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			return
		}
		_ = c.SetReadDeadline(time.Now().Add(readDeadline))

		var event model.WSEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			continue
		}

		switch event.Type {
		case model.EventPing:
			pong, _ := json.Marshal(model.WSEvent{Type: model.EventPong})
			select {
			case client.Send <- pong:
			default:
			}
		case model.EventJoinRoom:
			var roomID string
			if err := json.Unmarshal(event.Data, &roomID); err != nil || roomID == "" {
				logger.Debug().Msg("joinRoom without room id")
				continue
			}
			h.hub.Join(client, roomID)
			logger.Debug().Str("room_id", roomID).Msg("joined room")
		case model.EventSendMessage:
			h.relay(logger, event.Data)
		default:
			logger.Debug().Str("type", event.Type).Msg("unknown event type")
		}
	}
}

func (h *WSHandler) relay(logger zerolog.Logger, data json.RawMessage) {
	var out model.OutboundMessage
	if err := json.Unmarshal(data, &out); err != nil || out.RoomID == "" {
		logger.Debug().Msg("sendMessage without room id")
		return
	}
	msg := out.ChatMessage
	if msg.Time.IsZero() {
		msg.Time = time.Now().UTC()
	}

	event, err := model.NewWSEvent(model.EventReceiveMessage, model.InboundMessage{RoomID: out.RoomID, Message: &msg})
	if err != nil {
		return
	}
	n := h.hub.BroadcastToRoom(out.RoomID, event)
	logger.Debug().Str("room_id", out.RoomID).Int("delivered", n).Msg("message relayed")
}
