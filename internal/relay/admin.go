package relay

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/PadhikariDev/querynest/internal/model"
)

// AnnounceSender is the sender name on admin announcements.
const AnnounceSender = "QueryNest"

type AdminHandler struct {
	hub *Hub
}

func NewAdminHandler(hub *Hub) *AdminHandler {
	return &AdminHandler{hub: hub}
}

func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"clients_online":   h.hub.OnlineCount(),
		"rooms_active":     h.hub.RoomCount(),
		"messages_relayed": h.hub.Relayed(),
	})
}

// Announce posts a system message into one room, or into every joined room
// when roomId is empty.
func (h *AdminHandler) Announce(c *fiber.Ctx) error {
	var req model.WSAnnounce
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	req.RoomID = strings.TrimSpace(req.RoomID)
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "text is required"})
	}
	if req.Tag == "" {
		req.Tag = model.DefaultTag
	}

	msg := &model.ChatMessage{
		Sender: AnnounceSender,
		Text:   req.Text,
		Role:   model.RoleSystem,
		Tag:    req.Tag,
		Time:   time.Now().UTC(),
	}
	if req.RoomID == "" {
		return c.JSON(fiber.Map{"ok": true, "delivered": h.hub.Broadcast(msg)})
	}

	event, err := model.NewWSEvent(model.EventReceiveMessage, model.InboundMessage{RoomID: req.RoomID, Message: msg})
	if err != nil {
		return err
	}
	delivered := h.hub.BroadcastToRoom(req.RoomID, event)
	return c.JSON(fiber.Map{"ok": true, "delivered": delivered})
}

type HealthHandler struct {
	hub *Hub
}

func NewHealthHandler(hub *Hub) *HealthHandler {
	return &HealthHandler{hub: hub}
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "clients": h.hub.OnlineCount()})
}
