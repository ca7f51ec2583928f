package handler

import (
	"log"

	"github.com/lazarohernan/abogados/internal/model"
	"github.com/lazarohernan/abogados/internal/repository"
	"github.com/lazarohernan/abogados/internal/service"

	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	hub           *service.Hub
	messages      *repository.MessageRepository
	conversations *repository.ConversationRepository
}

func NewAdminHandler(hub *service.Hub, messages *repository.MessageRepository, conversations *repository.ConversationRepository) *AdminHandler {
	return &AdminHandler{hub: hub, messages: messages, conversations: conversations}
}

// Stats reports live-channel and storage totals.
// GET /api/v1/admin/stats
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	messageCount, err := h.messages.CountAll(c.Context())
	if err != nil {
		log.Printf("[Admin] message count failed: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to get stats"})
	}
	conversationCount, err := h.conversations.CountAll(c.Context())
	if err != nil {
		log.Printf("[Admin] conversation count failed: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to get stats"})
	}

	return c.JSON(fiber.Map{
		"online":        h.hub.OnlineCount(),
		"messages":      messageCount,
		"conversations": conversationCount,
	})
}

// Announce pushes a service notice to every connected channel.
// POST /api/v1/admin/announce
func (h *AdminHandler) Announce(c *fiber.Ctx) error {
	var req model.Notice
	if err := c.BodyParser(&req); err != nil || req.Message == "" {
		return c.Status(400).JSON(fiber.Map{"error": "message is required"})
	}

	h.hub.Broadcast(model.NewEvent(model.EventNotice, req))
	return c.JSON(fiber.Map{"ok": true})
}
