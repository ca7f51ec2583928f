package handler

import (
	"errors"
	"log"

	"github.com/lazarohernan/abogados/internal/model"
	"github.com/lazarohernan/abogados/internal/repository"

	"github.com/gofiber/fiber/v2"
)

type ChatHandler struct {
	conversations *repository.ConversationRepository
	messages      *repository.MessageRepository
}

func NewChatHandler(conversations *repository.ConversationRepository, messages *repository.MessageRepository) *ChatHandler {
	return &ChatHandler{conversations: conversations, messages: messages}
}

// CreateConversation opens a new conversation for the authenticated user.
// POST /api/v1/conversations
func (h *ChatHandler) CreateConversation(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	conv, err := h.conversations.Create(c.Context(), userID)
	if err != nil {
		log.Printf("[Chat] create conversation failed for %s: %v", userID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to create conversation"})
	}
	return c.Status(201).JSON(conv)
}

// GetHistory returns the full ordered history of one conversation.
// GET /api/v1/conversations/:id/messages
func (h *ChatHandler) GetHistory(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	conversationID := c.Params("id")

	conv, err := h.conversations.Get(c.Context(), conversationID)
	if err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "conversation not found"})
		}
		log.Printf("[Chat] conversation lookup failed: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to get conversation"})
	}
	// Foreign conversations look identical to missing ones.
	if conv.UserID != userID {
		return c.Status(404).JSON(fiber.Map{"error": "conversation not found"})
	}

	msgs, err := h.messages.History(c.Context(), conversationID)
	if err != nil {
		log.Printf("[Chat] history query failed for %s: %v", conversationID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to get history"})
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return c.JSON(fiber.Map{"messages": msgs})
}
