package handler

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/lazarohernan/abogados/internal/config"
	"github.com/lazarohernan/abogados/internal/model"
	"github.com/lazarohernan/abogados/internal/repository"
	"github.com/lazarohernan/abogados/internal/service"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const readDeadline = 60 * time.Second

type WSHandler struct {
	hub           *service.Hub
	guard         *service.Guard
	messages      *repository.MessageRepository
	conversations *repository.ConversationRepository
	responder     service.Responder
	streamDelay   time.Duration
	jwtSecret     []byte
}

func NewWSHandler(hub *service.Hub, guard *service.Guard, messages *repository.MessageRepository, conversations *repository.ConversationRepository, responder service.Responder, cfg *config.Config) *WSHandler {
	return &WSHandler{
		hub:           hub,
		guard:         guard,
		messages:      messages,
		conversations: conversations,
		responder:     responder,
		streamDelay:   cfg.StreamDelay,
		jwtSecret:     []byte(cfg.JWTSecret),
	}
}

func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	// Browsers cannot set headers on WebSocket dials, so the token rides in
	// the query string.
	token := c.Query("token")
	if token == "" {
		return c.Status(401).JSON(fiber.Map{"error": "token required"})
	}

	userID, err := h.validateToken(token)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "invalid token"})
	}

	c.Locals("user_id", userID)
	return websocket.New(h.handleConnection)(c)
}

func (h *WSHandler) validateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return h.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", jwt.ErrTokenUnverifiable
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", jwt.ErrTokenInvalidClaims
	}
	userID, _ := claims["sub"].(string)
	if userID == "" {
		return "", jwt.ErrTokenInvalidClaims
	}
	return userID, nil
}

func (h *WSHandler) handleConnection(c *websocket.Conn) {
	userID, _ := c.Locals("user_id").(string)

	client := service.NewChannelClient(c, userID)
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	// One relay per connection; ctx cancellation is how disconnects abort an
	// in-flight request.
	relay := service.NewRelay(h.guard, h.messages, h.responder, h.streamDelay)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Writer pump
	go func() {
		defer c.Close()
		for msg := range client.Outbox() {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
	}()

	c.SetReadDeadline(time.Now().Add(readDeadline))
	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			break
		}
		c.SetReadDeadline(time.Now().Add(readDeadline))

		var event model.WSEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			continue
		}

		switch event.Type {
		case model.EventPing:
			client.Emit(model.NewEvent(model.EventPong, nil))

		case model.EventSend:
			var req model.SendRequest
			if err := json.Unmarshal(event.Data, &req); err != nil {
				client.Emit(model.NewRelayError(model.ErrValidation).Event())
				continue
			}
			if !h.ownsConversation(ctx, req.ConversationID, userID) {
				client.Emit(model.NewRelayError(model.ErrValidation).Event())
				continue
			}
			// Handled off the read loop so disconnects and overlapping sends
			// are still observed while a request is in flight.
			go func() {
				if err := relay.Handle(ctx, client, userID, req.ConversationID, req.Content); err != nil {
					log.Printf("[WS] send from %s not relayed: %v", userID, err)
				}
			}()

		default:
			log.Printf("[WS] unknown event type %q from %s", event.Type, userID)
		}
	}
}

func (h *WSHandler) ownsConversation(ctx context.Context, conversationID, userID string) bool {
	if conversationID == "" {
		return false
	}
	conv, err := h.conversations.Get(ctx, conversationID)
	if err != nil {
		return false
	}
	return conv.UserID == userID
}
