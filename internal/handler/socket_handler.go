package handler

import (
	"context"

	"locus/internal/pkg/logger"
	"locus/internal/pkg/serverutils"
	"locus/internal/service"
	internalWS "locus/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const anonymousUser = "anonymous"

// UserResolver names the owner of a token.
type UserResolver interface {
	UserName(ctx context.Context, claims *serverutils.Claims) (string, error)
}

type SocketHandler struct {
	hub       *internalWS.Hub
	chat      service.IChatService
	users     UserResolver
	jwtSecret string
	revoked   serverutils.RevocationList
	ctx       context.Context
	logger    logger.ILogger
}

// NewSocketHandler serves the chat socket. Sessions end when ctx is done.
func NewSocketHandler(
	ctx context.Context,
	hub *internalWS.Hub,
	chat service.IChatService,
	users UserResolver,
	jwtSecret string,
	revoked serverutils.RevocationList,
	log logger.ILogger,
) *SocketHandler {
	return &SocketHandler{
		hub:       hub,
		chat:      chat,
		users:     users,
		jwtSecret: jwtSecret,
		revoked:   revoked,
		ctx:       ctx,
		logger:    log,
	}
}

func (h *SocketHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws", h.ServeWs)
}

// ServeWs upgrades the request. A token is optional; when one is sent it
// must be valid and names the speaker.
func (h *SocketHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	// 1. Resolve the speaker
	userName := anonymousUser
	if tokenStr := serverutils.BearerToken(c); tokenStr != "" {
		claims, err := serverutils.Authenticate(c.UserContext(), h.jwtSecret, h.revoked, tokenStr)
		if err != nil {
			h.logger.Warn("SocketHandler", "Invalid token in WS handshake", map[string]interface{}{"error": err.Error()})
			return err
		}
		name, err := h.users.UserName(c.UserContext(), claims)
		if err != nil {
			return err
		}
		userName = name
	}

	// 2. Upgrade
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("SocketHandler", "Starting WebSocket session", map[string]interface{}{"user": userName})
		internalWS.ServeWs(h.ctx, h.hub, conn, userName, h.chat)
		h.logger.Info("SocketHandler", "WebSocket session ended", map[string]interface{}{"user": userName})
	})(c)
}
