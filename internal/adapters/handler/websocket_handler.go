package handler

import (
	"net/http"
	"strings"

	"github.com/IANDYI/maternity-service/internal/adapters/middleware"
	"github.com/IANDYI/maternity-service/internal/adapters/websocket"
	"github.com/rs/zerolog"
)

// WebSocketHandler handles WebSocket connections for labor alerts
type WebSocketHandler struct {
	hub            *websocket.Hub
	authMiddleware *middleware.AuthMiddleware
	logger         zerolog.Logger
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *websocket.Hub, authMiddleware *middleware.AuthMiddleware, logger zerolog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:            hub,
		authMiddleware: authMiddleware,
		logger:         logger.With().Str("component", "websocket_handler").Logger(),
	}
}

// HandleWebSocket handles GET /ws. The token comes from the Authorization header
// or, for browsers, the token query parameter.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	tokenString, ok := middleware.ExtractBearerToken(r.Header.Get("Authorization"))
	if !ok {
		tokenString = r.URL.Query().Get("token")
	}

	if tokenString == "" {
		h.logger.Warn().Msg("websocket connection rejected: missing token")
		http.Error(w, "unauthorized: missing token", http.StatusUnauthorized)
		return
	}

	identity, ok := h.validateToken(tokenString)
	if !ok {
		h.logger.Warn().Msg("websocket connection rejected: invalid token")
		http.Error(w, "unauthorized: invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket upgrade error")
		return
	}

	h.hub.Serve(conn, identity)
}

func (h *WebSocketHandler) validateToken(tokenString string) (websocket.Identity, bool) {
	if h.authMiddleware == nil {
		return websocket.Identity{}, false
	}

	claims, _, err := h.authMiddleware.GetClaimsFromCacheOrParse(tokenString)
	if err != nil {
		h.logger.Warn().Err(err).Msg("token validation failed")
		return websocket.Identity{}, false
	}

	userID, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if userID == "" || role == "" {
		h.logger.Warn().Msg("missing or invalid 'sub' or 'role' claim")
		return websocket.Identity{}, false
	}

	identity := websocket.Identity{UserID: userID, Role: role}
	identity.Email, _ = claims["email"].(string)
	firstName, _ := claims["first_name"].(string)
	lastName, _ := claims["last_name"].(string)
	identity.Name = strings.TrimSpace(firstName + " " + lastName)
	if identity.Name == "" {
		identity.Name = userID
	}
	return identity, true
}
