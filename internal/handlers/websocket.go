package handlers

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"pulseboard/internal/services"
)

// wsQuery is one inbound chat frame
type wsQuery struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

// wsReply is one outbound chat frame
type wsReply struct {
	Response  string `json:"response,omitempty"`
	SessionID string `json:"session_id"`
	Error     string `json:"error,omitempty"`
}

// WebSocketHandler serves the conversational chat over a websocket. One
// query is answered at a time per connection; the session id assigned on
// the first frame carries the conversational memory.
type WebSocketHandler struct {
	assistant *services.AssistantService
}

// NewWebSocketHandler creates a new websocket chat handler
func NewWebSocketHandler(assistant *services.AssistantService) *WebSocketHandler {
	return &WebSocketHandler{assistant: assistant}
}

// Handle handles one websocket connection
func (h *WebSocketHandler) Handle(c *websocket.Conn) {
	connID := uuid.New().String()
	log.Printf("🔌 [WS] Connection opened: %s", connID)
	defer log.Printf("🔌 [WS] Connection closed: %s", connID)

	for {
		var query wsQuery
		if err := c.ReadJSON(&query); err != nil {
			return
		}

		// Assign a session on first use so follow-up questions work even
		// when the client does not manage ids itself.
		if query.SessionID == "" {
			query.SessionID = uuid.New().String()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		response, err := h.assistant.Answer(ctx, query.Query, query.SessionID)
		cancel()

		reply := wsReply{SessionID: query.SessionID, Response: response}
		if err != nil {
			reply.Error = err.Error()
			reply.Response = ""
		}

		if err := c.WriteJSON(reply); err != nil {
			log.Printf("⚠️ [WS] Write failed on %s: %v", connID, err)
			return
		}
	}
}
