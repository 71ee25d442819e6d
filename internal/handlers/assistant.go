package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"pulseboard/internal/services"
)

// AnswerRequest is the request body shared by the answer endpoints
type AnswerRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

// AssistantHandler exposes the assistant entry points over HTTP
type AssistantHandler struct {
	assistant *services.AssistantService
}

// NewAssistantHandler creates a new assistant handler
func NewAssistantHandler(assistant *services.AssistantService) *AssistantHandler {
	return &AssistantHandler{assistant: assistant}
}

// Answer handles POST /api/assistant/answer - the routed entry point
func (h *AssistantHandler) Answer(c *fiber.Ctx) error {
	return h.respond(c, func(req *AnswerRequest) (string, error) {
		return h.assistant.Answer(c.Context(), req.Query, req.SessionID)
	})
}

// Analytics handles POST /api/assistant/analytics - the SQL pipeline
func (h *AssistantHandler) Analytics(c *fiber.Ctx) error {
	return h.respond(c, func(req *AnswerRequest) (string, error) {
		return h.assistant.AnalyticsAnswer(c.Context(), req.Query, req.SessionID)
	})
}

// KnowledgeBase handles POST /api/assistant/knowledge-base - the dataset pipeline
func (h *AssistantHandler) KnowledgeBase(c *fiber.Ctx) error {
	return h.respond(c, func(req *AnswerRequest) (string, error) {
		return h.assistant.KnowledgeBaseAnswer(c.Context(), req.Query, req.SessionID)
	})
}

// Helpdesk handles POST /api/assistant/helpdesk - how-to questions
func (h *AssistantHandler) Helpdesk(c *fiber.Ctx) error {
	return h.respond(c, func(req *AnswerRequest) (string, error) {
		return h.assistant.HelpdeskAnswer(c.Context(), req.Query, req.SessionID)
	})
}

// ClearSession handles DELETE /api/assistant/sessions/:id
func (h *AssistantHandler) ClearSession(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session id is required",
		})
	}

	if err := h.assistant.ClearSession(c.Context(), sessionID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to clear session",
		})
	}

	return c.JSON(fiber.Map{"status": "cleared"})
}

func (h *AssistantHandler) respond(c *fiber.Ctx, answer func(*AnswerRequest) (string, error)) error {
	var req AnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	response, err := answer(&req)
	if err != nil {
		if errors.Is(err, services.ErrEmptyInput) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "query must not be empty",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to answer",
		})
	}

	return c.JSON(fiber.Map{
		"response":   response,
		"session_id": req.SessionID,
	})
}
