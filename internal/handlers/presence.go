package handlers

import (
	"mipo/server/internal/middleware"
	"mipo/server/internal/models"

	"github.com/gofiber/fiber/v2"
)

// UpdatePresenceRequest represents presence update request body
type UpdatePresenceRequest struct {
	Status string `json:"status"`
}

// PresenceHandler serves per-group presence endpoints.
type PresenceHandler struct {
	presence PresenceService
}

func NewPresenceHandler(presence PresenceService) *PresenceHandler {
	return &PresenceHandler{presence: presence}
}

// GetGroupPresence returns all presence rows in a group
func (h *PresenceHandler) GetGroupPresence(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	groupID, ok := groupIDParam(c)
	if !ok {
		return badRequest(c, "Invalid group id")
	}

	presence, err := h.presence.GetGroupPresence(c.Context(), groupID, userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"presence": presence,
	})
}

// UpdatePresence sets the caller's status in a group
func (h *PresenceHandler) UpdatePresence(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	groupID, ok := groupIDParam(c)
	if !ok {
		return badRequest(c, "Invalid group id")
	}

	var req UpdatePresenceRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if !models.ValidPresenceStatus(req.Status) {
		return badRequest(c, "Invalid presence status")
	}

	presence, err := h.presence.UpdatePresence(c.Context(), groupID, userID, req.Status)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"presence": presence,
	})
}
