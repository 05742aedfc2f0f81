package routes

import (
	"mipo/server/internal/handlers"
	"mipo/server/internal/middleware"
	"mipo/server/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// Handlers bundles everything SetupRoutes needs to wire the API.
type Handlers struct {
	Auth     *handlers.AuthHandler
	Group    *handlers.GroupHandler
	Presence *handlers.PresenceHandler
	JWT      *utils.JWTManager
}

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, h Handlers) {
	requireAuth := middleware.Auth(h.JWT)

	// API v1 group
	api := app.Group("/api/v1")

	// Health check (public)
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Mi Po API is running",
		})
	})

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/send-code", middleware.StrictRateLimiter(), h.Auth.SendVerificationCode)
	auth.Post("/create", middleware.StrictRateLimiter(), h.Auth.Create)
	auth.Post("/login", middleware.StrictRateLimiter(), h.Auth.Login)
	auth.Post("/logout", h.Auth.Logout)
	auth.Get("/me", requireAuth, h.Auth.GetMe)
	auth.Patch("/me", requireAuth, h.Auth.UpdateMe)

	// Group routes (protected). Auth runs first so the limiter keys by
	// user id rather than IP.
	groups := api.Group("/groups", requireAuth, middleware.ModerateRateLimiter())
	groups.Post("/", h.Group.CreateGroup)
	groups.Post("/join", h.Group.JoinGroup)
	groups.Get("/", h.Group.GetMyGroups)
	groups.Get("/:groupId", h.Group.GetGroupDetails)
	groups.Put("/:groupId", h.Group.UpdateGroup)
	groups.Delete("/:groupId", h.Group.DeleteGroup)
	groups.Post("/:groupId/leave", h.Group.LeaveGroup)
	groups.Get("/:groupId/member", h.Group.GetCurrentGroupMember)
	groups.Patch("/:groupId/member", h.Group.UpdateMemberDetails)

	// Presence routes (protected)
	groups.Get("/:groupId/presence", h.Presence.GetGroupPresence)
	groups.Put("/:groupId/presence", h.Presence.UpdatePresence)
}
