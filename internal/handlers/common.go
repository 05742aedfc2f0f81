package handlers

import (
	"context"
	"errors"
	"time"

	"mipo/server/internal/models"
	"mipo/server/internal/services"
	"mipo/server/internal/verify"

	"github.com/gofiber/fiber/v2"
)

// AuthService is what the auth handlers need from the service layer.
type AuthService interface {
	SendVerificationCode(ctx context.Context, rawPhone string) (time.Time, error)
	Create(ctx context.Context, rawPhone, code, displayName, inviteCode string) (models.User, error)
	Login(ctx context.Context, rawPhone, code string) (models.User, error)
	GetUser(ctx context.Context, id string) (models.User, error)
	UpdateDisplayName(ctx context.Context, id, displayName string) (models.User, error)
}

// GroupService is what the group handlers need from the service layer.
type GroupService interface {
	CreateGroup(ctx context.Context, name, groupType, creatorID string) (models.Group, error)
	JoinGroup(ctx context.Context, userID, inviteCode string) (models.Group, models.GroupMember, error)
	GetUserGroups(ctx context.Context, userID string) ([]models.GroupWithRole, error)
	GetGroupDetails(ctx context.Context, groupID, userID string) (models.Group, []models.MemberWithUser, string, error)
	GetCurrentGroupMember(ctx context.Context, groupID, userID string) (models.GroupMember, models.User, error)
	UpdateGroup(ctx context.Context, groupID, userID string, name *string) (models.Group, error)
	UpdateMemberDetails(ctx context.Context, groupID, userID string, displayName, details *string) error
	DeleteGroup(ctx context.Context, groupID, userID string) (models.Group, error)
	LeaveGroup(ctx context.Context, groupID, userID string) error
}

// PresenceService is what the presence handlers need from the service
// layer.
type PresenceService interface {
	GetGroupPresence(ctx context.Context, groupID, userID string) ([]models.Presence, error)
	UpdatePresence(ctx context.Context, groupID, userID, status string) (models.Presence, error)
}

// serviceError translates service and provider errors into HTTP
// responses. Everything unrecognized becomes a 500.
func serviceError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Something went wrong"

	switch {
	case errors.Is(err, services.ErrInvalidPhone):
		status, message = fiber.StatusBadRequest, "Invalid phone number"
	case errors.Is(err, services.ErrInvalidCode):
		status, message = fiber.StatusUnauthorized, "Invalid verification code"
	case errors.Is(err, services.ErrInvalidInviteCode):
		status, message = fiber.StatusBadRequest, "Invalid invite code"
	case errors.Is(err, services.ErrUserNotFound):
		status, message = fiber.StatusNotFound, "User not found"
	case errors.Is(err, services.ErrGroupNotFound):
		status, message = fiber.StatusNotFound, "Group not found"
	case errors.Is(err, services.ErrMemberNotFound):
		status, message = fiber.StatusNotFound, "Member not found in group"
	case errors.Is(err, services.ErrAlreadyMember):
		status, message = fiber.StatusConflict, "Already a member of this group"
	case errors.Is(err, services.ErrPhoneTaken):
		status, message = fiber.StatusConflict, "Phone number already registered"
	case errors.Is(err, services.ErrNotMember):
		status, message = fiber.StatusForbidden, "You are not a member of this group"
	case errors.Is(err, services.ErrNotAdmin):
		status, message = fiber.StatusForbidden, "Only group admins can do that"
	case errors.Is(err, verify.ErrInvalidNumber):
		status, message = fiber.StatusBadRequest, "Phone number rejected by SMS provider"
	case errors.Is(err, verify.ErrBlockedNumber):
		status, message = fiber.StatusBadRequest, "This phone number is blocked"
	case errors.Is(err, verify.ErrRateLimited):
		status, message = fiber.StatusTooManyRequests, "Too many attempts, please try again later"
	case errors.Is(err, verify.ErrDeliveryFailed):
		message = "Failed to send verification code"
	case errors.Is(err, verify.ErrProvider):
		message = "Verification service unavailable"
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}
