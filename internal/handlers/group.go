package handlers

import (
	"unicode/utf8"

	"mipo/server/internal/middleware"
	"mipo/server/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// CreateGroupRequest represents create group request body
type CreateGroupRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// JoinGroupRequest represents join group request body
type JoinGroupRequest struct {
	InviteCode string `json:"inviteCode"`
}

// UpdateGroupRequest represents update group request body
type UpdateGroupRequest struct {
	Name *string `json:"name,omitempty"`
}

// UpdateMemberDetailsRequest represents member details update request body
type UpdateMemberDetailsRequest struct {
	DisplayName *string `json:"displayName,omitempty"`
	Details     *string `json:"details,omitempty"`
}

// GroupHandler serves group and membership endpoints.
type GroupHandler struct {
	groups GroupService
}

func NewGroupHandler(groups GroupService) *GroupHandler {
	return &GroupHandler{groups: groups}
}

// CreateGroup creates a new group with the caller as admin
func (h *GroupHandler) CreateGroup(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var req CreateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if req.Name == "" || utf8.RuneCountInString(req.Name) > models.GroupNameMaxLength {
		return badRequest(c, "Group name must be 1-100 characters")
	}
	if !models.ValidGroupType(req.Type) {
		return badRequest(c, "Group type must be 'building' or 'family'")
	}

	group, err := h.groups.CreateGroup(c.Context(), req.Name, req.Type, userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"group":   group,
	})
}

// JoinGroup joins the caller to the group behind an invite code
func (h *GroupHandler) JoinGroup(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var req JoinGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if len(req.InviteCode) != models.InviteCodeLength {
		return badRequest(c, "Invite code must be 10 characters")
	}

	group, member, err := h.groups.JoinGroup(c.Context(), userID, req.InviteCode)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"group":   group,
		"role":    member.Role,
	})
}

// GetMyGroups returns all groups the caller belongs to
func (h *GroupHandler) GetMyGroups(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	groups, err := h.groups.GetUserGroups(c.Context(), userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"groups":  groups,
	})
}

// GetGroupDetails returns the group with members and the caller's role
func (h *GroupHandler) GetGroupDetails(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	groupID, ok := groupIDParam(c)
	if !ok {
		return badRequest(c, "Invalid group id")
	}

	group, members, role, err := h.groups.GetGroupDetails(c.Context(), groupID, userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"group":   group,
		"members": members,
		"role":    role,
	})
}

// GetCurrentGroupMember returns the caller's own membership in a group
func (h *GroupHandler) GetCurrentGroupMember(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	groupID, ok := groupIDParam(c)
	if !ok {
		return badRequest(c, "Invalid group id")
	}

	member, user, err := h.groups.GetCurrentGroupMember(c.Context(), groupID, userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"groupMember": member,
		"user":        user,
	})
}

// UpdateGroup renames a group (admin only)
func (h *GroupHandler) UpdateGroup(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	groupID, ok := groupIDParam(c)
	if !ok {
		return badRequest(c, "Invalid group id")
	}

	var req UpdateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if req.Name != nil && (*req.Name == "" || utf8.RuneCountInString(*req.Name) > models.GroupNameMaxLength) {
		return badRequest(c, "Group name must be 1-100 characters")
	}

	group, err := h.groups.UpdateGroup(c.Context(), groupID, userID, req.Name)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"group":   group,
	})
}

// UpdateMemberDetails updates the caller's per-group details and/or
// display name
func (h *GroupHandler) UpdateMemberDetails(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	groupID, ok := groupIDParam(c)
	if !ok {
		return badRequest(c, "Invalid group id")
	}

	var req UpdateMemberDetailsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if req.DisplayName == nil && req.Details == nil {
		return badRequest(c, "Nothing to update")
	}
	if req.DisplayName != nil {
		if n := utf8.RuneCountInString(*req.DisplayName); n < 3 || n > 10 {
			return badRequest(c, "Display name must be 3-10 characters")
		}
	}

	if err := h.groups.UpdateMemberDetails(c.Context(), groupID, userID, req.DisplayName, req.Details); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Member details updated",
	})
}

// DeleteGroup deletes a group and everything in it (admin only)
func (h *GroupHandler) DeleteGroup(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	groupID, ok := groupIDParam(c)
	if !ok {
		return badRequest(c, "Invalid group id")
	}

	group, err := h.groups.DeleteGroup(c.Context(), groupID, userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"deletedGroup": group,
	})
}

// LeaveGroup removes the caller's own membership
func (h *GroupHandler) LeaveGroup(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	groupID, ok := groupIDParam(c)
	if !ok {
		return badRequest(c, "Invalid group id")
	}

	if err := h.groups.LeaveGroup(c.Context(), groupID, userID); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "You have left the group",
	})
}

// groupIDParam validates the :groupId path parameter as a UUID before
// it reaches any SQL.
func groupIDParam(c *fiber.Ctx) (string, bool) {
	id, err := uuid.Parse(c.Params("groupId"))
	if err != nil {
		return "", false
	}
	return id.String(), true
}
