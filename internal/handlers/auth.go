package handlers

import (
	"unicode/utf8"

	"mipo/server/internal/middleware"
	"mipo/server/internal/models"
	"mipo/server/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// SendCodeRequest represents send verification code request body
type SendCodeRequest struct {
	Phone string `json:"phone"`
}

// CreateRequest represents signup request body
type CreateRequest struct {
	Phone       string `json:"phone"`
	Code        string `json:"code"`
	DisplayName string `json:"displayName"`
	InviteCode  string `json:"inviteCode,omitempty"`
}

// LoginRequest represents login request body
type LoginRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// UpdateMeRequest represents profile update request body
type UpdateMeRequest struct {
	DisplayName string `json:"displayName"`
}

// AuthHandler serves the verification and session endpoints.
type AuthHandler struct {
	auth          AuthService
	jwt           *utils.JWTManager
	secureCookies bool
}

func NewAuthHandler(auth AuthService, jwt *utils.JWTManager, secureCookies bool) *AuthHandler {
	return &AuthHandler{auth: auth, jwt: jwt, secureCookies: secureCookies}
}

// SendVerificationCode asks the SMS provider to text a one-time code
func (h *AuthHandler) SendVerificationCode(c *fiber.Ctx) error {
	var req SendCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if len(req.Phone) < 10 || len(req.Phone) > 15 {
		return badRequest(c, "Phone number must be 10-15 characters")
	}

	expiresAt, err := h.auth.SendVerificationCode(c.Context(), req.Phone)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"message":   "Verification code sent",
		"expiresAt": expiresAt,
	})
}

// Create handles signup: verifies the code, creates the account and
// optionally joins a group by invite code
func (h *AuthHandler) Create(c *fiber.Ctx) error {
	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if len(req.Phone) < 10 || len(req.Phone) > 15 {
		return badRequest(c, "Phone number must be 10-15 characters")
	}
	if len(req.Code) != 6 {
		return badRequest(c, "Verification code must be 6 digits")
	}
	// Bounds are in characters, not bytes; Hebrew names are multibyte.
	if n := utf8.RuneCountInString(req.DisplayName); n < 3 || n > 10 {
		return badRequest(c, "Display name must be 3-10 characters")
	}
	if req.InviteCode != "" && len(req.InviteCode) != models.InviteCodeLength {
		return badRequest(c, "Invite code must be 10 characters")
	}

	user, err := h.auth.Create(c.Context(), req.Phone, req.Code, req.DisplayName, req.InviteCode)
	if err != nil {
		return serviceError(c, err)
	}

	if err := h.setSessionCookie(c, user.ID); err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

// Login verifies the code for an existing account
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if len(req.Phone) < 10 || len(req.Phone) > 15 {
		return badRequest(c, "Phone number must be 10-15 characters")
	}
	if len(req.Code) != 6 {
		return badRequest(c, "Verification code must be 6 digits")
	}

	user, err := h.auth.Login(c.Context(), req.Phone, req.Code)
	if err != nil {
		return serviceError(c, err)
	}

	if err := h.setSessionCookie(c, user.ID); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

// Logout clears the session cookie. The token itself stays valid until
// expiry; there is no server-side revocation.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: "Lax",
		MaxAge:   -1, // Delete cookie
	})

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out successfully",
	})
}

// GetMe returns current authenticated user
func (h *AuthHandler) GetMe(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	user, err := h.auth.GetUser(c.Context(), userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

// UpdateMe changes the caller's display name
func (h *AuthHandler) UpdateMe(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var req UpdateMeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if n := utf8.RuneCountInString(req.DisplayName); n < 3 || n > 10 {
		return badRequest(c, "Display name must be 3-10 characters")
	}

	user, err := h.auth.UpdateDisplayName(c.Context(), userID, req.DisplayName)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

func (h *AuthHandler) setSessionCookie(c *fiber.Ctx, userID string) error {
	token, err := h.jwt.GenerateToken(userID)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: "Lax",
		MaxAge:   int(h.jwt.TTL().Seconds()),
	})
	return nil
}
