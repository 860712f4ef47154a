package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-engine/internal/auth"
	"github.com/spec-kit/ticket-engine/internal/config"
	apperrors "github.com/spec-kit/ticket-engine/pkg/util"
)

// AuthHandler issues bearer tokens for the adapter surface.
type AuthHandler struct {
	cfg    config.AuthConfig
	tokens *auth.TokenManager
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(cfg config.AuthConfig, tokens *auth.TokenManager) *AuthHandler {
	return &AuthHandler{cfg: cfg, tokens: tokens}
}

type loginRequest struct {
	Password string `json:"password"`
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if !auth.VerifyPassword(h.cfg.AdminPasswordHash, req.Password) {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	token, expiresAt, err := h.tokens.GenerateToken("admin")
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"access_token": token,
		"expires_at":   expiresAt,
	}})
}
