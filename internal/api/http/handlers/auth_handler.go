package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/weaver-helpdesk/internal/api/dto"
	"github.com/spec-kit/weaver-helpdesk/internal/domain"
	"github.com/spec-kit/weaver-helpdesk/internal/service"
)

// AuthHandler issues access tokens to the chat bridge.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// BridgeToken POST /auth/bridge/token.
func (h *AuthHandler) BridgeToken(c *fiber.Ctx) error {
	var req dto.BridgeTokenRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	token, expiresAt, err := h.auth.IssueBridgeToken(c.UserContext(), service.BridgeTokenInput{
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		SubjectType:  domain.SubjectType(strings.ToUpper(strings.TrimSpace(req.SubjectType))),
		SubjectID:    req.SubjectID,
		Role:         req.Role,
		GuildID:      req.GuildID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	}})
}
