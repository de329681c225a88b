package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"keygate/domain/dto"
	"keygate/domain/services"
	"keygate/pkg/logger"
	"keygate/pkg/utils"
)

type TokenHandler struct {
	tokenService services.TokenService
}

func NewTokenHandler(tokenService services.TokenService) *TokenHandler {
	return &TokenHandler{tokenService: tokenService}
}

// GetToken ออก playback token
// GET /token?video=<id>
func (h *TokenHandler) GetToken(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req dto.PlaybackTokenRequest
	if err := c.QueryParser(&req); err != nil {
		logger.WarnContext(ctx, "Invalid token query", "error", err)
		return utils.BadRequestResponse(c, "Invalid query")
	}

	if err := utils.ValidateStruct(&req); err != nil {
		return utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
	}

	resp, err := h.tokenService.Issue(ctx, req.Video)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidVideoID) {
			return utils.BadRequestResponse(c, "Invalid video identifier")
		}
		logger.ErrorContext(ctx, "Failed to issue playback token", "error", err)
		return utils.InternalServerErrorResponse(c)
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Status(fiber.StatusOK).JSON(resp)
}
