package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"keygate/domain/dto"
	"keygate/domain/services"
	"keygate/pkg/logger"
	"keygate/pkg/utils"
)

type CheckoutHandler struct {
	checkoutService services.CheckoutService
}

func NewCheckoutHandler(checkoutService services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService}
}

// CreateSession สร้าง fake checkout session
// POST /session
func (h *CheckoutHandler) CreateSession(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req dto.CreateCheckoutSessionRequest
	if err := c.BodyParser(&req); err != nil {
		logger.WarnContext(ctx, "Invalid request body", "error", err)
		return utils.BadRequestResponse(c, "Invalid request body")
	}

	if err := utils.ValidateStruct(&req); err != nil {
		errs := utils.GetValidationErrors(err)
		logger.WarnContext(ctx, "Validation failed", "errors", errs)
		return utils.ValidationErrorResponse(c, errs)
	}

	resp, err := h.checkoutService.CreateSession(ctx, &req)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidVideoID) {
			return utils.BadRequestResponse(c, "Invalid video identifier")
		}
		logger.ErrorContext(ctx, "Failed to create checkout session", "error", err)
		return utils.InternalServerErrorResponse(c)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}
