package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"keygate/pkg/logger"
	"keygate/pkg/utils"
)

// ErrorHandler แปลง error ที่หลุดจาก handler เป็น JSON envelope
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		errCode := utils.ErrCodeInternalError
		message := "Internal server error"

		var fe *fiber.Error
		switch {
		case errors.As(err, &fe):
			code = fe.Code
			message = fe.Message
			switch code {
			case fiber.StatusBadRequest:
				errCode = utils.ErrCodeBadRequest
			case fiber.StatusUnauthorized:
				errCode = utils.ErrCodeUnauthorized
			case fiber.StatusForbidden:
				errCode = utils.ErrCodeForbidden
			case fiber.StatusNotFound:
				errCode = utils.ErrCodeNotFound
			case fiber.StatusTooManyRequests:
				errCode = utils.ErrCodeRateLimited
			}
		case errors.Is(err, utils.ErrUnauthorized):
			code, errCode, message = fiber.StatusUnauthorized, utils.ErrCodeUnauthorized, "Unauthorized"
		case errors.Is(err, utils.ErrForbidden):
			code, errCode, message = fiber.StatusForbidden, utils.ErrCodeForbidden, "Forbidden"
		case errors.Is(err, utils.ErrInvalidVideoID):
			code, errCode, message = fiber.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid video identifier"
		}

		if code >= fiber.StatusInternalServerError {
			logger.ErrorContext(c.UserContext(), "Unhandled error", "path", c.Path(), "error", err)
		}

		return utils.ErrorResponse(c, code, errCode, message, nil)
	}
}
