package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"keygate/domain/services"
	"keygate/pkg/logger"
	"keygate/pkg/metrics"
	"keygate/pkg/utils"
)

const (
	tokenSourceHeader = "header"
	tokenSourceQuery  = "query"
	tokenSourceNone   = "none"
)

// KeyHandler Key Gate: คืน raw key ของ video ให้ token ที่ถูกต้องเท่านั้น
// body ของ error เป็นข้อความคงที่ ไม่มีรายละเอียดภายใน
type KeyHandler struct {
	keyService      services.KeyService
	allowQueryToken bool
}

func NewKeyHandler(keyService services.KeyService, allowQueryToken bool) *KeyHandler {
	return &KeyHandler{
		keyService:      keyService,
		allowQueryToken: allowQueryToken,
	}
}

// GetKey GET /key/:video
// token จาก "Authorization: Bearer <t>" หรือ ?token=<t> (ถ้าเปิดไว้)
func (h *KeyHandler) GetKey(c *fiber.Ctx) error {
	ctx := c.UserContext()
	start := time.Now()
	videoID := c.Params("video")

	token, source := h.extractToken(c)
	if source == tokenSourceQuery {
		// token ใน query string หลุดไปกับ access log / referrer ได้
		logger.WarnContext(ctx, "Key requested with query-string token", "video", videoID)
	}

	key, err := h.keyService.GetKey(ctx, videoID, token)
	outcome := keyOutcome(err)
	metrics.ObserveKeyRequest(outcome, source, time.Since(start).Seconds())

	c.Set(fiber.HeaderCacheControl, "no-store")

	switch outcome {
	case metrics.OutcomeOK:
		c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
		return c.Status(fiber.StatusOK).Send(key)
	case metrics.OutcomeMissingToken:
		return c.Status(fiber.StatusUnauthorized).SendString("Missing token")
	case metrics.OutcomeInvalidToken:
		logger.WarnContext(ctx, "Invalid key token", "video", videoID, "error", err)
		return c.Status(fiber.StatusUnauthorized).SendString("Invalid token")
	case metrics.OutcomeVideoMismatch:
		return c.Status(fiber.StatusForbidden).SendString("Token-video mismatch")
	case metrics.OutcomeNotFound:
		logger.WarnContext(ctx, "Key not found", "video", videoID)
		return c.Status(fiber.StatusNotFound).SendString("Key not found")
	default:
		logger.ErrorContext(ctx, "Key gate failure", "video", videoID, "error", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Internal server error")
	}
}

func (h *KeyHandler) extractToken(c *fiber.Ctx) (string, string) {
	if token := utils.ExtractTokenFromHeader(c.Get(fiber.HeaderAuthorization)); token != "" {
		return token, tokenSourceHeader
	}
	if h.allowQueryToken {
		if token := c.Query("token"); token != "" {
			return token, tokenSourceQuery
		}
	}
	return "", tokenSourceNone
}

func keyOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, utils.ErrMissingToken):
		return metrics.OutcomeMissingToken
	case errors.Is(err, utils.ErrUnauthorized):
		return metrics.OutcomeInvalidToken
	case errors.Is(err, utils.ErrForbidden):
		return metrics.OutcomeVideoMismatch
	case errors.Is(err, utils.ErrKeyNotFound):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}
