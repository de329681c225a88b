package handlers

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"keygate/domain/ports"
	"keygate/pkg/logger"
	"keygate/pkg/utils"
)

// HLSHandler เสิร์ฟ playlist/segment ที่เข้ารหัสแล้ว ไม่ต้องใช้ token
// (ถอดรหัสไม่ได้ถ้าไม่มี key จาก Key Gate)
type HLSHandler struct {
	storage ports.AssetStoragePort
}

func NewHLSHandler(storage ports.AssetStoragePort) *HLSHandler {
	return &HLSHandler{storage: storage}
}

// ServeHLS serves HLS files with byte range support
// Route: /protected_hls/:video/*
func (h *HLSHandler) ServeHLS(c *fiber.Ctx) error {
	ctx := c.UserContext()
	videoID := c.Params("video")
	filePath := c.Params("*")

	if !utils.IsValidVideoID(videoID) || filePath == "" {
		return c.Status(fiber.StatusNotFound).SendString("File not found")
	}

	storagePath := videoID + "/" + filePath

	if rangeHeader := c.Get(fiber.HeaderRange); rangeHeader != "" {
		return h.serveRangeRequest(c, storagePath, rangeHeader)
	}

	reader, contentType, err := h.storage.GetFileContent(storagePath)
	if err != nil {
		return assetError(c, storagePath, err)
	}
	defer reader.Close()

	setAssetHeaders(c, storagePath, contentType)

	if _, err := io.Copy(c.Response().BodyWriter(), reader); err != nil {
		logger.ErrorContext(ctx, "Failed to stream HLS file", "path", storagePath, "error", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Stream error")
	}

	return nil
}

func (h *HLSHandler) serveRangeRequest(c *fiber.Ctx, storagePath, rangeHeader string) error {
	ctx := c.UserContext()

	// Parse Range header: "bytes=start-end" or "bytes=start-"
	rangeSpec, ok := strings.CutPrefix(rangeHeader, "bytes=")
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid range format")
	}
	parts := strings.Split(rangeSpec, "-")
	if len(parts) != 2 {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid range format")
	}

	start, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || start < 0 {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid range start")
	}

	var end int64 = -1
	if parts[1] != "" {
		end, err = strconv.ParseInt(parts[1], 10, 64)
		if err != nil || end < start {
			return c.Status(fiber.StatusBadRequest).SendString("Invalid range end")
		}
	}

	reader, totalSize, err := h.storage.GetFileRange(storagePath, start, end)
	if err != nil {
		if errors.Is(err, ports.ErrInvalidRange) {
			c.Set(fiber.HeaderContentRange, fmt.Sprintf("bytes */%d", totalSize))
			return c.Status(fiber.StatusRequestedRangeNotSatisfiable).SendString("Range not satisfiable")
		}
		return assetError(c, storagePath, err)
	}
	defer reader.Close()

	if end < 0 || end >= totalSize {
		end = totalSize - 1
	}
	contentLength := end - start + 1

	setAssetHeaders(c, storagePath, utils.ContentTypeFor(storagePath))
	c.Status(fiber.StatusPartialContent)
	c.Set(fiber.HeaderContentRange, fmt.Sprintf("bytes %d-%d/%d", start, end, totalSize))
	c.Set(fiber.HeaderContentLength, strconv.FormatInt(contentLength, 10))

	if _, err := io.Copy(c.Response().BodyWriter(), reader); err != nil {
		logger.ErrorContext(ctx, "Failed to stream range", "path", storagePath, "error", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Stream error")
	}

	return nil
}

func setAssetHeaders(c *fiber.Ctx, storagePath, contentType string) {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set("Content-Disposition", "inline")
	c.Set(fiber.HeaderAcceptRanges, "bytes")
	if strings.HasSuffix(strings.ToLower(storagePath), ".m3u8") {
		// playlist เปลี่ยนได้ segment ไม่เปลี่ยน
		c.Set(fiber.HeaderCacheControl, "no-cache")
	} else {
		c.Set(fiber.HeaderCacheControl, "public, max-age=31536000")
	}
}

func assetError(c *fiber.Ctx, storagePath string, err error) error {
	ctx := c.UserContext()
	switch {
	case errors.Is(err, ports.ErrAssetNotExist):
		return c.Status(fiber.StatusNotFound).SendString("File not found")
	case errors.Is(err, utils.ErrUnsafePath), errors.Is(err, utils.ErrInvalidCharacter),
		errors.Is(err, utils.ErrEmptyPath), errors.Is(err, utils.ErrPathTooLong):
		logger.WarnContext(ctx, "Rejected HLS path", "path", storagePath, "error", err)
		return c.Status(fiber.StatusBadRequest).SendString("Invalid path")
	default:
		logger.ErrorContext(ctx, "Failed to read HLS file", "path", storagePath, "error", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Internal server error")
	}
}
