package services

import (
	"context"

	"keygate/domain/dto"
	"keygate/domain/models"
)

// TokenService ออกและตรวจ playback token (Credential Issuer)
type TokenService interface {
	// Issue สร้าง token ใหม่ผูกกับ videoID ("" = default video)
	Issue(ctx context.Context, videoID string) (*dto.PlaybackTokenResponse, error)

	// Validate ตรวจ signature และ expiry
	// คืน utils.ErrMissingToken / utils.ErrInvalidToken เมื่อไม่ผ่าน
	Validate(tokenString string) (*models.PlaybackClaims, error)
}
