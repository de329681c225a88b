package serviceimpl

import (
	"context"
	"errors"
	"fmt"

	"keygate/domain/ports"
	"keygate/domain/services"
	"keygate/pkg/logger"
	"keygate/pkg/utils"
)

// KeyServiceImpl Key Gate: ไม่มี side effect นอกจาก log
// เรียกซ้ำกี่ครั้งก็ได้ผลเหมือนเดิม
type KeyServiceImpl struct {
	tokens services.TokenService
	store  ports.KeyStorePort
}

func NewKeyService(tokens services.TokenService, store ports.KeyStorePort) *KeyServiceImpl {
	return &KeyServiceImpl{
		tokens: tokens,
		store:  store,
	}
}

func (s *KeyServiceImpl) GetKey(ctx context.Context, videoID, token string) ([]byte, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}

	// token ถูกต้องแต่ใช้ผิด video: แยกจาก signature failure
	if claims.Video != videoID {
		logger.WarnContext(ctx, "Token-video mismatch", "token_video", claims.Video, "requested_video", videoID)
		return nil, utils.ErrForbidden
	}

	// claims.Video มาจาก token ที่ sign แล้ว แต่ยังต้องกัน id ที่ไม่อยู่ใน safe charset
	if !utils.IsValidVideoID(videoID) {
		return nil, utils.ErrKeyNotFound
	}

	key, err := s.store.GetKey(ctx, videoID)
	if err != nil {
		if errors.Is(err, ports.ErrKeyNotExist) {
			return nil, utils.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to read key material: %w", err)
	}
	if len(key) == 0 {
		return nil, utils.ErrKeyNotFound
	}

	return key, nil
}
