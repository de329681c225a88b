package redis

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"keygate/domain/ports"
	"keygate/pkg/logger"
	"keygate/pkg/metrics"
)

const keyCachePrefix = "keygate:key:"

// CachedKeyStore ครอบ KeyStorePort ด้วย Redis cache
// request ที่มาพร้อมกันสำหรับ video เดียวกันอ่าน backend แค่ครั้งเดียว (singleflight)
// Redis ล่ม = อ่านจาก backend ตรง (ไม่ fail request)
type CachedKeyStore struct {
	next   ports.KeyStorePort
	client *Client
	ttl    time.Duration
	group  singleflight.Group
}

func NewCachedKeyStore(next ports.KeyStorePort, client *Client, ttl time.Duration) *CachedKeyStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedKeyStore{
		next:   next,
		client: client,
		ttl:    ttl,
	}
}

func (s *CachedKeyStore) GetKey(ctx context.Context, videoID string) ([]byte, error) {
	cacheKey := keyCachePrefix + videoID

	data, found, err := s.client.GetBytes(ctx, cacheKey)
	switch {
	case err != nil:
		metrics.IncKeyCache("error")
		logger.WarnContext(ctx, "Key cache read failed", "video", videoID, "error", err)
	case found:
		metrics.IncKeyCache("hit")
		return data, nil
	default:
		metrics.IncKeyCache("miss")
	}

	v, err, _ := s.group.Do(videoID, func() (interface{}, error) {
		key, err := s.next.GetKey(ctx, videoID)
		if err != nil {
			return nil, err
		}
		if setErr := s.client.Set(ctx, cacheKey, key, s.ttl); setErr != nil {
			logger.WarnContext(ctx, "Key cache write failed", "video", videoID, "error", setErr)
		}
		return key, nil
	})
	if err != nil {
		return nil, err
	}

	key := v.([]byte)
	// คืน copy เพราะ singleflight แชร์ slice เดียวกันให้ทุก caller
	out := make([]byte, len(key))
	copy(out, key)
	return out, nil
}

// Invalidate ลบ key ของ video ออกจาก cache
func (s *CachedKeyStore) Invalidate(ctx context.Context, videoID string) error {
	return s.client.Del(ctx, keyCachePrefix+videoID)
}

func (s *CachedKeyStore) ListVideoIDs(ctx context.Context) ([]string, error) {
	return s.next.ListVideoIDs(ctx)
}

func (s *CachedKeyStore) GetProviderName() string {
	return "redis+" + s.next.GetProviderName()
}
