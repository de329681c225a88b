package serviceimpl

import (
	"context"
	"sync"

	"keygate/domain/ports"
	"keygate/pkg/logger"
	"keygate/pkg/metrics"
)

// keyInvalidator store ที่มี cache (เช่น redis.CachedKeyStore)
type keyInvalidator interface {
	Invalidate(ctx context.Context, videoID string) error
}

// KeyInventoryService นับ key ที่มีอยู่ใน store เป็นรอบ ๆ (รันจาก scheduler)
// key ที่หายไปจาก store จะถูกลบออกจาก cache ด้วย
type KeyInventoryService struct {
	store ports.KeyStorePort

	mu   sync.Mutex
	last map[string]struct{}
}

func NewKeyInventoryService(store ports.KeyStorePort) *KeyInventoryService {
	return &KeyInventoryService{store: store}
}

// Run หนึ่งรอบ คืนรายชื่อ video ที่พบ
func (s *KeyInventoryService) Run(ctx context.Context) ([]string, error) {
	ids, err := s.store.ListVideoIDs(ctx)
	if err != nil {
		logger.Warn("Key inventory failed", "provider", s.store.GetProviderName(), "error", err)
		return nil, err
	}

	current := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		current[id] = struct{}{}
	}

	s.mu.Lock()
	previous := s.last
	s.last = current
	s.mu.Unlock()

	if inv, ok := s.store.(keyInvalidator); ok {
		for id := range previous {
			if _, still := current[id]; still {
				continue
			}
			if err := inv.Invalidate(ctx, id); err != nil {
				logger.Warn("Failed to invalidate removed key", "video", id, "error", err)
			} else {
				logger.Info("Removed key evicted from cache", "video", id)
			}
		}
	}

	metrics.SetKeysAvailable(len(ids))
	logger.Debug("Key inventory completed", "provider", s.store.GetProviderName(), "keys", len(ids))
	return ids, nil
}
