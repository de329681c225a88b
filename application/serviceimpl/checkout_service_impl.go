package serviceimpl

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"keygate/domain/dto"
	"keygate/domain/ports"
	"keygate/pkg/logger"
	"keygate/pkg/metrics"
	"keygate/pkg/utils"
)

// CheckoutServiceImpl สร้าง fake checkout session (redirect ไปหน้า success ทันที)
type CheckoutServiceImpl struct {
	appURL    string
	publisher ports.CheckoutEventPublisherPort // optional
	now       func() time.Time
}

// NewCheckoutService publisher เป็น nil ได้ (ไม่ publish event)
func NewCheckoutService(appURL string, publisher ports.CheckoutEventPublisherPort) *CheckoutServiceImpl {
	return &CheckoutServiceImpl{
		appURL:    strings.TrimSuffix(appURL, "/"),
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *CheckoutServiceImpl) CreateSession(ctx context.Context, req *dto.CreateCheckoutSessionRequest) (*dto.CreateCheckoutSessionResponse, error) {
	if err := utils.ValidateVideoID(req.VideoID); err != nil {
		return nil, err
	}

	sessionID := "fake_" + uuid.New().String()
	successURL := fmt.Sprintf("%s/success?session_id=%s", s.appURL, url.QueryEscape(sessionID))

	metrics.IncCheckoutSession()
	logger.InfoContext(ctx, "Fake checkout session created",
		"session_id", sessionID,
		"video", req.VideoID,
		"device_id", req.DeviceID,
	)

	// Best-effort: event ไม่สำเร็จไม่ทำให้ checkout fail
	if s.publisher != nil {
		event := &ports.CheckoutEvent{
			SessionID: sessionID,
			VideoID:   req.VideoID,
			DeviceID:  req.DeviceID,
			UserID:    req.UserID,
			CreatedAt: s.now().UTC(),
		}
		if err := s.publisher.PublishCheckoutCreated(ctx, event); err != nil {
			logger.WarnContext(ctx, "Failed to publish checkout event", "session_id", sessionID, "error", err)
		}
	}

	return &dto.CreateCheckoutSessionResponse{
		URL:       successURL,
		SessionID: sessionID,
	}, nil
}
