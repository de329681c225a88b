package ports

import (
	"context"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════════
// Checkout Event Port - แจ้ง event ของ fake checkout (optional)
// ═══════════════════════════════════════════════════════════════════════════════

// CheckoutEvent - Plain struct (ไม่มี NATS dependency)
type CheckoutEvent struct {
	SessionID string    `json:"session_id"`
	VideoID   string    `json:"video_id"`
	DeviceID  string    `json:"device_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CheckoutEventPublisherPort - Interface สำหรับ publish checkout events
type CheckoutEventPublisherPort interface {
	PublishCheckoutCreated(ctx context.Context, event *CheckoutEvent) error
	Close() error
}
