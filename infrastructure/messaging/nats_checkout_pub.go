package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"keygate/domain/ports"
	natspkg "keygate/infrastructure/nats"
)

// NATSCheckoutPublisher implements CheckoutEventPublisherPort using NATS Pub/Sub
type NATSCheckoutPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSCheckoutPublisher สร้าง CheckoutEventPublisherPort adapter สำหรับ NATS
func NewNATSCheckoutPublisher(conn *nats.Conn) *NATSCheckoutPublisher {
	return &NATSCheckoutPublisher{
		conn:    conn,
		subject: natspkg.SubjectCheckoutCreated,
	}
}

// PublishCheckoutCreated ส่ง event ผ่าน NATS Pub/Sub
func (p *NATSCheckoutPublisher) PublishCheckoutCreated(ctx context.Context, event *ports.CheckoutEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal checkout event: %w", err)
	}

	return p.conn.Publish(p.subject, data)
}

// Close ไม่ปิด connection (เป็นของ nats.Client)
func (p *NATSCheckoutPublisher) Close() error {
	return nil
}
