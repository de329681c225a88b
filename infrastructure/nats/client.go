package nats

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"keygate/pkg/logger"
)

// Client wraps a core NATS connection (Pub/Sub เท่านั้น ไม่ใช้ JetStream)
type Client struct {
	conn *nats.Conn
}

// ClientConfig configuration สำหรับ NATS Client
type ClientConfig struct {
	URL  string // nats://localhost:4222
	Name string // connection name ที่เห็นใน NATS monitoring
}

// NewClient เชื่อมต่อ NATS
func NewClient(cfg ClientConfig) (*Client, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1), // Reconnect forever
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(3*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Client{conn: nc}, nil
}

// Conn คืน connection สำหรับ adapters ใน infrastructure/messaging
func (c *Client) Conn() *nats.Conn {
	return c.conn
}

// Close drain แล้วปิด connection
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
		return err
	}
	return nil
}

// Ping ใช้กับ /health
func (c *Client) Ping() error {
	if c.conn == nil || !c.conn.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}
