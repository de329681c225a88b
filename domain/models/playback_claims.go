package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PlaybackClaims JWT claims ของ playback token
// token ใช้ได้กับ video เดียว และก่อน exp เท่านั้น
type PlaybackClaims struct {
	Video string `json:"video"`
	jwt.RegisteredClaims
}

// ExpiresAtTime คืนเวลาหมดอายุ (zero time ถ้าไม่มี exp)
func (c *PlaybackClaims) ExpiresAtTime() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// TTL เวลาที่เหลือก่อนหมดอายุ ณ เวลา now
func (c *PlaybackClaims) TTL(now time.Time) time.Duration {
	exp := c.ExpiresAtTime()
	if exp.IsZero() {
		return 0
	}
	return exp.Sub(now)
}
