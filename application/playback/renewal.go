package playback

import (
	"math"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"keygate/domain/dto"
	"keygate/domain/models"
)

const (
	renewalLeadSeconds = 45
	minRenewalSeconds  = 5
	minRenewalDelay    = 5 * time.Second
)

// RenewalDelay เวลาที่รอก่อนต่ออายุ token: 45 วินาทีก่อนหมดอายุ แต่ไม่ต่ำกว่า 5 วินาที
//
//	max(5s, max(5, floor(ttl-45)) s)
func RenewalDelay(ttl time.Duration) time.Duration {
	secs := math.Floor(ttl.Seconds() - renewalLeadSeconds)
	if secs < minRenewalSeconds {
		secs = minRenewalSeconds
	}
	d := time.Duration(secs) * time.Second
	if d < minRenewalDelay {
		return minRenewalDelay
	}
	return d
}

// session token หนึ่งชุดกับที่เล่นของมัน ถูกแทนทั้งก้อนเมื่อต่ออายุ
type session struct {
	token       string
	videoID     string
	playlistURL string
	expiresAt   time.Time
}

func newSession(resp *dto.PlaybackTokenResponse) *session {
	return &session{
		token:       resp.Token,
		videoID:     resp.Playback.VideoID,
		playlistURL: resp.Playback.PlaylistURL,
		expiresAt:   tokenExpiry(resp),
	}
}

// tokenExpiry อ่าน exp จาก payload ของ token (ไม่ verify ฝั่ง client ไม่มี secret)
// ถ้าอ่านไม่ได้ใช้ expiresAt จาก response แทน
func tokenExpiry(resp *dto.PlaybackTokenResponse) time.Time {
	claims := &models.PlaybackClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(resp.Token, claims); err == nil {
		if exp := claims.ExpiresAtTime(); !exp.IsZero() {
			return exp
		}
	}
	if resp.ExpiresAt > 0 {
		return time.Unix(resp.ExpiresAt, 0)
	}
	return time.Time{}
}
