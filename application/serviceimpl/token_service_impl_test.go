package serviceimpl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keygate/domain/models"
	"keygate/pkg/config"
	"keygate/pkg/utils"
)

const testSecret = "test-secret-for-playback-tokens"

func newTestTokenService(t *testing.T, ttl time.Duration) *TokenServiceImpl {
	t.Helper()
	svc, err := NewTokenService(
		config.JWTConfig{Secret: testSecret, TTL: ttl, Issuer: "keygate"},
		config.KeyGateConfig{DefaultVideoID: "video1", Provider: "local"},
		"http://localhost:3000/",
	)
	require.NoError(t, err)
	return svc
}

func TestNewTokenService_RequiresSecret(t *testing.T) {
	_, err := NewTokenService(config.JWTConfig{Secret: "  "}, config.KeyGateConfig{DefaultVideoID: "video1"}, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrConfiguration))
}

func TestNewTokenService_RejectsBadDefaultVideo(t *testing.T) {
	_, err := NewTokenService(config.JWTConfig{Secret: testSecret}, config.KeyGateConfig{DefaultVideoID: "../etc"}, "")
	assert.True(t, errors.Is(err, utils.ErrConfiguration))
}

func TestTokenService_IssueDefaultVideo(t *testing.T) {
	svc := newTestTokenService(t, time.Hour)
	fixed := time.Unix(1_700_000_000, 0)
	svc.now = func() time.Time { return fixed }

	resp, err := svc.Issue(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "local", resp.Provider)
	assert.Equal(t, fixed.Add(time.Hour).Unix(), resp.ExpiresAt)
	assert.Equal(t, "video1", resp.Playback.VideoID)
	assert.Equal(t, "http://localhost:3000/protected_hls/video1/out.m3u8", resp.Playback.PlaylistURL)

	claims, err := svc.Validate(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "video1", claims.Video)
	assert.Equal(t, "keygate", claims.Issuer)
	assert.Equal(t, fixed.Unix(), claims.IssuedAt.Unix())
}

func TestTokenService_IssueRejectsUnsafeVideo(t *testing.T) {
	svc := newTestTokenService(t, time.Hour)

	for _, id := range []string{"../../etc/passwd", "Video1", "a/b", "-x", "x.key"} {
		_, err := svc.Issue(context.Background(), id)
		assert.ErrorIs(t, err, utils.ErrInvalidVideoID, id)
	}
}

func TestTokenService_ValidateExpiry(t *testing.T) {
	svc := newTestTokenService(t, 60*time.Second)
	start := time.Unix(1_700_000_000, 0)
	svc.now = func() time.Time { return start }

	resp, err := svc.Issue(context.Background(), "video1")
	require.NoError(t, err)

	svc.now = func() time.Time { return start.Add(59 * time.Second) }
	_, err = svc.Validate(resp.Token)
	require.NoError(t, err)

	// เลย exp แล้ว ไม่มี leeway
	svc.now = func() time.Time { return start.Add(61 * time.Second) }
	_, err = svc.Validate(resp.Token)
	assert.ErrorIs(t, err, utils.ErrInvalidToken)
	assert.ErrorIs(t, err, utils.ErrUnauthorized)
}

func TestTokenService_ValidateFailures(t *testing.T) {
	svc := newTestTokenService(t, time.Hour)
	resp, err := svc.Issue(context.Background(), "video1")
	require.NoError(t, err)

	t.Run("missing", func(t *testing.T) {
		_, err := svc.Validate("")
		assert.ErrorIs(t, err, utils.ErrMissingToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Validate("not.a.jwt")
		assert.ErrorIs(t, err, utils.ErrInvalidToken)
	})

	t.Run("tampered", func(t *testing.T) {
		tampered := resp.Token[:len(resp.Token)-2] + "xx"
		_, err := svc.Validate(tampered)
		assert.ErrorIs(t, err, utils.ErrInvalidToken)
	})

	t.Run("other secret", func(t *testing.T) {
		claims := models.PlaybackClaims{
			Video: "video1",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("someone-else"))
		require.NoError(t, err)
		_, err = svc.Validate(signed)
		assert.ErrorIs(t, err, utils.ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		claims := models.PlaybackClaims{
			Video: "video1",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.Validate(signed)
		assert.ErrorIs(t, err, utils.ErrInvalidToken)
	})

	t.Run("no exp", func(t *testing.T) {
		claims := models.PlaybackClaims{Video: "video1"}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = svc.Validate(signed)
		assert.ErrorIs(t, err, utils.ErrInvalidToken)
	})
}
