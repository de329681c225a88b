package serviceimpl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"keygate/domain/dto"
	"keygate/domain/models"
	"keygate/pkg/config"
	"keygate/pkg/logger"
	"keygate/pkg/metrics"
	"keygate/pkg/utils"
)

// TokenServiceImpl ออก playback token แบบ stateless (ไม่เก็บอะไรฝั่ง server)
type TokenServiceImpl struct {
	secret         []byte
	ttl            time.Duration
	issuer         string
	defaultVideoID string
	provider       string
	appURL         string
	now            func() time.Time
}

// NewTokenService สร้าง TokenServiceImpl
// คืน utils.ErrConfiguration ถ้าไม่มี JWT secret
func NewTokenService(jwtCfg config.JWTConfig, gateCfg config.KeyGateConfig, appURL string) (*TokenServiceImpl, error) {
	if strings.TrimSpace(jwtCfg.Secret) == "" {
		return nil, fmt.Errorf("%w: JWT_SECRET is not set", utils.ErrConfiguration)
	}
	if err := utils.ValidateVideoID(gateCfg.DefaultVideoID); err != nil {
		return nil, fmt.Errorf("%w: DEFAULT_VIDEO_ID %q: %v", utils.ErrConfiguration, gateCfg.DefaultVideoID, err)
	}

	ttl := jwtCfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &TokenServiceImpl{
		secret:         []byte(jwtCfg.Secret),
		ttl:            ttl,
		issuer:         jwtCfg.Issuer,
		defaultVideoID: gateCfg.DefaultVideoID,
		provider:       gateCfg.Provider,
		appURL:         strings.TrimSuffix(appURL, "/"),
		now:            time.Now,
	}, nil
}

// Issue สร้าง JWT ผูกกับ video
func (s *TokenServiceImpl) Issue(ctx context.Context, videoID string) (*dto.PlaybackTokenResponse, error) {
	if videoID == "" {
		videoID = s.defaultVideoID
	}
	if err := utils.ValidateVideoID(videoID); err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := models.PlaybackClaims{
		Video: videoID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign playback token: %w", err)
	}

	metrics.IncTokenIssued(videoID)
	logger.InfoContext(ctx, "Playback token issued", "video", videoID, "expires_at", expiresAt.Unix())

	return &dto.PlaybackTokenResponse{
		Provider:  s.provider,
		Token:     tokenString,
		ExpiresAt: claims.ExpiresAt.Unix(),
		Playback: dto.PlaybackDescriptor{
			VideoID:     videoID,
			PlaylistURL: s.PlaylistURL(videoID),
		},
	}, nil
}

// Validate ตรวจ signature (HMAC เท่านั้น) และ exp
func (s *TokenServiceImpl) Validate(tokenString string) (*models.PlaybackClaims, error) {
	if tokenString == "" {
		return nil, utils.ErrMissingToken
	}

	claims := &models.PlaybackClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", utils.ErrInvalidToken)
		}
		return nil, fmt.Errorf("%w: %v", utils.ErrInvalidToken, err)
	}
	if !token.Valid || claims.Video == "" {
		return nil, utils.ErrInvalidToken
	}

	return claims, nil
}

// PlaylistURL URL ของ playlist ที่ถูกเข้ารหัสของ video
func (s *TokenServiceImpl) PlaylistURL(videoID string) string {
	return fmt.Sprintf("%s/protected_hls/%s/out.m3u8", s.appURL, videoID)
}
