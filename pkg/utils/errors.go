package utils

import (
	"errors"
	"fmt"
)

// ========== Error taxonomy ==========

var (
	// ErrConfiguration ค่า config ที่จำเป็นหายไป (เช่น JWT_SECRET) ต้อง fail ตอน startup
	ErrConfiguration = errors.New("configuration error")

	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("token-video mismatch")
	ErrKeyNotFound  = errors.New("key not found")

	ErrInvalidVideoID = errors.New("invalid video identifier")
)

// ErrMissingToken และ ErrInvalidToken ทั้งคู่ errors.Is(err, ErrUnauthorized)
var (
	ErrMissingToken = fmt.Errorf("missing token: %w", ErrUnauthorized)
	ErrInvalidToken = fmt.Errorf("invalid token: %w", ErrUnauthorized)
)
