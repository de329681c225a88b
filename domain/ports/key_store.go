package ports

import (
	"context"
	"errors"
)

// ErrKeyNotExist คืนจาก KeyStore เมื่อไม่มี key ของ video นั้น
var ErrKeyNotExist = errors.New("key material does not exist")

// KeyStorePort คือ interface สำหรับอ่าน key material (read-only)
// ทำให้เปลี่ยน backend ได้ง่าย (Local, S3/MinIO, Redis cache)
type KeyStorePort interface {
	// GetKey อ่าน raw key bytes ของ video
	// videoID ต้องผ่าน utils.ValidateVideoID มาแล้ว
	GetKey(ctx context.Context, videoID string) ([]byte, error)

	// ListVideoIDs รายชื่อ video ที่มี key อยู่ (ใช้กับ inventory job)
	ListVideoIDs(ctx context.Context) ([]string, error)

	// GetProviderName ชื่อ provider (local, s3, redis+local, ...)
	GetProviderName() string
}
