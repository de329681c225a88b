package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"keygate/domain/ports"
	"keygate/pkg/logger"
	"keygate/pkg/utils"
)

// S3Storage อ่าน key material และ HLS assets จาก S3-Compatible Storage (MinIO / Cloudflare R2)
//
//	<keyPrefix><video>.key
//	<assetPrefix><video>/out.m3u8, ...
type S3Storage struct {
	client      *minio.Client
	bucket      string
	keyPrefix   string
	assetPrefix string
	timeout     time.Duration
}

type S3StorageConfig struct {
	Endpoint    string // minio:9000 หรือ xxx.r2.cloudflarestorage.com
	AccessKey   string
	SecretKey   string
	Bucket      string
	UseSSL      bool
	Region      string
	KeyPrefix   string // keys/
	AssetPrefix string // protected_hls/
}

// NewS3Storage สร้าง S3Storage instance
// bucket ต้องมีอยู่แล้ว (read-only จากมุมของ key gate)
func NewS3Storage(config S3StorageConfig) (*S3Storage, error) {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 50,
		MaxConnsPerHost:     100,
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure:    config.UseSSL,
		Region:    config.Region,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, config.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist", config.Bucket)
	}

	logger.Info("S3 storage initialized",
		"endpoint", config.Endpoint,
		"bucket", config.Bucket,
		"ssl", config.UseSSL,
	)

	return newS3StorageWithClient(client, config), nil
}

func newS3StorageWithClient(client *minio.Client, config S3StorageConfig) *S3Storage {
	return &S3Storage{
		client:      client,
		bucket:      config.Bucket,
		keyPrefix:   normalizePrefix(config.KeyPrefix, "keys/"),
		assetPrefix: normalizePrefix(config.AssetPrefix, "protected_hls/"),
		timeout:     5 * time.Second,
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// KeyStorePort
// ═══════════════════════════════════════════════════════════════════════════════

// GetKey อ่าน object <keyPrefix><video>.key
func (s *S3Storage) GetKey(ctx context.Context, videoID string) ([]byte, error) {
	if err := utils.ValidateVideoID(videoID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	objectName := s.keyPrefix + videoID + keyFileExt
	obj, err := s.client.GetObject(ctx, s.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapError(err, ports.ErrKeyNotExist)
	}
	defer obj.Close()

	// GetObject เป็น lazy: error จริงมาตอน Read
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.mapError(err, ports.ErrKeyNotExist)
	}
	return data, nil
}

// ListVideoIDs รายชื่อ video จาก object ใต้ keyPrefix
func (s *S3Storage) ListVideoIDs(ctx context.Context) ([]string, error) {
	objectsCh := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.keyPrefix,
		Recursive: false,
	})

	var ids []string
	for obj := range objectsCh {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		name := strings.TrimPrefix(obj.Key, s.keyPrefix)
		if !strings.HasSuffix(name, keyFileExt) {
			continue
		}
		id := strings.TrimSuffix(name, keyFileExt)
		if utils.IsValidVideoID(id) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// GetProviderName return ชื่อ provider
func (s *S3Storage) GetProviderName() string {
	return "s3"
}

// ═══════════════════════════════════════════════════════════════════════════════
// AssetStoragePort
// ═══════════════════════════════════════════════════════════════════════════════

// GetFileContent อ่านไฟล์จาก S3 และ return io.ReadCloser
func (s *S3Storage) GetFileContent(path string) (io.ReadCloser, string, error) {
	objectName, err := s.assetObject(path)
	if err != nil {
		return nil, "", err
	}

	ctx := context.Background()
	obj, err := s.client.GetObject(ctx, s.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", s.mapError(err, ports.ErrAssetNotExist)
	}

	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, "", s.mapError(err, ports.ErrAssetNotExist)
	}

	contentType := info.ContentType
	if contentType == "" || contentType == "binary/octet-stream" {
		contentType = utils.ContentTypeFor(path)
	}
	return obj, contentType, nil
}

// GetFileRange อ่านไฟล์บางส่วนจาก S3 (byte range request)
func (s *S3Storage) GetFileRange(path string, start, end int64) (io.ReadCloser, int64, error) {
	objectName, err := s.assetObject(path)
	if err != nil {
		return nil, 0, err
	}

	ctx := context.Background()
	info, err := s.client.StatObject(ctx, s.bucket, objectName, minio.StatObjectOptions{})
	if err != nil {
		return nil, 0, s.mapError(err, ports.ErrAssetNotExist)
	}

	totalSize := info.Size
	if start < 0 || start >= totalSize {
		return nil, totalSize, fmt.Errorf("%w: start %d, size %d", ports.ErrInvalidRange, start, totalSize)
	}

	actualEnd := end
	if end < 0 || end >= totalSize {
		actualEnd = totalSize - 1
	}

	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(start, actualEnd); err != nil {
		return nil, 0, fmt.Errorf("failed to set range: %w", err)
	}

	obj, err := s.client.GetObject(ctx, s.bucket, objectName, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get object range: %w", err)
	}

	return obj, totalSize, nil
}

func (s *S3Storage) assetObject(path string) (string, error) {
	clean, err := utils.ValidateAssetPath(path)
	if err != nil {
		return "", err
	}
	return s.assetPrefix + clean, nil
}

// mapError แปลง NoSuchKey ของ S3 เป็น notExist
func (s *S3Storage) mapError(err error, notExist error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return notExist
	}
	return fmt.Errorf("s3 request failed: %w", err)
}

func normalizePrefix(prefix, fallback string) string {
	prefix = strings.TrimPrefix(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return fallback
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}
