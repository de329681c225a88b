package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"keygate/domain/ports"
	"keygate/pkg/utils"
)

const keyFileExt = ".key"

// LocalStorage อ่าน key material และ HLS assets จาก local filesystem
//
//	<keyDir>/<video>.key
//	<assetDir>/<video>/out.m3u8, <assetDir>/<video>/seg_000.ts, ...
type LocalStorage struct {
	keyDir   string
	assetDir string
}

type LocalStorageConfig struct {
	KeyDir   string // ./keys
	AssetDir string // ./protected_hls
}

// NewLocalStorage สร้าง LocalStorage instance
// key directory ต้องมีอยู่แล้ว (server ไม่สร้าง key เอง)
func NewLocalStorage(config LocalStorageConfig) (*LocalStorage, error) {
	keyDir, err := filepath.Abs(config.KeyDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve key directory: %w", err)
	}
	info, err := os.Stat(keyDir)
	if err != nil {
		return nil, fmt.Errorf("key directory %s: %w", keyDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("key directory %s is not a directory", keyDir)
	}

	assetDir, err := filepath.Abs(config.AssetDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve asset directory: %w", err)
	}

	return &LocalStorage{
		keyDir:   keyDir,
		assetDir: assetDir,
	}, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// KeyStorePort
// ═══════════════════════════════════════════════════════════════════════════════

// GetKey อ่าน <keyDir>/<video>.key
func (l *LocalStorage) GetKey(ctx context.Context, videoID string) ([]byte, error) {
	fullPath, err := l.keyPath(videoID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ports.ErrKeyNotExist
		}
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	return data, nil
}

// ListVideoIDs รายชื่อ video จากไฟล์ *.key
func (l *LocalStorage) ListVideoIDs(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.keyDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list key directory: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), keyFileExt) {
			continue
		}
		id := strings.TrimSuffix(e.Name(), keyFileExt)
		if utils.IsValidVideoID(id) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (l *LocalStorage) GetProviderName() string {
	return "local"
}

// keyPath ประกอบ path จาก video id ที่ผ่าน validation แล้วเท่านั้น
func (l *LocalStorage) keyPath(videoID string) (string, error) {
	if err := utils.ValidateVideoID(videoID); err != nil {
		return "", err
	}
	fullPath := filepath.Join(l.keyDir, videoID+keyFileExt)
	if filepath.Dir(fullPath) != l.keyDir {
		return "", utils.ErrUnsafePath
	}
	return fullPath, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// AssetStoragePort
// ═══════════════════════════════════════════════════════════════════════════════

// GetFileContent อ่านไฟล์จาก local filesystem
func (l *LocalStorage) GetFileContent(path string) (io.ReadCloser, string, error) {
	fullPath, err := l.assetPath(path)
	if err != nil {
		return nil, "", err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", ports.ErrAssetNotExist
		}
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}

	return file, utils.ContentTypeFor(path), nil
}

// GetFileRange อ่านไฟล์บางส่วนจาก local filesystem
func (l *LocalStorage) GetFileRange(path string, start, end int64) (io.ReadCloser, int64, error) {
	fullPath, err := l.assetPath(path)
	if err != nil {
		return nil, 0, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, ports.ErrAssetNotExist
		}
		return nil, 0, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, fmt.Errorf("failed to stat file: %w", err)
	}
	totalSize := stat.Size()

	if start < 0 || start >= totalSize {
		file.Close()
		return nil, totalSize, fmt.Errorf("%w: start %d, size %d", ports.ErrInvalidRange, start, totalSize)
	}
	if end < 0 || end >= totalSize {
		end = totalSize - 1
	}

	if _, err := file.Seek(start, io.SeekStart); err != nil {
		file.Close()
		return nil, 0, fmt.Errorf("failed to seek: %w", err)
	}

	return &limitedReadCloser{
		Reader: io.LimitReader(file, end-start+1),
		closer: file,
	}, totalSize, nil
}

func (l *LocalStorage) assetPath(path string) (string, error) {
	clean, err := utils.ValidateAssetPath(path)
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(l.assetDir, filepath.FromSlash(clean))
	if !strings.HasPrefix(fullPath, l.assetDir+string(filepath.Separator)) {
		return "", utils.ErrUnsafePath
	}
	return fullPath, nil
}

// limitedReadCloser อ่านได้ไม่เกิน limit แต่ปิดไฟล์จริงตอน Close
type limitedReadCloser struct {
	io.Reader
	closer io.Closer
}

func (l *limitedReadCloser) Close() error {
	return l.closer.Close()
}
