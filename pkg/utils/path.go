package utils

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	ErrInvalidPath      = errors.New("invalid path format")
	ErrUnsafePath       = errors.New("unsafe path detected")
	ErrPathTooLong      = errors.New("path is too long")
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrInvalidCharacter = errors.New("path contains invalid characters")
)

const (
	MaxPathLength = 500
)

var (
	dangerousChars = regexp.MustCompile(`[<>:"|?*\x00-\x1f\x7f]`)
	repeatedSlash  = regexp.MustCompile(`/+`)
)

// ValidateAssetPath ตรวจและ normalize path ของไฟล์ HLS ที่ client ขอ
// (เช่น "out.m3u8", "720p/seg_001.ts") ให้อยู่ใต้ directory ของ video เสมอ
func ValidateAssetPath(assetPath string) (string, error) {
	assetPath = strings.TrimSpace(assetPath)
	if assetPath == "" {
		return "", ErrEmptyPath
	}

	if len(assetPath) > MaxPathLength {
		return "", ErrPathTooLong
	}

	// Normalize path separators to forward slashes
	assetPath = strings.ReplaceAll(assetPath, "\\", "/")

	// Check for directory traversal attempts
	for _, part := range strings.Split(assetPath, "/") {
		if part == ".." {
			return "", ErrUnsafePath
		}
	}

	if filepath.IsAbs(assetPath) || strings.HasPrefix(assetPath, "/") {
		return "", ErrUnsafePath
	}

	if dangerousChars.MatchString(assetPath) {
		return "", ErrInvalidCharacter
	}

	assetPath = repeatedSlash.ReplaceAllString(assetPath, "/")
	assetPath = strings.TrimSuffix(assetPath, "/")

	if assetPath == "" || assetPath == "." {
		return "", ErrEmptyPath
	}

	return assetPath, nil
}

// ContentTypeFor content type ตามนามสกุลไฟล์ของ HLS assets
func ContentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".ts":
		return "video/MP2T"
	case ".m4s", ".mp4":
		return "video/mp4"
	case ".aac":
		return "audio/aac"
	case ".vtt":
		return "text/vtt; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
