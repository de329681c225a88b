package ports

import (
	"errors"
	"io"
)

// ErrAssetNotExist คืนเมื่อไม่มีไฟล์ playlist/segment ที่ขอ
var ErrAssetNotExist = errors.New("asset does not exist")

// ErrInvalidRange คืนเมื่อ byte range อยู่นอกขนาดไฟล์
var ErrInvalidRange = errors.New("range not satisfiable")

// AssetStoragePort อ่านไฟล์ HLS (playlist, segments) ที่เข้ารหัสแล้ว
// ไฟล์เหล่านี้ไม่ต้องใช้ token เพราะถอดรหัสไม่ได้ถ้าไม่มี key
type AssetStoragePort interface {
	// GetFileContent อ่านไฟล์ทั้งไฟล์
	// return: io.ReadCloser, contentType, error
	GetFileContent(path string) (io.ReadCloser, string, error)

	// GetFileRange อ่านไฟล์บางส่วน (สำหรับ byte range requests)
	// end: -1 = ถึงท้ายไฟล์
	// return: io.ReadCloser, totalFileSize, error
	GetFileRange(path string, start, end int64) (io.ReadCloser, int64, error)
}
