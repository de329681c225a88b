package utils

import (
	"github.com/gosimple/slug"
)

// MaxVideoIDLength ความยาวสูงสุดของ video identifier
const MaxVideoIDLength = 64

// IsValidVideoID ตรวจว่า id อยู่ใน safe character set
// (a-z, 0-9, "-" และ "_" โดยไม่ขึ้นต้น/ลงท้ายด้วยตัวคั่น)
// ไม่มี "." หรือ "/" จึงนำไปประกอบ path ได้โดยไม่มี traversal
func IsValidVideoID(id string) bool {
	if id == "" || len(id) > MaxVideoIDLength {
		return false
	}
	return slug.IsSlug(id)
}

// ValidateVideoID คืน ErrInvalidVideoID ถ้า id ไม่ผ่าน
func ValidateVideoID(id string) error {
	if !IsValidVideoID(id) {
		return ErrInvalidVideoID
	}
	return nil
}
