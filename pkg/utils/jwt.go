package utils

import (
	"strings"
)

// ExtractTokenFromHeader คืน token จาก "Authorization: Bearer <token>"
// คืน "" ถ้า header ไม่ใช่รูปแบบ Bearer
func ExtractTokenFromHeader(authHeader string) string {
	if authHeader == "" {
		return ""
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return parts[1]
}

// BearerValue สร้างค่า Authorization header
func BearerValue(token string) string {
	return "Bearer " + token
}
