package services

import "context"

// KeyService Key Gate: ตรวจ token กับ video แล้วคืน raw key
type KeyService interface {
	// GetKey ตรวจตามลำดับ
	//   1. token (utils.ErrMissingToken / utils.ErrInvalidToken)
	//   2. token ตรงกับ videoID (utils.ErrForbidden)
	//   3. มี key อยู่จริง (utils.ErrKeyNotFound)
	GetKey(ctx context.Context, videoID, token string) ([]byte, error)
}
