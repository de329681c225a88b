package services

import (
	"context"

	"keygate/domain/dto"
)

// CheckoutService fake checkout (ไม่มีการชำระเงินจริง)
type CheckoutService interface {
	CreateSession(ctx context.Context, req *dto.CreateCheckoutSessionRequest) (*dto.CreateCheckoutSessionResponse, error)
}
