package dto

// CreateCheckoutSessionRequest body ของ POST /session
type CreateCheckoutSessionRequest struct {
	VideoID  string `json:"videoId" validate:"required,videoid"`
	DeviceID string `json:"deviceId" validate:"omitempty,max=128"`
	UserID   string `json:"userId" validate:"omitempty,max=128"`
}

// CreateCheckoutSessionResponse redirect ไปหน้า success (fake checkout)
type CreateCheckoutSessionResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}
