package handlers

import (
	"keygate/domain/ports"
	"keygate/domain/services"
)

// Services contains all the services needed for handlers
type Services struct {
	TokenService    services.TokenService
	KeyService      services.KeyService
	CheckoutService services.CheckoutService
	AssetStorage    ports.AssetStoragePort // protected_hls
	AllowQueryToken bool                   // ?token= fallback ของ key gate
}

// Handlers contains all HTTP handlers
type Handlers struct {
	TokenHandler    *TokenHandler
	KeyHandler      *KeyHandler
	CheckoutHandler *CheckoutHandler
	HLSHandler      *HLSHandler
}

// NewHandlers creates a new instance of Handlers with all dependencies
func NewHandlers(services *Services) *Handlers {
	return &Handlers{
		TokenHandler:    NewTokenHandler(services.TokenService),
		KeyHandler:      NewKeyHandler(services.KeyService, services.AllowQueryToken),
		CheckoutHandler: NewCheckoutHandler(services.CheckoutService),
		HLSHandler:      NewHLSHandler(services.AssetStorage),
	}
}
