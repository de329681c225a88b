package playback

import (
	"net/http"
	"strings"

	"keygate/domain/ports"
	"keygate/pkg/utils"
)

// DefaultKeyPathPrefix path ของ key endpoint บน server
const DefaultKeyPathPrefix = "/key/"

// KeyRequestInterceptor ใส่ Authorization header ให้เฉพาะ request ไปที่ key endpoint
// playlist และ segment ไม่เห็น token
func KeyRequestInterceptor(token, keyPathPrefix string) ports.RequestSetup {
	if keyPathPrefix == "" {
		keyPathPrefix = DefaultKeyPathPrefix
	}
	return func(req *http.Request) {
		if req == nil || req.URL == nil {
			return
		}
		if strings.HasPrefix(req.URL.Path, keyPathPrefix) {
			req.Header.Set("Authorization", utils.BearerValue(token))
		}
	}
}
