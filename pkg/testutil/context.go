package testutil

import (
	"net/http"

	"idauth/pkg/domain"
	"idauth/pkg/platform/middleware/device"
)

// WithDevice sets the device headers the way the mobile app sends them.
func WithDevice(req *http.Request, mobileUID string, platform domain.PlatformType, appVersion string) *http.Request {
	req.Header.Set(device.HeaderMobileUID, mobileUID)
	if platform != domain.PlatformUnknown {
		req.Header.Set(device.HeaderPlatformType, string(platform))
	}
	if appVersion != "" {
		req.Header.Set(device.HeaderAppVersion, appVersion)
	}
	return req
}
