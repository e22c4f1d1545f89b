// Package device reads the device headers every action carries.
package device

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"idauth/pkg/domain"
	"idauth/pkg/requestcontext"
)

const (
	HeaderMobileUID       = "X-Mobile-Uid"
	HeaderPlatformType    = "X-Platform-Type"
	HeaderPlatformVersion = "X-Platform-Version"
	HeaderAppVersion      = "X-App-Version"
	HeaderTraceID         = "X-Trace-Id"
)

// Headers snapshots the device headers into the request context. A missing
// platform type is inferred from the User-Agent.
func Headers(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithHeaders(r.Context(), FromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromRequest reads the device headers of r.
func FromRequest(r *http.Request) domain.Headers {
	h := domain.Headers{
		MobileUID:       strings.TrimSpace(r.Header.Get(HeaderMobileUID)),
		PlatformType:    domain.ParsePlatformType(r.Header.Get(HeaderPlatformType)),
		PlatformVersion: strings.TrimSpace(r.Header.Get(HeaderPlatformVersion)),
		AppVersion:      strings.TrimSpace(r.Header.Get(HeaderAppVersion)),
		TraceID:         strings.TrimSpace(r.Header.Get(HeaderTraceID)),
	}
	if h.PlatformType == domain.PlatformUnknown {
		h.PlatformType, h.PlatformVersion = fromUserAgent(r.Header.Get("User-Agent"), h.PlatformVersion)
	}
	return h
}

// PlatformFromUserAgent infers the platform of a client that did not report one.
func PlatformFromUserAgent(raw string) domain.PlatformType {
	p, _ := fromUserAgent(raw, "")
	return p
}

func fromUserAgent(raw, version string) (domain.PlatformType, string) {
	if strings.TrimSpace(raw) == "" {
		return domain.PlatformUnknown, version
	}
	ua := useragent.New(raw)
	if ua.Bot() {
		return domain.PlatformUnknown, version
	}
	info := ua.OSInfo()
	if version == "" {
		version = info.Version
	}
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "huawei") || strings.Contains(lower, "harmonyos"):
		return domain.PlatformHuawei, version
	case strings.Contains(strings.ToLower(info.Name), "android"):
		return domain.PlatformAndroid, version
	case strings.Contains(strings.ToLower(info.Name), "ios") || strings.Contains(lower, "iphone") || strings.Contains(lower, "ipad"):
		return domain.PlatformIOS, version
	}
	if name, _ := ua.Browser(); name != "" {
		return domain.PlatformBrowser, version
	}
	return domain.PlatformUnknown, version
}
