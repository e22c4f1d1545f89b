// Package version enforces the minimum supported app version per platform.
package version

import (
	"fmt"
	"log/slog"
	"net/http"

	"idauth/pkg/domain"
	"idauth/pkg/platform/httputil"
	"idauth/pkg/requestcontext"
)

// Minimums maps a platform to the lowest app version still served.
type Minimums map[domain.PlatformType]domain.AppVersion

// ErrorUpgradeRequired is the error code of rejected outdated clients.
const ErrorUpgradeRequired = "upgrade_required"

// Check reports whether headers carry a supported app version. Platforms
// without a minimum and requests without a version are allowed.
func (m Minimums) Check(headers domain.Headers) error {
	floor, ok := m[headers.PlatformType]
	if !ok || headers.AppVersion == "" {
		return nil
	}
	v, err := domain.ParseAppVersion(headers.AppVersion)
	if err != nil {
		return fmt.Errorf("app version %q: %w", headers.AppVersion, err)
	}
	if !v.IsAtLeast(floor) {
		return fmt.Errorf("app version %s is below %s", v, floor)
	}
	return nil
}

// RequireMinimum rejects outdated clients with 426 Upgrade Required. It must
// run after the device headers middleware.
func RequireMinimum(minimums Minimums, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			headers := requestcontext.Headers(ctx)
			if err := minimums.Check(headers); err != nil {
				logger.WarnContext(ctx, "outdated client rejected",
					"platform", headers.PlatformType,
					"app_version", headers.AppVersion,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteJSON(w, http.StatusUpgradeRequired, httputil.ErrorResponse{
					Error:            ErrorUpgradeRequired,
					ErrorDescription: err.Error(),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
