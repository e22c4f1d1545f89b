package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"idauth/pkg/domain"
	dErrors "idauth/pkg/domain-errors"
	"idauth/pkg/platform/httputil"
	"idauth/pkg/requestcontext"
)

// UserValidator validates an access token and returns its user and the device
// it was minted for.
type UserValidator interface {
	ValidateUser(tokenString string) (*domain.User, string, error)
}

const bearerPrefix = "Bearer "

// RequireAuth rejects requests without a valid access token bound to the
// calling device.
func RequireAuth(validator UserValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return authenticate(validator, logger, true)
}

// OptionalAuth attaches the session user when a token is present. Anonymous
// requests pass through; an invalid token is still rejected.
func OptionalAuth(validator UserValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return authenticate(validator, logger, false)
}

func authenticate(validator UserValidator, logger *slog.Logger, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || strings.TrimSpace(token) == "" {
				if !required {
					next.ServeHTTP(w, r)
					return
				}
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			user, mobileUID, err := validator.ValidateUser(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}
			if headers := requestcontext.Headers(ctx); headers.MobileUID != "" && mobileUID != headers.MobileUID {
				logger.WarnContext(ctx, "unauthorized access - token bound to another device",
					"request_id", requestcontext.RequestID(ctx),
					"mobile_uid", headers.MobileUID,
				)
				httputil.WriteError(w, dErrors.NewProcess(dErrors.CodeUnauthorized, domain.ProcessCodeTokenDeviceMismatch, "token bound to another device"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithUser(ctx, user)))
		})
	}
}
