package httptransport

import (
	"net/http"

	"idauth/internal/token"
	dErrors "idauth/pkg/domain-errors"
	"idauth/pkg/platform/httputil"
	"idauth/pkg/requestcontext"
)

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req RefreshRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(ctx, w, err, "invalid refresh request")
		return
	}
	if err := req.Validate(); err != nil {
		h.fail(ctx, w, err, "invalid refresh request")
		return
	}

	session, err := h.sessions.RotateSession(ctx, req.RefreshToken, requestcontext.Headers(ctx))
	if err != nil {
		h.fail(ctx, w, err, "failed to rotate session")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req LogoutRequest
	if r.ContentLength > 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			h.fail(ctx, w, err, "invalid logout request")
			return
		}
	}
	user := requestcontext.User(ctx)
	if user == nil {
		h.logger.ErrorContext(ctx, "user missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	err := h.sessions.Revoke(ctx, token.RevokeParams{
		Value:          req.RefreshToken,
		MobileUID:      requestcontext.Headers(ctx).MobileUID,
		UserIdentifier: user.Identifier,
		SessionType:    user.SessionType,
	})
	if err != nil {
		h.fail(ctx, w, err, "failed to revoke session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req RefreshRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(ctx, w, err, "invalid activity request")
		return
	}
	if err := req.Validate(); err != nil {
		h.fail(ctx, w, err, "invalid activity request")
		return
	}

	if err := h.sessions.Touch(ctx, req.RefreshToken, requestcontext.Headers(ctx)); err != nil {
		h.fail(ctx, w, err, "failed to record activity")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleInvalidateExpirations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.expirations.Invalidate()
	h.logger.InfoContext(ctx, "token expiration overrides invalidated",
		"request_id", requestcontext.RequestID(ctx),
		"client_ip", requestcontext.ClientIP(ctx),
	)
	w.WriteHeader(http.StatusNoContent)
}
