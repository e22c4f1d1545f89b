package httptransport

import (
	"net/http"

	dErrors "idauth/pkg/domain-errors"
	"idauth/pkg/platform/httputil"
	"idauth/pkg/requestcontext"
)

func (h *Handler) handleCreateChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := requestcontext.User(ctx)
	if user == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	ch, err := h.integrity.Create(ctx, user.Identifier, requestcontext.Headers(ctx))
	if err != nil {
		h.fail(ctx, w, err, "failed to create challenge")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toChallengeResponse(ch))
}

func (h *Handler) handleLaunchChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := requestcontext.User(ctx)
	if user == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	var req LaunchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(ctx, w, err, "invalid launch request")
		return
	}
	if err := req.Validate(); err != nil {
		h.fail(ctx, w, err, "invalid launch request")
		return
	}

	ch, err := h.integrity.Launch(ctx, user.Identifier, requestcontext.Headers(ctx), req.Statement, req.Nonce)
	if err != nil {
		h.fail(ctx, w, err, "failed to launch challenge")
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, toChallengeResponse(ch))
}

func (h *Handler) handleChallengeStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ch, err := h.integrity.Status(ctx, requestcontext.Headers(ctx))
	if err != nil {
		h.fail(ctx, w, err, "failed to load challenge")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toChallengeResponse(ch))
}
