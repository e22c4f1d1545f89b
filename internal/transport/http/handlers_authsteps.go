package httptransport

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"idauth/internal/authsteps"
	"idauth/internal/authsteps/strategy"
	"idauth/internal/token"
	"idauth/pkg/domain"
	dErrors "idauth/pkg/domain-errors"
	"idauth/pkg/platform/httputil"
	"idauth/pkg/requestcontext"
)

func (h *Handler) handleGetAuthMethods(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code, err := domain.ParseSchemaCode(chi.URLParam(r, "code"))
	if err != nil {
		h.fail(ctx, w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid schema code"), "invalid auth methods request")
		return
	}

	resp, err := h.steps.GetAuthMethods(ctx, code, requestcontext.Headers(ctx), r.URL.Query().Get("processId"), requestcontext.User(ctx))
	if err != nil {
		h.fail(ctx, w, err, "failed to get auth methods")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSetStepMethod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	method, err := pathMethod(r)
	if err != nil {
		h.fail(ctx, w, err, "invalid set step request")
		return
	}

	_, p, err := h.steps.SetStepMethod(ctx, requestcontext.User(ctx), requestcontext.Headers(ctx), method, chi.URLParam(r, "processId"))
	if err != nil {
		h.fail(ctx, w, err, "failed to set step method")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleAuthorizationURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	method, err := pathMethod(r)
	if err != nil {
		h.fail(ctx, w, err, "invalid authorization url request")
		return
	}
	var req AuthorizationURLRequest
	if r.ContentLength > 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			h.fail(ctx, w, err, "invalid authorization url request")
			return
		}
	}

	url, err := h.steps.RequestAuthorizationURL(ctx, requestcontext.User(ctx), requestcontext.Headers(ctx), method, chi.URLParam(r, "processId"), req.options())
	if err != nil {
		h.fail(ctx, w, err, "failed to request authorization url")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, url)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	method, err := pathMethod(r)
	if err != nil {
		h.fail(ctx, w, err, "invalid verify request")
		return
	}
	var req VerifyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(ctx, w, err, "invalid verify request")
		return
	}
	if err := req.Validate(); err != nil {
		h.fail(ctx, w, err, "invalid verify request")
		return
	}

	headers := requestcontext.Headers(ctx)
	pc, err := h.steps.VerifyAuthMethod(ctx, method, req.RequestID, requestcontext.User(ctx), headers, chi.URLParam(r, "processId"), req.params(headers))
	if err != nil {
		h.fail(ctx, w, err, "verification failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, VerifyResponse{ProcessCode: pc.String()})
}

// handleComplete finalizes the process. When the verification staged a
// session type, the session is minted before the process is marked Completed.
func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CompleteRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(ctx, w, err, "invalid complete request")
		return
	}
	headers := requestcontext.Headers(ctx)
	in, err := req.toModel(chi.URLParam(r, "processId"), headers, requestcontext.User(ctx))
	if err != nil {
		h.fail(ctx, w, err, "invalid complete request")
		return
	}

	var session *token.Session
	in.Finalize = func(ctx context.Context, p *authsteps.UserAuthSteps, params *strategy.MintingParams) error {
		if params.SessionType == "" {
			return nil
		}
		var err error
		session, err = h.sessions.IssueSession(ctx, token.IssueParams{
			SessionType:    params.SessionType,
			Headers:        headers,
			UserIdentifier: params.UserIdentifier,
			EntryPoint: token.EntryPoint{
				Schema: p.Code,
				Method: params.Method,
				At:     requestcontext.Now(ctx),
			},
		}, params.FullName())
		return err
	}

	p, err := h.steps.CompleteSteps(ctx, in)
	if err != nil {
		h.fail(ctx, w, err, "failed to complete steps")
		return
	}
	resp := toCompleteResponse(p)
	if session != nil {
		sr := toSessionResponse(session)
		resp.Session = &sr
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleRevokeProcesses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code, err := domain.ParseSchemaCode(chi.URLParam(r, "code"))
	if err != nil {
		h.fail(ctx, w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid schema code"), "invalid revoke request")
		return
	}
	user := requestcontext.User(ctx)
	if user == nil {
		h.logger.ErrorContext(ctx, "user missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	res, err := h.steps.RevokeSubmitAfterUserAuthSteps(ctx, authsteps.RevokeRequest{
		Code:           code,
		MobileUID:      requestcontext.Headers(ctx).MobileUID,
		UserIdentifier: user.Identifier,
	})
	if err != nil {
		h.fail(ctx, w, err, "failed to revoke processes")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func pathMethod(r *http.Request) (domain.Method, error) {
	method, err := domain.ParseMethod(chi.URLParam(r, "method"))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeValidation, "invalid auth method")
	}
	return method, nil
}

// fail logs at warn for client errors and at error for server errors, then
// writes the error body.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"mobile_uid", requestcontext.Headers(ctx).MobileUID,
		"error", err,
	}
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}
