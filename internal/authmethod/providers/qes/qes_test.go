package qes_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"idauth/internal/authmethod"
	"idauth/internal/authmethod/providers/qes"
	"idauth/internal/authmethod/providers/qes/mocks"
	"idauth/internal/platform/httpclient"
	"idauth/internal/platform/kvcache"
	"idauth/pkg/domain"
	dErrors "idauth/pkg/domain-errors"
)

func TestProvider(t *testing.T) {
	ctx := context.Background()
	headers := domain.Headers{MobileUID: "device-1"}

	t.Run("signs the issued challenge", func(t *testing.T) {
		verifier := mocks.NewMockSignatureVerifier(gomock.NewController(t))
		p := qes.New(verifier, authmethod.NewRequestCache(kvcache.NewMemory(), domain.MethodQes, time.Minute))

		res, err := p.RequestAuthorizationURL(ctx, authmethod.RequestOptions{}, headers, domain.SchemaCabinetAuthorization)
		require.NoError(t, err)
		require.NotEmpty(t, res.Token)

		verifier.EXPECT().VerifySignature(gomock.Any(), "sig", res.Token).
			Return(&qes.OwnerInfo{TaxID: "111", SerialNumber: "S1"}, nil)
		payload, err := p.Verify(ctx, res.RequestID, authmethod.VerifyParams{Headers: headers, Signature: "sig"})
		require.NoError(t, err)
		assert.Equal(t, "111", payload.TaxID)
		assert.Equal(t, "S1", payload.Attributes["certificateSerial"])
	})

	t.Run("invalid signature", func(t *testing.T) {
		verifier := mocks.NewMockSignatureVerifier(gomock.NewController(t))
		p := qes.New(verifier, authmethod.NewRequestCache(kvcache.NewMemory(), domain.MethodQes, time.Minute))
		res, err := p.RequestAuthorizationURL(ctx, authmethod.RequestOptions{}, headers, domain.SchemaCabinetAuthorization)
		require.NoError(t, err)

		verifier.EXPECT().VerifySignature(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, qes.ErrInvalidSignature)
		_, err = p.Verify(ctx, res.RequestID, authmethod.VerifyParams{Headers: headers, Signature: "sig"})
		pc, ok := dErrors.ProcessCodeOf(err)
		require.True(t, ok)
		assert.Equal(t, domain.ProcessCodeSignatureInvalid, pc)
	})
}

func TestHTTPVerifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		valid := body["signature"] == "good"
		_ = json.NewEncoder(w).Encode(map[string]any{"valid": valid, "owner": map[string]string{"taxId": "111"}})
	}))
	t.Cleanup(srv.Close)

	v := qes.NewHTTPVerifier(httpclient.New(srv.URL, httpclient.WithRateLimit(100, 1)))

	owner, err := v.VerifySignature(context.Background(), "good", "data")
	require.NoError(t, err)
	assert.Equal(t, "111", owner.TaxID)

	_, err = v.VerifySignature(context.Background(), "bad", "data")
	assert.ErrorIs(t, err, qes.ErrInvalidSignature)
}
