package bankid_test

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"idauth/internal/authmethod"
	"idauth/internal/authmethod/providers/bankid"
	"idauth/internal/authmethod/providers/bankid/mocks"
	"idauth/internal/platform/kvcache"
	"idauth/pkg/domain"
	dErrors "idauth/pkg/domain-errors"
	"idauth/pkg/requestcontext"
)

func TestProvider(t *testing.T) {
	bank := bankid.Bank{Method: domain.MethodBankID, ID: "bank-1", AuthorizeURL: "https://bank.example/authorize", ClientID: "client"}
	headers := domain.Headers{MobileUID: "device-1"}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	setup := func(t *testing.T) (*bankid.Provider, *mocks.MockClient) {
		ctrl := gomock.NewController(t)
		client := mocks.NewMockClient(ctrl)
		cache := authmethod.NewRequestCache(kvcache.NewMemory(), domain.MethodBankID, 5*time.Minute)
		return bankid.New(bank, "https://app.example/cb", client, cache), client
	}

	t.Run("authorization url carries request id as state", func(t *testing.T) {
		p, _ := setup(t)
		res, err := p.RequestAuthorizationURL(ctx, authmethod.RequestOptions{ProcessID: "p1"}, headers, domain.SchemaAuthorization)
		require.NoError(t, err)

		u, err := url.Parse(res.URL)
		require.NoError(t, err)
		assert.Equal(t, res.RequestID, u.Query().Get("state"))
		assert.Equal(t, "bank-1", u.Query().Get("bank_id"))
		assert.Equal(t, now.Add(5*time.Minute), res.ExpiresAt)
	})

	t.Run("verify resolves identity once", func(t *testing.T) {
		p, client := setup(t)
		res, err := p.RequestAuthorizationURL(ctx, authmethod.RequestOptions{}, headers, domain.SchemaAuthorization)
		require.NoError(t, err)

		client.EXPECT().Exchange(gomock.Any(), bank, "code-1", "https://app.example/cb").
			Return(&bankid.UserInfo{TaxID: "1234567890", FirstName: "Olena", LastName: "Koval"}, nil)

		payload, err := p.Verify(ctx, res.RequestID, authmethod.VerifyParams{Headers: headers, Code: "code-1"})
		require.NoError(t, err)
		assert.Equal(t, "1234567890", payload.TaxID)
		assert.Equal(t, "Koval Olena", payload.FullName())

		_, err = p.Verify(ctx, res.RequestID, authmethod.VerifyParams{Headers: headers, Code: "code-1"})
		pc, ok := dErrors.ProcessCodeOf(err)
		require.True(t, ok)
		assert.Equal(t, domain.ProcessCodeRequestExpired, pc)
	})

	t.Run("unknown request id is denied", func(t *testing.T) {
		p, _ := setup(t)
		_, err := p.RequestAuthorizationURL(ctx, authmethod.RequestOptions{}, headers, domain.SchemaAuthorization)
		require.NoError(t, err)

		_, err = p.Verify(ctx, "other", authmethod.VerifyParams{Headers: headers, Code: "c"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("bank failure maps to bank-auth-failed", func(t *testing.T) {
		p, client := setup(t)
		res, err := p.RequestAuthorizationURL(ctx, authmethod.RequestOptions{}, headers, domain.SchemaAuthorization)
		require.NoError(t, err)
		client.EXPECT().Exchange(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("boom"))

		_, err = p.Verify(ctx, res.RequestID, authmethod.VerifyParams{Headers: headers, Code: "c"})
		pc, ok := dErrors.ProcessCodeOf(err)
		require.True(t, ok)
		assert.Equal(t, domain.ProcessCodeBankAuthFailed, pc)
	})

	t.Run("missing code is a bad request", func(t *testing.T) {
		p, _ := setup(t)
		_, err := p.Verify(ctx, "r", authmethod.VerifyParams{Headers: headers})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}
