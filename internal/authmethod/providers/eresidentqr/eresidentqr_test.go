package eresidentqr_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"idauth/internal/authmethod"
	"idauth/internal/authmethod/providers/eresidentqr"
	"idauth/internal/authmethod/providers/eresidentqr/mocks"
	"idauth/internal/challenge"
	"idauth/internal/eresident"
	"idauth/pkg/domain"
	dErrors "idauth/pkg/domain-errors"
)

func TestProvider(t *testing.T) {
	ctx := context.Background()
	headers := domain.Headers{MobileUID: "device-1"}
	countries := authmethod.NewCountryAllowList([]string{"EST"})
	created := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("request returns the nonce as request id", func(t *testing.T) {
		conf := mocks.NewMockConfirmations(gomock.NewController(t))
		p := eresidentqr.New(conf, countries)
		conf.EXPECT().Start(gomock.Any(), headers, "ERES1:abc").
			Return(&challenge.Challenge{Nonce: "nonce-1", CreatedAt: created}, nil)
		conf.EXPECT().ExpiresAt(created).Return(created.Add(10 * time.Minute))

		res, err := p.RequestAuthorizationURL(ctx, authmethod.RequestOptions{QrPayload: "ERES1:abc"}, headers, domain.SchemaEResidentFirstAuth)
		require.NoError(t, err)
		assert.Equal(t, "nonce-1", res.RequestID)
		assert.Equal(t, created.Add(10*time.Minute), res.ExpiresAt)
	})

	t.Run("missing payload", func(t *testing.T) {
		p := eresidentqr.New(mocks.NewMockConfirmations(gomock.NewController(t)), countries)
		_, err := p.RequestAuthorizationURL(ctx, authmethod.RequestOptions{}, headers, domain.SchemaEResidentFirstAuth)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("confirmed holder", func(t *testing.T) {
		conf := mocks.NewMockConfirmations(gomock.NewController(t))
		p := eresidentqr.New(conf, countries)
		conf.EXPECT().Result(gomock.Any(), "device-1", "nonce-1").Return(&eresident.QrResult{
			Confirmed:  true,
			Surname:    "TAMM",
			GivenNames: "KADRI",
			Document:   &authmethod.Document{Country: "EST", Number: "AB1234567"},
		}, nil)

		payload, err := p.Verify(ctx, "nonce-1", authmethod.VerifyParams{Headers: headers})
		require.NoError(t, err)
		assert.Equal(t, "TAMM KADRI", payload.FullName())
	})

	t.Run("unsupported issuing country", func(t *testing.T) {
		conf := mocks.NewMockConfirmations(gomock.NewController(t))
		p := eresidentqr.New(conf, countries)
		conf.EXPECT().Result(gomock.Any(), "device-1", "nonce-1").Return(&eresident.QrResult{
			Confirmed: true,
			Document:  &authmethod.Document{Country: "RUS"},
		}, nil)

		_, err := p.Verify(ctx, "nonce-1", authmethod.VerifyParams{Headers: headers})
		pc, ok := dErrors.ProcessCodeOf(err)
		require.True(t, ok)
		assert.Equal(t, domain.ProcessCodeUnsupportedCountry, pc)
	})
}
