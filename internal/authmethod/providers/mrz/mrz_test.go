package mrz_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"idauth/internal/authmethod"
	"idauth/internal/authmethod/providers/mrz"
	"idauth/internal/authmethod/providers/mrz/mocks"
	"idauth/internal/platform/kvcache"
	"idauth/pkg/domain"
	dErrors "idauth/pkg/domain-errors"
	"idauth/pkg/requestcontext"
)

var (
	passport = []string{
		"P<ESTTAMM<<KADRI<<<<<<<<<<<<<<<<<<<<<<<<<<<<",
		"AB12345671EST9001011F3101012<<<<<<<<<<<<<<04",
	}
	expiredPassport = []string{
		"P<ESTTAMM<<KADRI<<<<<<<<<<<<<<<<<<<<<<<<<<<<",
		"AB12345671EST9001011F2001012<<<<<<<<<<<<<<06",
	}
	foreignPassport = []string{
		"P<RUSIVANOV<<IVAN<<<<<<<<<<<<<<<<<<<<<<<<<<<",
		"AB12345671EST9001011F3101012<<<<<<<<<<<<<<04",
	}
	idCard = []string{
		"I<ESTAB12345671<<<<<<<<<<<<<<<",
		"9001011F3101012EST<<<<<<<<<<<4",
		"TAMM<<KADRI<<<<<<<<<<<<<<<<<<<",
	}
)

func TestParse(t *testing.T) {
	t.Run("passport", func(t *testing.T) {
		d, err := mrz.Parse(passport)
		require.NoError(t, err)
		assert.Equal(t, "EST", d.IssuingCountry)
		assert.Equal(t, "AB1234567", d.DocumentNumber)
		assert.Equal(t, "TAMM", d.Surname)
		assert.Equal(t, "KADRI", d.GivenNames)
		assert.Equal(t, "310101", d.ExpiryDate)
	})

	t.Run("id card", func(t *testing.T) {
		d, err := mrz.Parse(idCard)
		require.NoError(t, err)
		assert.Equal(t, "I", d.DocumentType)
		assert.Equal(t, "AB1234567", d.DocumentNumber)
		assert.Equal(t, "TAMM", d.Surname)
	})

	t.Run("tampered check digit", func(t *testing.T) {
		bad := []string{passport[0], "AB12345681EST9001011F3101012<<<<<<<<<<<<<<04"}
		_, err := mrz.Parse(bad)
		assert.ErrorContains(t, err, "document number")
	})

	t.Run("wrong shape", func(t *testing.T) {
		_, err := mrz.Parse([]string{"short"})
		assert.Error(t, err)
	})

	t.Run("check digit reference value", func(t *testing.T) {
		d, err := mrz.CheckDigit("L898902C3")
		require.NoError(t, err)
		assert.Equal(t, byte('6'), d)
	})
}

func TestProvider(t *testing.T) {
	headers := domain.Headers{MobileUID: "device-1"}
	ctx := requestcontext.WithTime(context.Background(), time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))

	setup := func(t *testing.T) (*mrz.Provider, *mocks.MockRegistry) {
		registry := mocks.NewMockRegistry(gomock.NewController(t))
		requests := authmethod.NewRequestCache(kvcache.NewMemory(), domain.MethodEResidentMrz, time.Minute)
		return mrz.New(registry, requests, authmethod.NewCountryAllowList([]string{"EST"})), registry
	}

	verify := func(t *testing.T, p *mrz.Provider, lines []string) (*authmethod.IdentityPayload, error) {
		res, err := p.RequestAuthorizationURL(ctx, authmethod.RequestOptions{}, headers, domain.SchemaEResidentAuth)
		require.NoError(t, err)
		return p.Verify(ctx, res.RequestID, authmethod.VerifyParams{Headers: headers, MRZ: lines})
	}

	expectCode := func(t *testing.T, err error, want domain.ProcessCode) {
		t.Helper()
		pc, ok := dErrors.ProcessCodeOf(err)
		require.True(t, ok, "no process code on %v", err)
		assert.Equal(t, want, pc)
	}

	t.Run("registered resident", func(t *testing.T) {
		p, registry := setup(t)
		registry.EXPECT().FindByDocument(gomock.Any(), "EST", "AB1234567").
			Return(&mrz.Resident{Surname: "Tamm", GivenNames: "Kadri", HasPhoto: true}, nil)

		payload, err := verify(t, p, passport)
		require.NoError(t, err)
		assert.Equal(t, "EST", payload.Document.Country)
		assert.True(t, payload.Document.HasPhoto)
	})

	t.Run("unsupported country", func(t *testing.T) {
		p, _ := setup(t)
		_, err := verify(t, p, foreignPassport)
		expectCode(t, err, domain.ProcessCodeUnsupportedCountry)
	})

	t.Run("expired document", func(t *testing.T) {
		p, _ := setup(t)
		_, err := verify(t, p, expiredPassport)
		expectCode(t, err, domain.ProcessCodeDocumentNotVerified)
	})

	t.Run("unknown document", func(t *testing.T) {
		p, registry := setup(t)
		registry.EXPECT().FindByDocument(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, mrz.ErrResidentNotFound)
		_, err := verify(t, p, passport)
		expectCode(t, err, domain.ProcessCodeDocumentNotVerified)
	})

	t.Run("holder mismatch", func(t *testing.T) {
		p, registry := setup(t)
		registry.EXPECT().FindByDocument(gomock.Any(), gomock.Any(), gomock.Any()).Return(&mrz.Resident{Surname: "Other"}, nil)
		_, err := verify(t, p, passport)
		expectCode(t, err, domain.ProcessCodeDocumentMismatch)
	})
}
