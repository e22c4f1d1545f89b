package eresident_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idauth/internal/authmethod"
	"idauth/internal/challenge"
	"idauth/internal/eresident"
	"idauth/internal/platform/kafka"
	"idauth/pkg/domain"
	dErrors "idauth/pkg/domain-errors"
	"idauth/pkg/requestcontext"
)

func setup() (*eresident.Confirmations, *challenge.Correlator[eresident.QrResult], *kafka.MemoryBus) {
	bus := kafka.NewMemoryBus(nil, nil, 0)
	correlator := challenge.New[eresident.QrResult](eresident.QrCapability{Topic: "eresident.qr.verify"},
		challenge.NewInMemoryStore(), bus)
	return eresident.NewConfirmations(correlator, 10*time.Minute, nil), correlator, bus
}

func processCode(t *testing.T, err error) domain.ProcessCode {
	t.Helper()
	pc, ok := dErrors.ProcessCodeOf(err)
	require.True(t, ok, "expected a process code on %v", err)
	return pc
}

func TestConfirmations(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	headers := domain.Headers{MobileUID: "device-1"}

	t.Run("pending until the registry confirms", func(t *testing.T) {
		conf, correlator, bus := setup()
		ch, err := conf.Start(ctx, headers, "ERES1:abc123")
		require.NoError(t, err)
		require.Len(t, bus.Published(), 1)

		_, err = conf.Result(ctx, "device-1", ch.Nonce)
		assert.Equal(t, domain.ProcessCodeDocumentNotVerified, processCode(t, err))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

		require.NoError(t, correlator.OnComplete(ctx, ch.Nonce, eresident.QrResult{
			Confirmed: true,
			Surname:   "TAMM",
			Document:  &authmethod.Document{Type: "P", Number: "AB1234567", Country: "EST"},
		}, ""))

		res, err := conf.Result(ctx, "device-1", ch.Nonce)
		require.NoError(t, err)
		assert.Equal(t, "TAMM", res.Surname)
		assert.Equal(t, "EST", res.Document.Country)
	})

	t.Run("rejected confirmation", func(t *testing.T) {
		conf, correlator, _ := setup()
		ch, err := conf.Start(ctx, headers, "ERES1:abc123")
		require.NoError(t, err)
		require.NoError(t, correlator.OnComplete(ctx, ch.Nonce, eresident.QrResult{Confirmed: false, Reason: "revoked"}, ""))

		_, err = conf.Result(ctx, "device-1", ch.Nonce)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
		assert.Equal(t, domain.ProcessCodeDocumentNotVerified, processCode(t, err))
	})

	t.Run("malformed code", func(t *testing.T) {
		conf, _, bus := setup()
		_, err := conf.Start(ctx, headers, "https://example.com")
		assert.Equal(t, domain.ProcessCodeDocumentMismatch, processCode(t, err))
		assert.Empty(t, bus.Published())
	})

	t.Run("superseded nonce", func(t *testing.T) {
		conf, _, _ := setup()
		first, err := conf.Start(ctx, headers, "ERES1:one")
		require.NoError(t, err)
		_, err = conf.Start(ctx, headers, "ERES1:two")
		require.NoError(t, err)

		_, err = conf.Result(ctx, "device-1", first.Nonce)
		assert.Equal(t, domain.ProcessCodeRequestExpired, processCode(t, err))
	})

	t.Run("expired confirmation", func(t *testing.T) {
		conf, _, _ := setup()
		ch, err := conf.Start(ctx, headers, "ERES1:abc123")
		require.NoError(t, err)

		later := requestcontext.WithTime(context.Background(), now.Add(11*time.Minute))
		_, err = conf.Result(later, "device-1", ch.Nonce)
		assert.Equal(t, domain.ProcessCodeRequestExpired, processCode(t, err))
	})
}
