package photoid_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"idauth/internal/authmethod"
	"idauth/internal/authmethod/providers/photoid"
	"idauth/internal/authmethod/providers/photoid/mocks"
	"idauth/internal/platform/kvcache"
	"idauth/pkg/domain"
	dErrors "idauth/pkg/domain-errors"
)

func TestProvider(t *testing.T) {
	ctx := context.Background()
	headers := domain.Headers{MobileUID: "device-1"}

	cases := []struct {
		name    string
		match   *photoid.Match
		wantErr bool
	}{
		{name: "match above threshold", match: &photoid.Match{Matched: true, Score: 0.93, TaxID: "111"}},
		{name: "low score", match: &photoid.Match{Matched: true, Score: 0.5}, wantErr: true},
		{name: "no match", match: &photoid.Match{Matched: false, Score: 0.99}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verifier := mocks.NewMockVerifier(gomock.NewController(t))
			p := photoid.New(verifier, authmethod.NewRequestCache(kvcache.NewMemory(), domain.MethodPhotoID, time.Minute))

			res, err := p.RequestAuthorizationURL(ctx, authmethod.RequestOptions{}, headers, domain.SchemaAuthorization)
			require.NoError(t, err)
			verifier.EXPECT().Compare(gomock.Any(), res.RequestID, "sdk-token").Return(tc.match, nil)

			payload, err := p.Verify(ctx, res.RequestID, authmethod.VerifyParams{Headers: headers, PhotoToken: "sdk-token"})
			if tc.wantErr {
				pc, ok := dErrors.ProcessCodeOf(err)
				require.True(t, ok)
				assert.Equal(t, domain.ProcessCodePhotoIDFailed, pc)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "111", payload.TaxID)
		})
	}
}
