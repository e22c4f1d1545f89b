package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchemaCode(t *testing.T) {
	t.Run("accepts known schema", func(t *testing.T) {
		code, err := ParseSchemaCode("authorization")
		require.NoError(t, err)
		assert.Equal(t, SchemaAuthorization, code)
	})

	t.Run("rejects unknown schema", func(t *testing.T) {
		_, err := ParseSchemaCode("partner-login")
		require.Error(t, err)
	})
}

func TestProcessCodeNames(t *testing.T) {
	code, err := ParseProcessCode("attempts-exceeded")
	require.NoError(t, err)
	assert.Equal(t, ProcessCodeAttemptsExceeded, code)
	assert.Equal(t, "attempts-exceeded", code.String())

	_, err = ParseProcessCode("nope")
	assert.Error(t, err)
	assert.Equal(t, "process-code-42", ProcessCode(42).String())
}

func TestAppVersion_IsAtLeast(t *testing.T) {
	cases := []struct {
		v, other string
		want     bool
	}{
		{"4.12.1", "4.12.0", true},
		{"4.2", "4.12", false},
		{"4.1", "4.1.0", true},
		{"5", "4.99.99", true},
	}
	for _, tc := range cases {
		v, err := ParseAppVersion(tc.v)
		require.NoError(t, err)
		other, err := ParseAppVersion(tc.other)
		require.NoError(t, err)
		assert.Equal(t, tc.want, v.IsAtLeast(other), "%s >= %s", tc.v, tc.other)
	}

	_, err := ParseAppVersion("4.x")
	assert.Error(t, err)
}

func TestHeadersValidate(t *testing.T) {
	assert.ErrorIs(t, Headers{}.Validate(), ErrMissingMobileUID)
	assert.NoError(t, Headers{MobileUID: "device-1"}.Validate())
	assert.Equal(t, PlatformIOS, ParsePlatformType(" iOS "))
	assert.Equal(t, PlatformUnknown, ParsePlatformType("symbian"))
}
