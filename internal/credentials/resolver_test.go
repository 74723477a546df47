package credentials

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	settings := NewMemorySettings(nil)
	creds := Credentials{PublicKey: "pk-lf-1", SecretKey: "sk-lf-1", BaseURL: "https://cloud.langfuse.com/"}

	cfg, err := Resolve(creds, settings)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	token := base64.StdEncoding.EncodeToString([]byte("pk-lf-1:sk-lf-1"))
	assert.Equal(t, "https://cloud.langfuse.com/api/public/otel", cfg.Endpoint)
	assert.Equal(t, "Basic "+token, cfg.AuthHeaderValue)
	assert.Equal(t, "Basic "+token, cfg.Headers["Authorization"])

	endpoint, ok := settings.Lookup(EndpointKey)
	assert.True(t, ok)
	assert.Equal(t, cfg.Endpoint, endpoint)
	headers, ok := settings.Lookup(HeadersKey)
	assert.True(t, ok)
	assert.Equal(t, "Authorization=Basic "+token, headers)
}

func TestResolve_DefaultBaseURL(t *testing.T) {
	cfg, err := Resolve(Credentials{PublicKey: "pk", SecretKey: "sk"}, NewMemorySettings(nil))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/api/public/otel", cfg.Endpoint)
}

func TestResolve_MissingSecrets(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
	}{
		{"both missing", Credentials{}},
		{"public key missing", Credentials{SecretKey: "sk"}},
		{"secret key missing", Credentials{PublicKey: "pk"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := NewMemorySettings(nil)
			cfg, err := Resolve(tt.creds, settings)
			assert.NoError(t, err)
			assert.Nil(t, cfg)

			_, ok := settings.Lookup(EndpointKey)
			assert.False(t, ok, "settings must not be touched without credentials")
		})
	}
}

func TestResolve_FirstWins(t *testing.T) {
	settings := NewMemorySettings(nil)
	first := Credentials{PublicKey: "pk-a", SecretKey: "sk-a", BaseURL: "https://a.example.com"}
	second := Credentials{PublicKey: "pk-b", SecretKey: "sk-b", BaseURL: "https://b.example.com"}

	once, err := Resolve(first, settings)
	require.NoError(t, err)
	twice, err := Resolve(first, settings)
	require.NoError(t, err)
	assert.Equal(t, once, twice)

	other, err := Resolve(second, settings)
	require.NoError(t, err)
	assert.Equal(t, once.Endpoint, other.Endpoint)
	assert.Equal(t, once.AuthHeaderValue, other.AuthHeaderValue)
}

func TestResolve_ExternalOverride(t *testing.T) {
	settings := NewMemorySettings(map[string]string{
		EndpointKey: "https://collector.internal/otel",
	})

	cfg, err := Resolve(Credentials{PublicKey: "pk", SecretKey: "sk"}, settings)
	require.NoError(t, err)
	assert.Equal(t, "https://collector.internal/otel", cfg.Endpoint)

	// Headers were unset, so they are derived from the credentials.
	assert.Equal(t, Credentials{PublicKey: "pk", SecretKey: "sk"}.AuthHeaderValue(), cfg.AuthHeaderValue)
}

func TestResolve_OverrideWithoutAuthorization(t *testing.T) {
	settings := NewMemorySettings(map[string]string{
		HeadersKey: "x-tenant=acme",
	})

	creds := Credentials{PublicKey: "pk", SecretKey: "sk"}
	cfg, err := Resolve(creds, settings)
	require.NoError(t, err)
	assert.Equal(t, "acme", cfg.Headers["x-tenant"])
	assert.Equal(t, creds.AuthHeaderValue(), cfg.Headers["Authorization"])
}

func TestResolve_OperatorAuthorizationTakesPrecedence(t *testing.T) {
	settings := NewMemorySettings(map[string]string{
		HeadersKey: "Authorization=Bearer%20operator-token,x-tenant=acme",
	})

	creds := Credentials{PublicKey: "pk", SecretKey: "sk"}
	cfg, err := Resolve(creds, settings)
	require.NoError(t, err)
	assert.Equal(t, "Bearer operator-token", cfg.AuthHeaderValue)
	assert.Equal(t, "Bearer operator-token", cfg.Headers["Authorization"])
	assert.Equal(t, "acme", cfg.Headers["x-tenant"])
	assert.NotEqual(t, creds.AuthHeaderValue(), cfg.AuthHeaderValue)

	// Rotate is the way to replace it with the derived token.
	rotated, err := Rotate(creds, settings)
	require.NoError(t, err)
	assert.Equal(t, creds.AuthHeaderValue(), rotated.AuthHeaderValue)
}

func TestRotate(t *testing.T) {
	settings := NewMemorySettings(nil)
	_, err := Resolve(Credentials{PublicKey: "pk-a", SecretKey: "sk-a"}, settings)
	require.NoError(t, err)

	rotated := Credentials{PublicKey: "pk-b", SecretKey: "sk-b", BaseURL: "https://b.example.com"}
	cfg, err := Rotate(rotated, settings)
	require.NoError(t, err)
	assert.Equal(t, "https://b.example.com/api/public/otel", cfg.Endpoint)
	assert.Equal(t, rotated.AuthHeaderValue(), cfg.AuthHeaderValue)

	endpoint, _ := settings.Lookup(EndpointKey)
	assert.Equal(t, cfg.Endpoint, endpoint)
}

func TestParseHeaders(t *testing.T) {
	headers := ParseHeaders("Authorization=Basic%20YWJj+/=,x-empty=, =skipped,novalue")
	assert.Equal(t, "Basic YWJj+/=", headers["Authorization"])
	assert.Equal(t, "", headers["x-empty"])
	assert.Len(t, headers, 2)
}
