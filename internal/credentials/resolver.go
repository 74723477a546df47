package credentials

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

const (
	// EndpointKey and HeadersKey are the standard OTLP exporter settings.
	EndpointKey = "OTEL_EXPORTER_OTLP_ENDPOINT"
	HeadersKey  = "OTEL_EXPORTER_OTLP_HEADERS"

	// DefaultBaseURL is used when no Langfuse base URL is configured.
	DefaultBaseURL = "http://localhost:3000"

	otelPath = "/api/public/otel"
)

var resolveMu sync.Mutex

// Credentials identify a Langfuse project.
type Credentials struct {
	PublicKey string
	SecretKey string
	BaseURL   string
}

// Present reports whether both keys are set.
func (c Credentials) Present() bool {
	return c.PublicKey != "" && c.SecretKey != ""
}

// TransportConfig is what the trace exporter needs to reach the backend.
type TransportConfig struct {
	Endpoint        string
	AuthHeaderValue string
	Headers         map[string]string
}

// AuthHeaderValue builds the Basic authorization value for c.
func (c Credentials) AuthHeaderValue() string {
	token := base64.StdEncoding.EncodeToString([]byte(c.PublicKey + ":" + c.SecretKey))
	return "Basic " + token
}

// Endpoint returns the OTLP ingestion endpoint under the base URL.
func (c Credentials) Endpoint() string {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return strings.TrimRight(base, "/") + otelPath
}

// Resolve derives exporter settings from creds and records them in settings
// without overwriting values that are already present. It returns nil, nil
// when either key is missing, in which case tracing should stay disabled.
//
// The returned config reflects the values in effect after the call, so an
// endpoint set by an earlier call or by the operator wins over creds.
func Resolve(creds Credentials, settings Settings) (*TransportConfig, error) {
	if !creds.Present() {
		return nil, nil
	}

	resolveMu.Lock()
	defer resolveMu.Unlock()

	auth := creds.AuthHeaderValue()
	endpoint, err := setIfAbsent(settings, EndpointKey, creds.Endpoint())
	if err != nil {
		return nil, fmt.Errorf("failed to set %s: %w", EndpointKey, err)
	}
	headers, err := setIfAbsent(settings, HeadersKey, "Authorization="+auth)
	if err != nil {
		return nil, fmt.Errorf("failed to set %s: %w", HeadersKey, err)
	}

	return newTransportConfig(endpoint, headers, auth), nil
}

// Rotate is the explicit re-initialization path: unlike Resolve it replaces
// whatever endpoint and headers are currently configured.
func Rotate(creds Credentials, settings Settings) (*TransportConfig, error) {
	if !creds.Present() {
		return nil, nil
	}

	resolveMu.Lock()
	defer resolveMu.Unlock()

	auth := creds.AuthHeaderValue()
	endpoint := creds.Endpoint()
	headers := "Authorization=" + auth
	if err := settings.Set(EndpointKey, endpoint); err != nil {
		return nil, fmt.Errorf("failed to set %s: %w", EndpointKey, err)
	}
	if err := settings.Set(HeadersKey, headers); err != nil {
		return nil, fmt.Errorf("failed to set %s: %w", HeadersKey, err)
	}

	return newTransportConfig(endpoint, headers, auth), nil
}

// newTransportConfig uses the Authorization entry already present in the
// effective headers, so a value written first (by an earlier call or by the
// operator) is the one sent. fallbackAuth fills it in when absent.
func newTransportConfig(endpoint, rawHeaders, fallbackAuth string) *TransportConfig {
	headers := ParseHeaders(rawHeaders)
	auth, ok := headers["Authorization"]
	if !ok {
		auth = fallbackAuth
		headers["Authorization"] = auth
	}
	return &TransportConfig{
		Endpoint:        endpoint,
		AuthHeaderValue: auth,
		Headers:         headers,
	}
}

// ParseHeaders parses the OTLP "key=value,key2=value2" header format.
// Values are percent-decoded; malformed pairs are skipped.
func ParseHeaders(raw string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if decoded, err := url.PathUnescape(value); err == nil {
			value = decoded
		}
		headers[key] = strings.TrimSpace(value)
	}
	return headers
}
