package auth_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dawidpereira/quetty-sub002/internal/apperrors"
	"github.com/dawidpereira/quetty-sub002/internal/auth"
)

// scriptedTransport answers every request with the next entry in responses,
// regardless of URL, so AzureADProvider's hardcoded AAD endpoints can be
// exercised without any real network access.
type scriptedTransport struct {
	responses []scriptedResponse
	calls     int
	requests  []*http.Request
}

type scriptedResponse struct {
	status int
	body   string
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.requests = append(s.requests, req)
	r := s.responses[s.calls]
	if s.calls < len(s.responses)-1 {
		s.calls++
	}
	return &http.Response{
		StatusCode: r.status,
		Body:       io.NopCloser(strings.NewReader(r.body)),
		Header:     make(http.Header),
	}, nil
}

func newScriptedClient(responses ...scriptedResponse) (*http.Client, *scriptedTransport) {
	tr := &scriptedTransport{responses: responses}
	return &http.Client{Transport: tr}, tr
}

func TestAzureADProvider_ClientSecretGrantReturnsBearerToken(t *testing.T) {
	client, tr := newScriptedClient(scriptedResponse{
		status: http.StatusOK,
		body:   `{"access_token":"abc123","token_type":"Bearer","expires_in":3600}`,
	})

	p := auth.NewAzureADProvider(auth.AzureADMethodClientSecret, "tenant", "client", "secret", "scope", client)
	tok, err := p.Authenticate(context.Background())
	require.NoError(t, err)
	require.Equal(t, "abc123", tok.Token)
	require.Equal(t, auth.TokenTypeBearer, tok.Type)
	require.NotNil(t, tok.ExpiresInSecs)
	require.Equal(t, int64(3600), *tok.ExpiresInSecs)
	require.Equal(t, auth.AuthTypeAzureAD, p.AuthType())
	require.True(t, p.RequiresRefresh())
	require.Len(t, tr.requests, 1)
}

func TestAzureADProvider_ClientSecretGrantMapsUnauthorized(t *testing.T) {
	client, _ := newScriptedClient(scriptedResponse{status: http.StatusUnauthorized, body: `{"error":"invalid_client"}`})

	p := auth.NewAzureADProvider(auth.AzureADMethodClientSecret, "tenant", "client", "bad-secret", "scope", client)
	_, err := p.Authenticate(context.Background())
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.KindAuthenticationFailed))
}

func TestAzureADProvider_RequestDeviceCodeParsesResponse(t *testing.T) {
	client, _ := newScriptedClient(scriptedResponse{
		status: http.StatusOK,
		body:   `{"device_code":"dc-1","user_code":"ABC-123","verification_uri":"https://microsoft.com/devicelogin","expires_in":900,"interval":1}`,
	})

	p := auth.NewAzureADProvider(auth.AzureADMethodDeviceCode, "tenant", "client", "", "scope", client)
	info, err := p.RequestDeviceCode(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ABC-123", info.UserCode)
	require.Equal(t, "dc-1", info.DeviceCode)
	require.Equal(t, int64(1), info.Interval)
}

func TestAzureADProvider_PollForTokenRetriesOnAuthorizationPending(t *testing.T) {
	client, tr := newScriptedClient(
		scriptedResponse{status: http.StatusBadRequest, body: `{"error":"authorization_pending"}`},
		scriptedResponse{status: http.StatusBadRequest, body: `{"error":"authorization_pending"}`},
		scriptedResponse{status: http.StatusOK, body: `{"access_token":"final-token","token_type":"Bearer","expires_in":120}`},
	)

	p := auth.NewAzureADProvider(auth.AzureADMethodDeviceCode, "tenant", "client", "", "scope", client)
	info := auth.DeviceCodeInfo{DeviceCode: "dc-1", ExpiresIn: 60, Interval: 1}

	tok, err := p.PollForToken(context.Background(), info)
	require.NoError(t, err)
	require.Equal(t, "final-token", tok.Token)
	require.GreaterOrEqual(t, len(tr.requests), 1)
}

func TestAzureADProvider_PollForTokenFailsOnAuthorizationDeclined(t *testing.T) {
	client, _ := newScriptedClient(scriptedResponse{status: http.StatusBadRequest, body: `{"error":"authorization_declined"}`})

	p := auth.NewAzureADProvider(auth.AzureADMethodDeviceCode, "tenant", "client", "", "scope", client)
	info := auth.DeviceCodeInfo{DeviceCode: "dc-1", ExpiresIn: 60, Interval: 1}

	_, err := p.PollForToken(context.Background(), info)
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.KindAuthenticationFailed))
}

func TestAzureADProvider_RefreshReissuesClientSecretGrant(t *testing.T) {
	client, tr := newScriptedClient(scriptedResponse{
		status: http.StatusOK,
		body:   `{"access_token":"refreshed","token_type":"Bearer","expires_in":3600}`,
	})

	p := auth.NewAzureADProvider(auth.AzureADMethodClientSecret, "tenant", "client", "secret", "scope", client)
	tok, err := p.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, "refreshed", tok.Token)
	require.Len(t, tr.requests, 1)
}

func TestNewProvider_UnknownMethodDefaultsToConnectionString(t *testing.T) {
	cs := "Endpoint=sb://myns.servicebus.windows.net/;SharedAccessKeyName=RootManageSharedAccessKey;SharedAccessKey=c2VjcmV0"
	p, err := auth.NewProvider("something-unrecognized", auth.FactoryConfig{ConnectionString: cs})
	require.NoError(t, err)
	require.Equal(t, auth.AuthTypeConnectionString, p.AuthType())
}

func TestNewProvider_DeviceCodeUsesDefaultScopeWhenUnset(t *testing.T) {
	p, err := auth.NewProvider("device_code", auth.FactoryConfig{TenantID: "t", ClientID: "c"})
	require.NoError(t, err)
	require.Equal(t, auth.AuthTypeAzureAD, p.AuthType())
}
