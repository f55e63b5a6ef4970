package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dawidpereira/quetty-sub002/internal/apperrors"
	"github.com/dawidpereira/quetty-sub002/internal/auth"
)

func TestMintSAS_RoundTripsExpectedFields(t *testing.T) {
	key := "c2VjcmV0LWtleS12YWx1ZQ==" // base64("secret-key-value")
	token, err := auth.MintSAS("myns", "RootManageSharedAccessKey", key, 1)
	require.NoError(t, err)
	require.Contains(t, token, "SharedAccessSignature sr=")
	require.Contains(t, token, "sig=")
	require.Contains(t, token, "skn=RootManageSharedAccessKey")

	connStr := auth.ConnectionStringFromSAS("myns", token)
	require.Contains(t, connStr, "Endpoint=sb://myns.servicebus.windows.net/")
	require.Contains(t, connStr, "SharedAccessSignature=")
}

func TestMintSAS_InvalidBase64KeyFails(t *testing.T) {
	_, err := auth.MintSAS("myns", "key", "not-base64!!!", 1)
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.KindAuthenticationFailed))
}

func TestConnectionStringProvider_ParsesEndpointKeyNameAndKey(t *testing.T) {
	cs := "Endpoint=sb://myns.servicebus.windows.net/;SharedAccessKeyName=RootManageSharedAccessKey;SharedAccessKey=c2VjcmV0"
	provider, err := auth.NewConnectionStringProvider(cs)
	require.NoError(t, err)
	require.Equal(t, "myns", provider.Namespace())
	require.Equal(t, auth.AuthTypeConnectionString, provider.AuthType())
	require.True(t, provider.RequiresRefresh())

	tok, err := provider.Authenticate(context.Background())
	require.NoError(t, err)
	require.Equal(t, auth.TokenTypeConnectionString, tok.Type)
	require.Contains(t, tok.Token, "SharedAccessSignature=")
}

func TestConnectionStringProvider_MissingFieldsFail(t *testing.T) {
	_, err := auth.NewConnectionStringProvider("")
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.KindConfigurationError))

	_, err = auth.NewConnectionStringProvider("Endpoint=sb://myns.servicebus.windows.net/")
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.KindConfigurationError))
}

func TestCachedToken_NeedsRefreshWindow(t *testing.T) {
	now := time.Now()
	tok := auth.CachedToken{Value: "v", ExpiresAt: now.Add(10 * time.Minute)}

	require.False(t, tok.IsExpired(now))
	require.False(t, tok.NeedsRefresh(now, auth.DefaultRefreshWindow))
	require.True(t, tok.NeedsRefresh(now.Add(6*time.Minute), auth.DefaultRefreshWindow))
	require.True(t, tok.IsExpired(now.Add(10*time.Minute)))
}

func TestTokenCache_SetGetInvalidate(t *testing.T) {
	cache := auth.NewTokenCache()

	_, ok := cache.Get("aad")
	require.False(t, ok)
	require.True(t, cache.NeedsRefresh("aad"))

	cache.Set("aad", auth.CachedToken{Value: "tok-1", ExpiresAt: time.Now().Add(50 * time.Millisecond)})
	v, ok := cache.Get("aad")
	require.True(t, ok)
	require.Equal(t, "tok-1", v)

	time.Sleep(70 * time.Millisecond)
	_, ok = cache.Get("aad")
	require.False(t, ok, "expired entries must not be returned")

	cache.Set("aad", auth.CachedToken{Value: "tok-2", ExpiresAt: time.Now().Add(time.Hour)})
	cache.Invalidate("aad")
	_, ok = cache.Get("aad")
	require.False(t, ok)
}

func TestAuthStateManager_Lifecycle(t *testing.T) {
	m := auth.NewAuthStateManager()
	require.Equal(t, auth.StateNotAuthenticated, m.State())
	require.True(t, m.NeedsReauthentication())

	m.SetDeviceCodePending(auth.DeviceCodeInfo{UserCode: "ABC-123", VerificationURI: "https://microsoft.com/devicelogin"})
	require.Equal(t, auth.StateAwaitingDeviceCode, m.State())
	info, ok := m.GetDeviceCodeInfo()
	require.True(t, ok)
	require.Equal(t, "ABC-123", info.UserCode)

	m.SetAuthenticated("bearer-token", time.Hour, "Endpoint=sb://ns.servicebus.windows.net/;...")
	require.Equal(t, auth.StateAuthenticated, m.State())
	require.True(t, m.IsAuthenticated())
	require.False(t, m.NeedsReauthentication())

	tok, ok := m.GetAzureADToken()
	require.True(t, ok)
	require.Equal(t, "bearer-token", tok)

	_, ok = m.GetDeviceCodeInfo()
	require.False(t, ok, "device code info must clear on authentication")

	m.SetFailed("network unreachable")
	require.Equal(t, auth.StateFailed, m.State())
	require.Equal(t, "network unreachable", m.FailReason())
	require.True(t, m.NeedsReauthentication())

	m.Logout()
	require.Equal(t, auth.StateNotAuthenticated, m.State())
	_, ok = m.GetConnectionString()
	require.False(t, ok)
}

func TestAuthStateManager_NeedsReauthenticationWithinRefreshWindow(t *testing.T) {
	m := auth.NewAuthStateManager()
	m.SetAuthenticated("bearer-token", 4*time.Minute, "")
	require.True(t, m.NeedsReauthentication(), "a token expiring inside the refresh window still needs proactive re-auth")

	m2 := auth.NewAuthStateManager()
	m2.SetAuthenticated("bearer-token", time.Hour, "")
	require.False(t, m2.NeedsReauthentication())
}

func TestAuthStateManager_SASTokenIndependentOfAADToken(t *testing.T) {
	m := auth.NewAuthStateManager()
	m.SetSASToken("sas-value", time.Now().Add(time.Hour))

	tok, ok := m.GetSASToken()
	require.True(t, ok)
	require.Equal(t, "sas-value", tok)

	// SAS being set alone does not imply Authenticated.
	require.False(t, m.IsAuthenticated())
}
