package servicebus

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

	"github.com/dawidpereira/quetty-sub002/internal/auth"
)

// adProviderCredential adapts an auth.Provider producing Bearer tokens
// into azcore.TokenCredential, so an AAD-authenticated broker client can
// be built via azservicebus.NewClient(namespace, cred, nil) next to the
// connection-string path (spec.md §1/§6: auth providers feed tokens to
// both the broker client's SASL and the management REST client).
type adProviderCredential struct {
	provider auth.Provider
}

// NewAzureADCredential wraps provider as an azcore.TokenCredential.
func NewAzureADCredential(provider auth.Provider) azcore.TokenCredential {
	return &adProviderCredential{provider: provider}
}

// GetToken implements azcore.TokenCredential.
func (c *adProviderCredential) GetToken(ctx context.Context, _ policy.TokenRequestOptions) (azcore.AccessToken, error) {
	tok, err := c.provider.Authenticate(ctx)
	if err != nil {
		return azcore.AccessToken{}, err
	}

	expiresIn := int64(300)
	if tok.ExpiresInSecs != nil {
		expiresIn = *tok.ExpiresInSecs
	}
	return azcore.AccessToken{
		Token:     tok.Token,
		ExpiresOn: time.Now().Add(time.Duration(expiresIn) * time.Second),
	}, nil
}
