package auth

import "context"

// AuthType identifies which Provider variant produced a token.
type AuthType string

const (
	AuthTypeConnectionString AuthType = "connection_string"
	AuthTypeAzureAD          AuthType = "azure_ad"
)

// Provider is the capability trait shared by every auth variant (spec.md
// §4.3 / §9's "small capability trait" note).
type Provider interface {
	Authenticate(ctx context.Context) (AuthToken, error)
	// Refresh renews the token. The default behavior (just calling
	// Authenticate again) is provided by RefreshViaAuthenticate for
	// providers that don't support incremental refresh.
	Refresh(ctx context.Context) (AuthToken, error)
	AuthType() AuthType
	RequiresRefresh() bool
}

// RefreshViaAuthenticate is the shared default for Provider.Refresh: call
// Authenticate again. Providers with genuine refresh-token support
// override Refresh directly instead of embedding this.
func RefreshViaAuthenticate(ctx context.Context, p Provider) (AuthToken, error) {
	return p.Authenticate(ctx)
}
