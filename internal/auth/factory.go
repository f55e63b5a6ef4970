package auth

import (
	"net/http"
)

// FactoryConfig carries everything a Provider variant might need; unused
// fields for the selected variant are ignored.
type FactoryConfig struct {
	Method AzureADMethod

	ConnectionString string

	TenantID       string
	ClientID       string
	ClientSecret   string
	Scope          string
	HTTPClient     *http.Client
}

// defaultAzureADScope is the Service Bus resource scope used when none is
// supplied, per spec.md §6.
const defaultAzureADScope = "https://servicebus.azure.net/.default"

// NewProvider selects a Provider variant from methodName, per spec.md
// §4.3: unknown values default to connection_string. Fallback between
// providers is explicitly disallowed elsewhere (the Command Bus never
// retries auth with a different provider on failure) — this factory only
// resolves which single variant to construct.
func NewProvider(methodName string, cfg FactoryConfig) (Provider, error) {
	switch AzureADMethod(methodName) {
	case AzureADMethodDeviceCode, AzureADMethodClientSecret:
		scope := cfg.Scope
		if scope == "" {
			scope = defaultAzureADScope
		}
		return NewAzureADProvider(AzureADMethod(methodName), cfg.TenantID, cfg.ClientID, cfg.ClientSecret, scope, cfg.HTTPClient), nil
	default:
		return NewConnectionStringProvider(cfg.ConnectionString)
	}
}
