package auth

import (
	"context"
	"strings"

	"github.com/dawidpereira/quetty-sub002/internal/apperrors"
)

// ConnectionStringProvider mints a fresh 24h SAS token from a semicolon-
// delimited connection string and hands back a connection string carrying
// that SAS, per spec.md §4.3. Grounded on
// original_source/server/src/auth/connection_string.rs.
type ConnectionStringProvider struct {
	namespace string
	keyName   string
	key       string
}

// NewConnectionStringProvider parses value, extracting Endpoint,
// SharedAccessKeyName, and SharedAccessKey. The namespace is derived from
// the endpoint host (the substring before the first dot), per spec.md
// §4.3.
func NewConnectionStringProvider(value string) (*ConnectionStringProvider, error) {
	if strings.TrimSpace(value) == "" {
		return nil, apperrors.New(apperrors.KindConfigurationError, "connection string cannot be empty", nil)
	}

	var namespace, keyName, key string
	for _, part := range strings.Split(value, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		switch {
		case strings.HasPrefix(part, "Endpoint="):
			endpoint := strings.TrimPrefix(part, "Endpoint=")
			if idx := strings.Index(endpoint, "://"); idx >= 0 {
				nsPart := endpoint[idx+3:]
				if dot := strings.Index(nsPart, "."); dot >= 0 {
					namespace = nsPart[:dot]
				}
			}
		case strings.HasPrefix(part, "SharedAccessKeyName="):
			keyName = strings.TrimPrefix(part, "SharedAccessKeyName=")
		case strings.HasPrefix(part, "SharedAccessKey="):
			key = strings.TrimPrefix(part, "SharedAccessKey=")
		}
	}

	if namespace == "" {
		return nil, apperrors.New(apperrors.KindConfigurationError, "Missing namespace in connection string", nil)
	}
	if keyName == "" {
		return nil, apperrors.New(apperrors.KindConfigurationError, "Missing SharedAccessKeyName in connection string", nil)
	}
	if key == "" {
		return nil, apperrors.New(apperrors.KindConfigurationError, "Missing SharedAccessKey in connection string", nil)
	}

	return &ConnectionStringProvider{namespace: namespace, keyName: keyName, key: key}, nil
}

// Namespace returns the Service Bus namespace derived from the endpoint.
func (p *ConnectionStringProvider) Namespace() string { return p.namespace }

// Authenticate mints a SAS token valid for 24h and wraps it in a full
// connection string.
func (p *ConnectionStringProvider) Authenticate(ctx context.Context) (AuthToken, error) {
	sas, err := MintSAS(p.namespace, p.keyName, p.key, 24)
	if err != nil {
		return AuthToken{}, err
	}
	connStr := ConnectionStringFromSAS(p.namespace, sas)
	expires := int64(24 * 3600)
	return AuthToken{Token: connStr, Type: TokenTypeConnectionString, ExpiresInSecs: &expires}, nil
}

// Refresh re-mints a fresh SAS token; connection strings have no separate
// refresh-token grant so this simply re-authenticates.
func (p *ConnectionStringProvider) Refresh(ctx context.Context) (AuthToken, error) {
	return RefreshViaAuthenticate(ctx, p)
}

func (p *ConnectionStringProvider) AuthType() AuthType { return AuthTypeConnectionString }

// RequiresRefresh is always true: SAS tokens expire.
func (p *ConnectionStringProvider) RequiresRefresh() bool { return true }
