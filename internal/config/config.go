// Package config loads process configuration from a .env file or the
// environment, the way the wider library's pkg/config does: cleanenv with
// a validator pass on top. The engine itself never writes .env state; that
// remains a UI-side concern per spec.md §6.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/dawidpereira/quetty-sub002/internal/logging"
)

// AzureAD carries the Azure AD auth-method configuration recognized by the
// config loader, per spec.md §6.
type AzureAD struct {
	AuthMethod     string `env:"AZURE_AD__AUTH_METHOD" env-default:"connection_string"`
	TenantID       string `env:"AZURE_AD__TENANT_ID"`
	ClientID       string `env:"AZURE_AD__CLIENT_ID"`
	ClientSecret   string `env:"AZURE_AD__CLIENT_SECRET"`
	SubscriptionID string `env:"AZURE_AD__SUBSCRIPTION_ID"`
	ResourceGroup  string `env:"AZURE_AD__RESOURCE_GROUP"`
	Namespace      string `env:"AZURE_AD__NAMESPACE"`
}

// ServiceBus carries connection-string-based configuration, including the
// encrypted-at-rest variant whose decryption is delegated to a Decryptor.
type ServiceBus struct {
	ConnectionString          string `env:"SERVICEBUS__CONNECTION_STRING"`
	EncryptedConnectionString string `env:"SERVICEBUS__ENCRYPTED_CONNECTION_STRING"`
	EncryptionSalt            string `env:"SERVICEBUS__ENCRYPTION_SALT"`
}

// Statistics mirrors spec.md §3's StatisticsConfig, loaded from env. Load's
// validator pass rejects a CacheTTLSeconds outside [30, 3600]; it does not
// clamp it.
type Statistics struct {
	DisplayEnabled   bool `env:"STATISTICS__DISPLAY_ENABLED" env-default:"true"`
	CacheTTLSeconds  int  `env:"STATISTICS__CACHE_TTL_SECONDS" env-default:"60" validate:"gte=30,lte=3600"`
	UseManagementAPI bool `env:"STATISTICS__USE_MANAGEMENT_API" env-default:"false"`
}

// Batch mirrors spec.md §3's BatchConfig.
type Batch struct {
	MaxBatchSize         int `env:"BATCH__MAX_BATCH_SIZE" env-default:"256" validate:"lte=2048"`
	ChunkSize            int `env:"BATCH__CHUNK_SIZE" env-default:"100" validate:"lte=500"`
	OperationTimeoutSec  int `env:"BATCH__OPERATION_TIMEOUT_SECS" env-default:"300" validate:"lte=1200"`
	ProcessingTimeSec    int `env:"BATCH__PROCESSING_TIME_SECS" env-default:"120" validate:"lte=300"`
	LockTimeoutSec       int `env:"BATCH__LOCK_TIMEOUT_SECS" env-default:"10" validate:"lte=30"`
	MaxMessagesToProcess int `env:"BATCH__MAX_MESSAGES_TO_PROCESS" env-default:"1000" validate:"lte=10000"`
}

// Config is the top-level process configuration.
type Config struct {
	Logger     logging.Config
	AzureAD    AzureAD
	ServiceBus ServiceBus
	Statistics Statistics
	Batch      Batch
}

// Decryptor decrypts a ciphertext connection string using a salt. The
// engine treats encryption as an external primitive (spec.md §1); callers
// inject a concrete implementation (e.g. backed by a UI-side keychain).
type Decryptor interface {
	Decrypt(ciphertext, salt string) (string, error)
}

// Load reads configuration from .env (if present) or the environment, then
// validates it.
func Load(cfg *Config) error {
	if _, err := os.Stat(".env"); err == nil {
		if err := cleanenv.ReadConfig(".env", cfg); err != nil {
			return fmt.Errorf("failed to read .env config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("failed to read env config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// ResolveConnectionString returns the plaintext connection string, either
// directly from ServiceBus.ConnectionString or by decrypting
// EncryptedConnectionString with dec.
func (c *Config) ResolveConnectionString(dec Decryptor) (string, error) {
	if c.ServiceBus.ConnectionString != "" {
		return c.ServiceBus.ConnectionString, nil
	}
	if c.ServiceBus.EncryptedConnectionString == "" {
		return "", nil
	}
	if dec == nil {
		return "", fmt.Errorf("encrypted connection string present but no decryptor configured")
	}
	return dec.Decrypt(c.ServiceBus.EncryptedConnectionString, c.ServiceBus.EncryptionSalt)
}

// EnvVarError distinguishes a missing variable from an empty one, adapted
// from original_source's EnvUtils (server/src/utils/env.rs).
type EnvVarError struct {
	Name string
	Kind string // "not_found" | "empty"
}

func (e *EnvVarError) Error() string {
	switch e.Kind {
	case "empty":
		return fmt.Sprintf("environment variable %q is empty", e.Name)
	default:
		return fmt.Sprintf("environment variable %q not found", e.Name)
	}
}

// RequireEnv returns the trimmed value of name, or an *EnvVarError if it is
// unset or blank.
func RequireEnv(name string) (string, error) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return "", &EnvVarError{Name: name, Kind: "not_found"}
	}
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return "", &EnvVarError{Name: name, Kind: "empty"}
	}
	return trimmed, nil
}

// OptionalEnv returns the trimmed value of name, or "" if unset, blank, or
// invalid.
func OptionalEnv(name string) string {
	v, err := RequireEnv(name)
	if err != nil {
		return ""
	}
	return v
}

// HasNonEmpty reports whether name is set to a non-blank value.
func HasNonEmpty(name string) bool {
	v, ok := os.LookupEnv(name)
	return ok && strings.TrimSpace(v) != ""
}
