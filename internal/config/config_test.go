package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dawidpereira/quetty-sub002/internal/config"
)

type fakeDecryptor struct {
	calledWith [2]string
}

func (f *fakeDecryptor) Decrypt(ciphertext, salt string) (string, error) {
	f.calledWith = [2]string{ciphertext, salt}
	return "decrypted-connection-string", nil
}

func TestConfig_ResolveConnectionString_PrefersPlaintext(t *testing.T) {
	cfg := &config.Config{ServiceBus: config.ServiceBus{ConnectionString: "plain"}}
	s, err := cfg.ResolveConnectionString(nil)
	require.NoError(t, err)
	require.Equal(t, "plain", s)
}

func TestConfig_ResolveConnectionString_DecryptsWhenEncryptedPresent(t *testing.T) {
	cfg := &config.Config{ServiceBus: config.ServiceBus{
		EncryptedConnectionString: "cipher",
		EncryptionSalt:            "salt",
	}}
	dec := &fakeDecryptor{}
	s, err := cfg.ResolveConnectionString(dec)
	require.NoError(t, err)
	require.Equal(t, "decrypted-connection-string", s)
	require.Equal(t, [2]string{"cipher", "salt"}, dec.calledWith)
}

func TestConfig_ResolveConnectionString_MissingDecryptorErrors(t *testing.T) {
	cfg := &config.Config{ServiceBus: config.ServiceBus{EncryptedConnectionString: "cipher"}}
	_, err := cfg.ResolveConnectionString(nil)
	require.Error(t, err)
}

func TestConfig_ResolveConnectionString_NeitherSetReturnsEmpty(t *testing.T) {
	cfg := &config.Config{}
	s, err := cfg.ResolveConnectionString(nil)
	require.NoError(t, err)
	require.Empty(t, s)
}

func TestRequireEnv_MissingVsEmptyVsPresent(t *testing.T) {
	const name = "QUETTY_SUB002_TEST_VAR"
	os.Unsetenv(name)

	_, err := config.RequireEnv(name)
	require.Error(t, err)
	var envErr *config.EnvVarError
	require.ErrorAs(t, err, &envErr)
	require.Equal(t, "not_found", envErr.Kind)

	require.NoError(t, os.Setenv(name, "   "))
	defer os.Unsetenv(name)
	_, err = config.RequireEnv(name)
	require.Error(t, err)
	require.ErrorAs(t, err, &envErr)
	require.Equal(t, "empty", envErr.Kind)

	require.NoError(t, os.Setenv(name, "value"))
	v, err := config.RequireEnv(name)
	require.NoError(t, err)
	require.Equal(t, "value", v)
}

func TestOptionalEnv_ReturnsEmptyWithoutError(t *testing.T) {
	const name = "QUETTY_SUB002_TEST_OPTIONAL"
	os.Unsetenv(name)
	require.Equal(t, "", config.OptionalEnv(name))

	require.NoError(t, os.Setenv(name, "present"))
	defer os.Unsetenv(name)
	require.Equal(t, "present", config.OptionalEnv(name))
}

func TestHasNonEmpty(t *testing.T) {
	const name = "QUETTY_SUB002_TEST_HASNONEMPTY"
	os.Unsetenv(name)
	require.False(t, config.HasNonEmpty(name))

	require.NoError(t, os.Setenv(name, ""))
	defer os.Unsetenv(name)
	require.False(t, config.HasNonEmpty(name))

	require.NoError(t, os.Setenv(name, "x"))
	require.True(t, config.HasNonEmpty(name))
}
